package usps

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCredentials() Credentials {
	return Credentials{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RefreshToken: "refresh-token",
	}
}

func TestTokenManager_Refresh_Success(t *testing.T) {
	var gotGrant, gotRefresh string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotGrant = r.PostFormValue("grant_type")
		gotRefresh = r.PostFormValue("refresh_token")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token": "tok-1", "token_type": "Bearer"}`))
	}))
	defer srv.Close()

	m := NewTokenManager(testCredentials(), srv.URL, srv.Client(), nil)

	header, err := m.AuthHeader(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-1", header)
	assert.Equal(t, "refresh_token", gotGrant)
	assert.Equal(t, "refresh-token", gotRefresh)
}

func TestTokenManager_AuthHeader_CachesToken(t *testing.T) {
	exchanges := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		exchanges++
		w.Write([]byte(`{"access_token": "tok-1"}`))
	}))
	defer srv.Close()

	m := NewTokenManager(testCredentials(), srv.URL, srv.Client(), nil)

	for range 3 {
		_, err := m.AuthHeader(context.Background())
		require.NoError(t, err)
	}

	// No proactive expiry: refresh happens once, the cache serves the rest.
	assert.Equal(t, 1, exchanges)
}

func TestTokenManager_Refresh_ReplacesCachedToken(t *testing.T) {
	n := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n++
		if n == 1 {
			w.Write([]byte(`{"access_token": "tok-1"}`))
			return
		}
		w.Write([]byte(`{"access_token": "tok-2"}`))
	}))
	defer srv.Close()

	m := NewTokenManager(testCredentials(), srv.URL, srv.Client(), nil)

	header, err := m.AuthHeader(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-1", header)

	require.NoError(t, m.Refresh(context.Background()))

	header, err = m.AuthHeader(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-2", header)
}

func TestTokenManager_Refresh_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	m := NewTokenManager(testCredentials(), srv.URL, srv.Client(), nil)

	_, err := m.AuthHeader(context.Background())
	require.Error(t, err)
	assert.True(t, IsTokenError(err))

	var te *TokenError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusBadRequest, te.StatusCode)
}

func TestTokenManager_Refresh_MissingAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"token_type": "Bearer"}`))
	}))
	defer srv.Close()

	m := NewTokenManager(testCredentials(), srv.URL, srv.Client(), nil)

	err := m.Refresh(context.Background())
	require.Error(t, err)
	assert.True(t, IsTokenError(err))
}
