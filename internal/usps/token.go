package usps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// Credentials holds the OAuth client credentials for the USPS APIs.
// Immutable once handed to a TokenManager.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// complete reports whether every credential field is present.
func (c Credentials) complete() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
}

// TokenManager exchanges a refresh token for access tokens and caches
// the current one. No expiry is tracked: refresh is reactive, driven by
// the client observing an unauthorized response downstream.
//
// The cached token is shared across all calls on one client instance.
// A mutex serializes refresh-and-read so concurrent callers see either
// the old or the new token, never a torn refresh.
type TokenManager struct {
	creds      Credentials
	tokenURL   string
	httpClient *http.Client
	logger     *slog.Logger

	mu    sync.Mutex
	token string
}

// NewTokenManager creates a token manager for the given credentials.
func NewTokenManager(creds Credentials, tokenURL string, httpClient *http.Client, logger *slog.Logger) *TokenManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenManager{
		creds:      creds,
		tokenURL:   tokenURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// AuthHeader returns a bearer Authorization value, performing an
// initial refresh when no token is cached yet.
func (m *TokenManager) AuthHeader(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token == "" {
		if err := m.refreshLocked(ctx); err != nil {
			return "", err
		}
	}
	return "Bearer " + m.token, nil
}

// Refresh forces a token exchange, replacing the cached token.
// Called by the client after an unauthorized response.
func (m *TokenManager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshLocked(ctx)
}

// refreshLocked performs the refresh_token grant. Caller holds m.mu.
func (m *TokenManager) refreshLocked(ctx context.Context) error {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", m.creds.ClientID)
	form.Set("client_secret", m.creds.ClientSecret)
	form.Set("refresh_token", m.creds.RefreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return &TokenError{Message: "failed to create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return &TokenError{Message: "exchange request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TokenError{StatusCode: resp.StatusCode, Message: "failed to read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TokenError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return &TokenError{StatusCode: resp.StatusCode, Message: "malformed token response", Err: err}
	}
	if payload.AccessToken == "" {
		return &TokenError{StatusCode: resp.StatusCode, Message: "token response missing access_token"}
	}

	m.token = payload.AccessToken
	m.logger.Debug("access token refreshed")
	return nil
}

// String implements fmt.Stringer without exposing secrets.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{ClientID: %s}", c.ClientID)
}
