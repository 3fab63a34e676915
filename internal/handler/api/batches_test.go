package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/vor/internal/address"
	"github.com/dukerupert/vor/internal/handler/api"
	"github.com/dukerupert/vor/internal/jobs"
)

func upperMock() *address.MockValidator {
	mock := address.NewMockValidator()
	mock.ValidateFunc = func(ctx context.Context, q address.Query) (*address.Candidate, error) {
		if strings.HasPrefix(q.Street, "miss") {
			return nil, nil
		}
		return &address.Candidate{
			Street:       strings.ToUpper(q.Street),
			Confirmation: "Y",
		}, nil
	}
	return mock
}

func TestBatchHandler_Process(t *testing.T) {
	h := api.NewBatchHandler(upperMock(), jobs.NewMockStore(), nil, nil)

	body := `{"include_audit":true,"records":[{"address1":"123 main st"},{"address1":"miss 9 oak ave"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/batches", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.Process(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp jobs.StandardizeBatchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	require.Len(t, resp.Records, 2)
	assert.Equal(t, "123 MAIN ST", resp.Records[0].Address1)
	assert.Equal(t, "address1", resp.Records[0].Attempt)
	assert.Equal(t, "MISS 9 OAK AVE", resp.Records[1].Address1)
	assert.Equal(t, "none", resp.Records[1].Attempt)

	assert.Equal(t, 2, resp.Counts.Total)
	assert.Equal(t, 1, resp.Counts.ValidatedAddress1)
	assert.Equal(t, 1, resp.Counts.Fallback)
}

func TestBatchHandler_Process_AuditOff(t *testing.T) {
	h := api.NewBatchHandler(upperMock(), jobs.NewMockStore(), nil, nil)

	body := `{"records":[{"address1":"123 main st"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/batches", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.Process(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp jobs.StandardizeBatchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Records, 1)
	assert.Empty(t, resp.Records[0].Attempt)
	assert.Empty(t, resp.Records[0].Confirmation)
}

func TestBatchHandler_Process_RejectsEmptyBatch(t *testing.T) {
	h := api.NewBatchHandler(upperMock(), jobs.NewMockStore(), nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/batches", strings.NewReader(`{"records":[]}`))
	w := httptest.NewRecorder()

	h.Process(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBatchHandler_EnqueueAndGet(t *testing.T) {
	store := jobs.NewMockStore()
	h := api.NewBatchHandler(upperMock(), store, nil, nil)

	body := `{"include_audit":true,"records":[{"address1":"123 main st"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/batches/async", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.Enqueue(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)

	var enqueued api.BatchJobResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &enqueued))
	assert.Equal(t, jobs.StatusPending, enqueued.Status)
	assert.True(t, enqueued.IncludeAudit)
	require.NotEqual(t, uuid.Nil, enqueued.ID)

	// Pending job reports status only.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/batches/"+enqueued.ID.String(), nil)
	req.SetPathValue("id", enqueued.ID.String())
	w = httptest.NewRecorder()

	h.Get(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var got api.BatchJobResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, enqueued.ID, got.ID)
	assert.Equal(t, jobs.StatusPending, got.Status)
	assert.Nil(t, got.Counts)
	assert.Empty(t, got.Records)

	// Once completed, records and counts come back.
	result, err := json.Marshal(jobs.StandardizeBatchResult{
		Records: []jobs.BatchRecord{{Address1: "123 MAIN ST", Attempt: "address1", Confirmation: "Y"}},
		Counts:  jobs.Counts{Total: 1, ValidatedAddress1: 1},
	})
	require.NoError(t, err)
	require.NoError(t, store.Complete(context.Background(), enqueued.ID, result, jobs.Counts{Total: 1, ValidatedAddress1: 1}))

	w = httptest.NewRecorder()
	h.Get(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, jobs.StatusCompleted, got.Status)
	require.NotNil(t, got.Counts)
	assert.Equal(t, 1, got.Counts.Total)
	require.Len(t, got.Records, 1)
	assert.Equal(t, "123 MAIN ST", got.Records[0].Address1)
}

func TestBatchHandler_Get_InvalidID(t *testing.T) {
	h := api.NewBatchHandler(upperMock(), jobs.NewMockStore(), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/batches/not-a-uuid", nil)
	req.SetPathValue("id", "not-a-uuid")
	w := httptest.NewRecorder()

	h.Get(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBatchHandler_Get_NotFound(t *testing.T) {
	h := api.NewBatchHandler(upperMock(), jobs.NewMockStore(), nil, nil)

	id := uuid.New().String()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/batches/"+id, nil)
	req.SetPathValue("id", id)
	w := httptest.NewRecorder()

	h.Get(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
