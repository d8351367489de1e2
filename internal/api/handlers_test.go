package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/iterable-bridge/internal/bridge"
	"github.com/ignite/iterable-bridge/internal/iterable"
)

// newTestRouter wires the full stack against a stub vendor backend. The stub
// handler sees every outbound Iterable call and picks the response per path.
func newTestRouter(t *testing.T, vendor http.HandlerFunc) http.Handler {
	t.Helper()
	if vendor == nil {
		vendor = func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(iterable.APIResponse{Code: iterable.CodeSuccess})
		}
	}
	backend := httptest.NewServer(vendor)
	t.Cleanup(backend.Close)

	processor := bridge.NewProcessor(iterable.Config{BaseURL: backend.URL, MaxRetries: 1})
	return NewHandlers(processor).Routes()
}

func postJSON(t *testing.T, router http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

const eventBatchBody = `{
	"id": "a2b2da10-5f86-4f29-a1eb-54f798e0e4cd",
	"account": {"settings": {"apiKey": "test-key"}},
	"user_identities": [{"kind": "email", "value": "a@example.com"}],
	"events": [{"kind": "custom_event", "name": "tap", "timestamp_ms": 1507657706679}]
}`

func TestHandleEventBatch(t *testing.T) {
	var paths []string
	router := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		json.NewEncoder(w).Encode(iterable.APIResponse{Code: iterable.CodeSuccess})
	})

	rec := postJSON(t, router, "/v1/events", eventBatchBody)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp EventBatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "a2b2da10-5f86-4f29-a1eb-54f798e0e4cd", resp.ID)

	assert.Equal(t, []string{"/api/users/update", "/api/events/track"}, paths)
}

func TestHandleEventBatchInvalidJSON(t *testing.T) {
	router := newTestRouter(t, nil)
	rec := postJSON(t, router, "/v1/events", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleEventBatchMissingAPIKey(t *testing.T) {
	router := newTestRouter(t, nil)
	rec := postJSON(t, router, "/v1/events", `{"account":{"settings":{}}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandleEventBatchVendorRejection(t *testing.T) {
	router := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(iterable.APIResponse{Code: "BadApiKey", Message: "nope"})
	})

	rec := postJSON(t, router, "/v1/events", eventBatchBody)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

const audienceBatchBody = `{
	"id": "c56d16e7-ab0e-4a4e-9517-6c52af2b8a24",
	"account": {"settings": {"apiKey": "test-key"}},
	"profiles": [{
		"identities": [{"kind": "email", "value": "a@example.com"}],
		"added_audiences": [{"name": "buyers", "settings": {"listId": "1"}}],
		"removed_audiences": [{"name": "trials", "settings": {"listId": "2"}}]
	}]
}`

func TestHandleAudienceBatch(t *testing.T) {
	router := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		resp := iterable.ListResponse{SuccessCount: 1}
		resp.Code = iterable.CodeSuccess
		json.NewEncoder(w).Encode(resp)
	})

	rec := postJSON(t, router, "/v1/audiences", audienceBatchBody)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AudienceBatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, ListCallResult{ListID: 1, Op: "subscribe"}, resp.Results[0])
	assert.Equal(t, ListCallResult{ListID: 2, Op: "unsubscribe"}, resp.Results[1])
}

func TestHandleAudienceBatchPartialFailure(t *testing.T) {
	router := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		resp := iterable.ListResponse{}
		resp.Code = iterable.CodeSuccess
		if strings.HasSuffix(r.URL.Path, "/unsubscribe") {
			resp.FailCount = 1
		} else {
			resp.SuccessCount = 1
		}
		json.NewEncoder(w).Encode(resp)
	})

	rec := postJSON(t, router, "/v1/audiences", audienceBatchBody)
	require.Equal(t, http.StatusOK, rec.Code, "partial failure is still a 200")

	var resp AudienceBatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "partial", resp.Status)
	assert.Empty(t, resp.Results[0].Error)
	assert.NotEmpty(t, resp.Results[1].Error)
}

func TestHandleAudienceBatchInvalidListID(t *testing.T) {
	router := newTestRouter(t, nil)
	body := `{
		"account": {"settings": {"apiKey": "test-key"}},
		"profiles": [{
			"identities": [{"kind": "email", "value": "a@example.com"}],
			"added_audiences": [{"name": "buyers", "settings": {"listId": "abc"}}]
		}]
	}`

	rec := postJSON(t, router, "/v1/audiences", body)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	router := newTestRouter(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
