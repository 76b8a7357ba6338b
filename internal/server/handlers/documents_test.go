package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsubmit/docsubmit/internal/core"
	"github.com/docsubmit/docsubmit/internal/core/document"
	"github.com/docsubmit/docsubmit/internal/core/engine"
	"github.com/docsubmit/docsubmit/internal/core/transport"
	apperrors "github.com/docsubmit/docsubmit/internal/errors"
)

type documentsFixture struct {
	handler  *DocumentsHandler
	limiter  *engine.FixedWindowLimiter
	received *atomic.Int64
	now      *time.Time
}

func newDocumentsFixture(t *testing.T, quota int, registryStatus int) documentsFixture {
	t.Helper()

	received := &atomic.Int64{}
	registry := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Add(1)
		w.WriteHeader(registryStatus)
		_, _ = w.Write([]byte(`{"value":"ok"}`))
	}))
	t.Cleanup(registry.Close)

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter, err := engine.NewFixedWindowLimiter(time.Minute, quota, engine.WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	client := transport.NewClient(registry.URL, "")
	client.HTTPClient = registry.Client()

	submitter, err := engine.NewDocumentSubmitter(limiter, document.NewJSONSerializer(), client)
	require.NoError(t, err)

	return documentsFixture{
		handler:  NewDocumentsHandler(submitter, limiter),
		limiter:  limiter,
		received: received,
		now:      &now,
	}
}

func exampleBody(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, document.Encode(&buf, document.Example(), document.FormatJSON))
	return buf.Bytes()
}

func postDocument(h *DocumentsHandler, body []byte, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/documents", bytes.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Submit(rec, req)
	return rec
}

func TestSubmitAcceptsUntilQuotaThenRateLimits(t *testing.T) {
	fixture := newDocumentsFixture(t, 2, http.StatusOK)
	body := exampleBody(t)

	for i := 0; i < 2; i++ {
		rec := postDocument(fixture.handler, body, "application/json")
		require.Equal(t, http.StatusAccepted, rec.Code)

		var resp SubmitResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, core.OutcomeAccepted, resp.Outcome)
		assert.Equal(t, "string", resp.DocID)
	}

	*fixture.now = fixture.now.Add(15 * time.Second)
	rec := postDocument(fixture.handler, body, "application/json")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "45", rec.Header().Get("Retry-After"))

	var resp SubmitResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, core.OutcomeRateLimited, resp.Outcome)
	assert.Equal(t, 45, resp.RetryAfterSeconds)

	assert.Equal(t, int64(2), fixture.received.Load())
}

func TestSubmitAcceptsYAML(t *testing.T) {
	fixture := newDocumentsFixture(t, 1, http.StatusOK)

	var buf bytes.Buffer
	require.NoError(t, document.Encode(&buf, document.Example(), document.FormatYAML))

	rec := postDocument(fixture.handler, buf.Bytes(), "application/yaml")
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestSubmitRejectsUndecodableBody(t *testing.T) {
	fixture := newDocumentsFixture(t, 1, http.StatusOK)

	rec := postDocument(fixture.handler, []byte(`{"doc_id":`), "application/json")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, apperrors.CodeInvalidInput, body.Error.Code)

	// An undecodable body never reaches the limiter.
	assert.Equal(t, 0, fixture.limiter.Snapshot().Count)
}

func TestSubmitReportsSchemaViolations(t *testing.T) {
	fixture := newDocumentsFixture(t, 1, http.StatusOK)

	doc := document.Example()
	doc.DocID = ""
	var buf bytes.Buffer
	require.NoError(t, document.Encode(&buf, doc, document.FormatJSON))

	rec := postDocument(fixture.handler, buf.Bytes(), "application/json")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, apperrors.CodeValidationFailed, body.Error.Code)
	assert.Equal(t, int64(0), fixture.received.Load())
}

func TestSubmitReportsRegistryFailure(t *testing.T) {
	fixture := newDocumentsFixture(t, 1, http.StatusServiceUnavailable)

	rec := postDocument(fixture.handler, exampleBody(t), "application/json")
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, apperrors.CodeExternalService, body.Error.Code)
}

func TestLimiterReportsWindow(t *testing.T) {
	fixture := newDocumentsFixture(t, 3, http.StatusOK)

	req := httptest.NewRequest(http.MethodGet, "/v1/limiter", nil)
	rec := httptest.NewRecorder()
	fixture.handler.Limiter(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, strings.Contains(rec.Body.String(), "window_start"))

	require.True(t, fixture.limiter.Allow())

	rec = httptest.NewRecorder()
	fixture.handler.Limiter(rec, req)

	var resp LimiterResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 3, resp.Quota)
	assert.Equal(t, "1m0s", resp.Window)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, 2, resp.Remaining)
	require.NotNil(t, resp.ResetAt)
	assert.Equal(t, fixture.now.Add(time.Minute), *resp.ResetAt)
}

func TestLimiterUnavailableWithoutState(t *testing.T) {
	handler := NewDocumentsHandler(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/limiter", nil)
	rec := httptest.NewRecorder()
	handler.Limiter(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 1, retryAfterSeconds(0))
	assert.Equal(t, 1, retryAfterSeconds(200*time.Millisecond))
	assert.Equal(t, 60, retryAfterSeconds(time.Minute))
}
