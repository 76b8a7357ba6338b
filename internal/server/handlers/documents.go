package handlers

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/docsubmit/docsubmit/internal/core"
	"github.com/docsubmit/docsubmit/internal/core/document"
	apperrors "github.com/docsubmit/docsubmit/internal/errors"
)

// maxDocumentBytes bounds request bodies accepted by POST /v1/documents.
const maxDocumentBytes = 1 << 20

// Submitter is the subset of engine.DocumentSubmitter the API needs.
type Submitter interface {
	Submit(ctx context.Context, doc *core.Document) (core.SubmitOutcome, error)
}

// LimiterState exposes the limiter window for the API.
type LimiterState interface {
	Snapshot() core.WindowState
	RetryAfter() time.Duration
}

// SubmitResponse is the body returned by POST /v1/documents.
type SubmitResponse struct {
	Outcome           core.SubmitOutcome `json:"outcome"`
	DocID             string             `json:"doc_id,omitempty"`
	RetryAfterSeconds int                `json:"retry_after_seconds,omitempty"`
}

// LimiterResponse is the body returned by GET /v1/limiter.
type LimiterResponse struct {
	Quota       int        `json:"quota"`
	Window      string     `json:"window"`
	Count       int        `json:"count"`
	Remaining   int        `json:"remaining"`
	WindowStart *time.Time `json:"window_start,omitempty"`
	ResetAt     *time.Time `json:"reset_at,omitempty"`
}

// DocumentsHandler serves the submission API.
type DocumentsHandler struct {
	submitter Submitter
	limiter   LimiterState
}

// NewDocumentsHandler builds the handler. limiter may be nil, in which case
// GET /v1/limiter reports SERVICE_UNAVAILABLE and 429 replies omit Retry-After.
func NewDocumentsHandler(submitter Submitter, limiter LimiterState) *DocumentsHandler {
	return &DocumentsHandler{submitter: submitter, limiter: limiter}
}

// Submit decodes a document from the request body and submits it.
func (h *DocumentsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	format := document.FormatJSON
	if contentType := r.Header.Get("Content-Type"); strings.Contains(contentType, "yaml") {
		format = document.FormatYAML
	}

	doc, err := document.Decode(http.MaxBytesReader(w, r.Body, maxDocumentBytes), format)
	if err != nil {
		apperrors.RespondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "Request body is not a valid document"))
		return
	}

	outcome, err := h.submitter.Submit(r.Context(), doc)
	if err != nil {
		apperrors.RespondWithError(w, r, apperrors.FromSubmitError(r.Context(), err))
		return
	}

	response := SubmitResponse{Outcome: outcome, DocID: doc.DocID}
	status := http.StatusAccepted
	if outcome == core.OutcomeRateLimited {
		status = http.StatusTooManyRequests
		if h.limiter != nil {
			seconds := retryAfterSeconds(h.limiter.RetryAfter())
			response.RetryAfterSeconds = seconds
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
		}
	}

	writeJSON(w, status, response)
}

// Limiter reports the current window.
func (h *DocumentsHandler) Limiter(w http.ResponseWriter, r *http.Request) {
	if h.limiter == nil {
		apperrors.RespondWithError(w, r, apperrors.NewServiceUnavailableError("Rate limiter state is not available"))
		return
	}

	state := h.limiter.Snapshot()
	response := LimiterResponse{
		Quota:     state.Quota,
		Window:    state.Window.String(),
		Count:     state.Count,
		Remaining: state.Remaining(),
	}
	if !state.WindowStart.IsZero() {
		start := state.WindowStart.UTC()
		reset := state.ResetAt().UTC()
		response.WindowStart = &start
		response.ResetAt = &reset
	}

	writeJSON(w, http.StatusOK, response)
}

func retryAfterSeconds(wait time.Duration) int {
	if wait <= 0 {
		return 1
	}
	return int(math.Ceil(wait.Seconds()))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
