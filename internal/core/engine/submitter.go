package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docsubmit/docsubmit/internal/core"
	"github.com/docsubmit/docsubmit/internal/core/transport"
)

// ErrNilDocument is returned when Submit is called without a document.
var ErrNilDocument = errors.New("document is required")

// maxJournalResponse caps the registry response kept on a journal entry.
const maxJournalResponse = 1024

// Serializer converts a document into a wire payload.
type Serializer interface {
	Serialize(doc *core.Document) ([]byte, error)
}

// Sender delivers a serialized payload to the registry.
type Sender interface {
	Send(ctx context.Context, payload []byte) (*transport.Result, error)
}

// Journal records submission attempts.
type Journal interface {
	RecordSubmission(ctx context.Context, submission *core.Submission) error
}

// SubmitterOption customizes a DocumentSubmitter.
type SubmitterOption func(*DocumentSubmitter)

// WithJournal records every attempt, including rate limited ones.
func WithJournal(journal Journal) SubmitterOption {
	return func(s *DocumentSubmitter) {
		s.journal = journal
	}
}

// WithLogger sets the logger used for per-attempt debug output.
func WithLogger(logger *logging.Logger) SubmitterOption {
	return func(s *DocumentSubmitter) {
		s.logger = logger
	}
}

// WithObserver registers a callback invoked after each attempt completes.
func WithObserver(observe func(*core.Submission)) SubmitterOption {
	return func(s *DocumentSubmitter) {
		s.observe = observe
	}
}

// WithSubmitClock overrides the clock used for journal timestamps.
func WithSubmitClock(clock func() time.Time) SubmitterOption {
	return func(s *DocumentSubmitter) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// DocumentSubmitter gates document submissions behind a rate limiter.
type DocumentSubmitter struct {
	limiter    Limiter
	serializer Serializer
	sender     Sender
	journal    Journal
	logger     *logging.Logger
	observe    func(*core.Submission)
	clock      func() time.Time
}

// NewDocumentSubmitter wires a limiter, serializer and sender together.
func NewDocumentSubmitter(limiter Limiter, serializer Serializer, sender Sender, opts ...SubmitterOption) (*DocumentSubmitter, error) {
	switch {
	case limiter == nil:
		return nil, fmt.Errorf("%w: limiter is required", ErrInvalidConfiguration)
	case serializer == nil:
		return nil, fmt.Errorf("%w: serializer is required", ErrInvalidConfiguration)
	case sender == nil:
		return nil, fmt.Errorf("%w: sender is required", ErrInvalidConfiguration)
	}

	s := &DocumentSubmitter{
		limiter:    limiter,
		serializer: serializer,
		sender:     sender,
		clock:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Limiter returns the limiter guarding this submitter.
func (s *DocumentSubmitter) Limiter() Limiter {
	return s.limiter
}

// Submit asks the limiter for admission and, when admitted, serializes and
// sends the document. A denied call returns OutcomeRateLimited and never
// reaches the serializer or the sender. Serialization and delivery failures
// are returned as errors alongside OutcomeAccepted.
func (s *DocumentSubmitter) Submit(ctx context.Context, doc *core.Document) (core.SubmitOutcome, error) {
	if doc == nil {
		return "", ErrNilDocument
	}
	if ctx == nil {
		ctx = context.Background()
	}

	record := &core.Submission{
		ID:          uuid.New().String(),
		DocID:       doc.DocID,
		DocType:     doc.DocType,
		RequestedAt: s.clock(),
	}

	if !s.limiter.Allow() {
		record.Outcome = core.OutcomeRateLimited
		s.complete(ctx, record)
		return core.OutcomeRateLimited, nil
	}
	record.Outcome = core.OutcomeAccepted

	payload, err := s.serializer.Serialize(doc)
	if err != nil {
		err = fmt.Errorf("serialize document %s: %w", doc.DocID, err)
		record.Error = err.Error()
		s.complete(ctx, record)
		return core.OutcomeAccepted, err
	}
	record.PayloadBytes = len(payload)

	result, err := s.sender.Send(ctx, payload)
	if result != nil {
		record.StatusCode = result.StatusCode
		record.Duration = result.Duration
		record.Response = truncateResponse(result.Body)
	}
	if err != nil {
		var statusErr *transport.StatusError
		if errors.As(err, &statusErr) {
			record.StatusCode = statusErr.StatusCode
		}
		err = fmt.Errorf("send document %s: %w", doc.DocID, err)
		record.Error = err.Error()
		s.complete(ctx, record)
		return core.OutcomeAccepted, err
	}

	s.complete(ctx, record)
	return core.OutcomeAccepted, nil
}

func (s *DocumentSubmitter) complete(ctx context.Context, record *core.Submission) {
	record.CompletedAt = s.clock()

	if s.logger != nil {
		s.logger.Debug("Submission attempt",
			zap.String("submission_id", record.ID),
			zap.String("doc_id", record.DocID),
			zap.String("outcome", string(record.Outcome)),
			zap.Int("status_code", record.StatusCode),
			zap.String("error", record.Error))
	}

	if s.journal != nil {
		if err := s.journal.RecordSubmission(context.WithoutCancel(ctx), record); err != nil && s.logger != nil {
			s.logger.Warn("Failed to record submission",
				zap.String("submission_id", record.ID),
				zap.Error(err))
		}
	}

	if s.observe != nil {
		s.observe(record)
	}
}

func truncateResponse(body []byte) string {
	return transport.Truncate(string(body), maxJournalResponse)
}
