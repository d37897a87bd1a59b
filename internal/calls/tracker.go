package calls

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/adityapallipati/voice-agent/internal/fault"
)

// Tracker correlates webhook deliveries and outbound completions to a single
// logical call and deduplicates repeated deliveries.
type Tracker struct {
	repo  Repository
	clock func() time.Time
	// staleness bounds how long a call may sit in received/classified
	// before the reaper fails it.
	staleness time.Duration
}

func NewTracker(repo Repository, staleness time.Duration) *Tracker {
	if staleness <= 0 {
		staleness = 5 * time.Minute
	}
	return &Tracker{repo: repo, clock: time.Now, staleness: staleness}
}

// BeginResult reports how an inbound delivery was received.
type BeginResult struct {
	Call Call
	// AlreadyProcessed is true when the call was already dispatched or
	// finished; the delivery should be acknowledged without reprocessing.
	AlreadyProcessed bool
}

// Begin registers an inbound delivery. Receipt is idempotent: a webhook for
// an already-dispatched or terminal call is acknowledged immediately.
func (t *Tracker) Begin(ctx context.Context, callID, phone, transcript, customerID string, direction Direction) (BeginResult, error) {
	if callID == "" {
		return BeginResult{}, fault.Validation("call_id is required")
	}

	now := t.clock().UTC()
	c := Call{
		CallID:     callID,
		Direction:  direction,
		Phone:      phone,
		CustomerID: customerID,
		Transcript: transcript,
		Status:     StatusReceived,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err := t.repo.Insert(ctx, c)
	if err == nil {
		return BeginResult{Call: c}, nil
	}
	if !errors.Is(err, fault.ErrConflict) {
		return BeginResult{}, err
	}

	// Duplicate delivery: decide from the existing row.
	existing, getErr := t.repo.Get(ctx, callID)
	if getErr != nil {
		return BeginResult{}, getErr
	}
	if existing.Status == StatusDispatched || existing.Status.Terminal() {
		return BeginResult{Call: existing, AlreadyProcessed: true}, nil
	}
	// Still mid-pipeline (received/classified): the caller resumes processing.
	return BeginResult{Call: existing}, nil
}

// MarkClassified records the classification result on the call.
func (t *Tracker) MarkClassified(ctx context.Context, callID, detectedIntent string, fields map[string]string) (Call, error) {
	return t.repo.UpdateStatus(ctx, callID, []Status{StatusReceived, StatusClassified}, StatusClassified, func(c *Call) {
		c.Intent = detectedIntent
		c.Fields = fields
		c.UpdatedAt = t.clock().UTC()
	})
}

// MarkDispatched records that exactly one handler ran for the call.
func (t *Tracker) MarkDispatched(ctx context.Context, callID string) (Call, error) {
	return t.repo.UpdateStatus(ctx, callID, []Status{StatusClassified}, StatusDispatched, func(c *Call) {
		c.UpdatedAt = t.clock().UTC()
	})
}

// Complete finishes the call with an outcome summary. Any non-terminal stage
// may complete: inbound calls arrive here via dispatched, while outbound
// sessions are recorded only after the provider reports the result and so
// finish straight from received.
func (t *Tracker) Complete(ctx context.Context, callID, outcome string) (Call, error) {
	return t.repo.UpdateStatus(ctx, callID, []Status{StatusReceived, StatusClassified, StatusDispatched}, StatusCompleted, func(c *Call) {
		c.Outcome = outcome
		c.UpdatedAt = t.clock().UTC()
	})
}

// Fail terminates the call after an unrecoverable pipeline error.
func (t *Tracker) Fail(ctx context.Context, callID, reason string) (Call, error) {
	return t.repo.UpdateStatus(ctx, callID, []Status{StatusReceived, StatusClassified, StatusDispatched}, StatusFailed, func(c *Call) {
		c.Outcome = reason
		c.UpdatedAt = t.clock().UTC()
	})
}

// ReapStale fails calls stuck in received/classified beyond the staleness
// window so they never silently hold resources. Run on a timer.
func (t *Tracker) ReapStale(ctx context.Context) (int, error) {
	cutoff := t.clock().UTC().Add(-t.staleness)
	n, err := t.repo.FailStale(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.Warn("reaped stale call sessions", "count", n, "cutoff", cutoff)
	}
	return n, nil
}

// Get returns one call by provider-issued ID.
func (t *Tracker) Get(ctx context.Context, callID string) (Call, error) {
	if callID == "" {
		return Call{}, fault.Validation("call_id is required")
	}
	return t.repo.Get(ctx, callID)
}

// List returns calls matching the filter.
func (t *Tracker) List(ctx context.Context, f ListFilter) ([]Call, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 100
	}
	return t.repo.List(ctx, f)
}
