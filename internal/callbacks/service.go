package callbacks

import (
	"context"
	"time"

	"github.com/adityapallipati/voice-agent/internal/fault"
	"github.com/adityapallipati/voice-agent/internal/intent"

	"github.com/google/uuid"
)

const defaultDelay = 24 * time.Hour

// Service owns callback intake and lifecycle outside the sweep.
type Service struct {
	repo   Repository
	region string
	clock  func() time.Time
}

func NewService(repo Repository, region string) *Service {
	return &Service{repo: repo, region: region, clock: time.Now}
}

type EnqueueRequest struct {
	Phone        string
	CustomerID   string
	Purpose      string
	Script       string
	RequestedAt  time.Time
	SourceCallID string
}

// Enqueue records a callback promise. A zero RequestedAt defaults to one day
// out; a past RequestedAt is clamped to now so the next sweep picks it up.
func (s *Service) Enqueue(ctx context.Context, req EnqueueRequest) (Callback, error) {
	now := s.clock().UTC()

	phone, ok := intent.NormalizePhone(req.Phone, s.region)
	if !ok {
		return Callback{}, fault.Validation("phone number %q is not dialable", req.Phone)
	}
	if req.Purpose == "" {
		req.Purpose = "your recent call"
	}

	requestedAt := req.RequestedAt.UTC()
	if requestedAt.IsZero() {
		requestedAt = now.Add(defaultDelay)
	}
	if requestedAt.Before(now) {
		requestedAt = now
	}

	cb := Callback{
		ID:            uuid.NewString(),
		Phone:         phone,
		CustomerID:    req.CustomerID,
		Purpose:       req.Purpose,
		Script:        req.Script,
		RequestedAt:   requestedAt,
		Status:        StatusPending,
		NextAttemptAt: requestedAt,
		SourceCallID:  req.SourceCallID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Insert(ctx, cb); err != nil {
		return Callback{}, err
	}
	return cb, nil
}

// Cancel stops a callback that has not yet run to completion.
func (s *Service) Cancel(ctx context.Context, id string) (Callback, error) {
	cb, err := s.repo.Get(ctx, id)
	if err != nil {
		return Callback{}, err
	}
	if cb.Status.Terminal() {
		return Callback{}, fault.Validation("callback %s is already %s", id, cb.Status)
	}

	cb.Status = StatusCancelled
	cb.UpdatedAt = s.clock().UTC()
	if err := s.repo.Update(ctx, cb); err != nil {
		return Callback{}, err
	}
	return cb, nil
}

func (s *Service) Get(ctx context.Context, id string) (Callback, error) {
	if id == "" {
		return Callback{}, fault.Validation("callback id is required")
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Callback, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 100
	}
	return s.repo.List(ctx, f)
}
