package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.

type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
//
// IMPORTANT:
// - Audit is internal-only. Do not expose these records to callers by default.
// - Callers should treat audit logging as best-effort.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogCallProcessed records the terminal outcome of one call pipeline run.
func (s *Service) LogCallProcessed(ctx context.Context, callID, detectedIntent, outcome, appointmentID, callbackID string) error {
	return s.Append(ctx, Event{
		Type:          EventTypeCallProcessed,
		CallID:        callID,
		AppointmentID: appointmentID,
		CallbackID:    callbackID,
		Message:       detectedIntent + " -> " + outcome,
	})
}

// LogPromptChanged records a console edit to a prompt template.
func (s *Service) LogPromptChanged(ctx context.Context, actorUserID, actorRole, ip, templateName, action string) error {
	return s.Append(ctx, Event{
		Type:         EventTypePromptChanged,
		ActorUserID:  actorUserID,
		ActorRole:    actorRole,
		IPAddress:    ip,
		TemplateName: templateName,
		Message:      action,
	})
}

// LogCallbackSweep records the result of one callback sweep pass.
func (s *Service) LogCallbackSweep(ctx context.Context, actorUserID, actorRole, ip, summary string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeCallbackSwept,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		Message:     summary,
	})
}

// LogAdminAction records a console action (cancellations, reaping).
func (s *Service) LogAdminAction(ctx context.Context, actorUserID, actorRole, ip, message, metadata string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeAdminAction,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		Message:     message,
		Metadata:    metadata,
	})
}
