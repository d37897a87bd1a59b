package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/adityapallipati/voice-agent/internal/appointments"
	"github.com/adityapallipati/voice-agent/internal/callbacks"
	"github.com/adityapallipati/voice-agent/internal/calls"
	"github.com/adityapallipati/voice-agent/internal/config"
	"github.com/adityapallipati/voice-agent/internal/dispatch"
	"github.com/adityapallipati/voice-agent/internal/fault"
	"github.com/adityapallipati/voice-agent/internal/intent"
	"github.com/adityapallipati/voice-agent/internal/llm"
	"github.com/adityapallipati/voice-agent/internal/telephony"
)

// Classifier is the transcript classification step. Satisfied by
// *intent.Classifier.
type Classifier interface {
	Classify(ctx context.Context, transcript string) (intent.Result, error)
}

// TemplateRenderer resolves a named prompt template with variables.
type TemplateRenderer interface {
	Render(ctx context.Context, name string, vars map[string]string) (string, error)
}

// Engine runs the full inbound pipeline: track the call session, classify
// its transcript, dispatch the business action, and land the session in a
// terminal state. It also correlates provider status events for outbound
// callback calls.
type Engine struct {
	tracker      *calls.Tracker
	classifier   Classifier
	dispatcher   *dispatch.Dispatcher
	appointments *appointments.Service
	callbacks    *callbacks.Service
	sweeper      *callbacks.Sweeper
	provider     telephony.VoiceProvider
	renderer     TemplateRenderer
	completer    llm.Completer

	transferNumber string
	log            *slog.Logger
}

func NewEngine(
	tracker *calls.Tracker,
	classifier Classifier,
	dispatcher *dispatch.Dispatcher,
	appts *appointments.Service,
	cbs *callbacks.Service,
	sweeper *callbacks.Sweeper,
	provider telephony.VoiceProvider,
	renderer TemplateRenderer,
	completer llm.Completer,
	biz config.BusinessConfig,
	log *slog.Logger,
) *Engine {
	e := &Engine{
		tracker:        tracker,
		classifier:     classifier,
		dispatcher:     dispatcher,
		appointments:   appts,
		callbacks:      cbs,
		sweeper:        sweeper,
		provider:       provider,
		renderer:       renderer,
		completer:      completer,
		transferNumber: biz.TransferNumber,
		log:            log,
	}
	e.registerHandlers()
	return e
}

// ProcessRequest is one inbound call delivery from the voice provider.
type ProcessRequest struct {
	CallID     string
	Phone      string
	CustomerID string
	Transcript string
}

// ProcessResult is the pipeline outcome handed back to the webhook layer.
type ProcessResult struct {
	Call      calls.Call            `json:"call"`
	Action    dispatch.ActionResult `json:"action"`
	Duplicate bool                  `json:"duplicate"`
}

// ProcessCall runs one inbound delivery end to end. Duplicate deliveries
// are acknowledged without re-executing side effects; a delivery that died
// mid-pipeline resumes from the top, relying on the processed-keys guard to
// keep the business action exactly-once.
func (e *Engine) ProcessCall(ctx context.Context, req ProcessRequest) (ProcessResult, error) {
	begin, err := e.tracker.Begin(ctx, req.CallID, req.Phone, req.Transcript, req.CustomerID, calls.DirectionInbound)
	if err != nil {
		return ProcessResult{}, err
	}
	if begin.AlreadyProcessed {
		e.log.Info("duplicate call delivery acknowledged", "call_id", req.CallID, "status", begin.Call.Status)
		return ProcessResult{Call: begin.Call, Duplicate: true, Action: dispatch.ActionResult{Outcome: dispatch.OutcomeNoOp}}, nil
	}
	call := begin.Call

	result, err := e.classifier.Classify(ctx, call.Transcript)
	if err != nil {
		if _, ferr := e.tracker.Fail(ctx, call.CallID, err.Error()); ferr != nil {
			e.log.Error("call fail transition failed", "call_id", call.CallID, "err", ferr)
		}
		return ProcessResult{}, err
	}

	call, err = e.tracker.MarkClassified(ctx, call.CallID, string(result.Intent), result.Fields)
	if err != nil {
		return ProcessResult{}, err
	}
	e.log.Info("call classified", "call_id", call.CallID, "intent", result.Intent)

	action, dispatchErr := e.dispatcher.Dispatch(ctx, call, result.Intent, result.Fields)
	call, err = e.tracker.MarkDispatched(ctx, call.CallID)
	if err != nil {
		return ProcessResult{}, err
	}

	if dispatchErr != nil && action.Outcome == dispatch.OutcomeFailed {
		call, err = e.tracker.Fail(ctx, call.CallID, dispatchErr.Error())
	} else {
		call, err = e.tracker.Complete(ctx, call.CallID, string(action.Outcome))
	}
	if err != nil {
		return ProcessResult{}, err
	}
	return ProcessResult{Call: call, Action: action}, nil
}

// ProcessCallStatus handles a provider status event for an outbound call.
// When the call belongs to a callback, a failed call reopens that callback
// for retry.
func (e *Engine) ProcessCallStatus(ctx context.Context, providerCallID, status, transcript string) error {
	success := statusSucceeded(status)

	cb, err := e.sweeper.RecordOutboundResult(ctx, providerCallID, success, "outbound call "+status)
	if err != nil {
		return err
	}

	// Record the outbound call session alongside its callback.
	begin, err := e.tracker.Begin(ctx, providerCallID, cb.Phone, transcript, cb.CustomerID, calls.DirectionOutbound)
	if err != nil {
		return err
	}
	if begin.AlreadyProcessed {
		return nil
	}
	if success {
		_, err = e.tracker.Complete(ctx, providerCallID, "callback_delivered")
	} else {
		_, err = e.tracker.Fail(ctx, providerCallID, "outbound call "+status)
	}
	return err
}

func statusSucceeded(status string) bool {
	switch status {
	case "completed", "ended", "answered":
		return true
	default:
		return false
	}
}

// ReapStale fails call sessions stuck mid-pipeline past the staleness window
// and returns abandoned callback attempts to the retry policy.
func (e *Engine) ReapStale(ctx context.Context) (int, error) {
	reclaimed, err := e.sweeper.ReclaimStale(ctx)
	if err != nil {
		return 0, err
	}
	reaped, err := e.tracker.ReapStale(ctx)
	return reaped + reclaimed, err
}

func (e *Engine) registerHandlers() {
	e.dispatcher.Register(intent.BookAppointment, e.handleBook)
	e.dispatcher.Register(intent.Reschedule, e.handleReschedule)
	e.dispatcher.Register(intent.Cancel, e.handleCancel)
	e.dispatcher.Register(intent.Callback, e.handleCallback)
	e.dispatcher.Register(intent.HumanAgent, e.handleTransfer)
	e.dispatcher.Register(intent.GeneralQuestion, e.handleQuestion)
}

func (e *Engine) handleBook(ctx context.Context, call calls.Call, fields map[string]string) (dispatch.ActionResult, error) {
	when, err := parseTimeField(fields["requested_time"], "requested time")
	if err != nil {
		return dispatch.ActionResult{}, err
	}

	a, err := e.appointments.Book(ctx, appointments.BookRequest{
		Phone:        fieldOr(fields, "phone_number", call.Phone),
		CustomerID:   call.CustomerID,
		ServiceType:  fields["service_type"],
		ScheduledAt:  when,
		Notes:        fields["notes"],
		SourceCallID: call.CallID,
	})
	if err != nil {
		return dispatch.ActionResult{}, err
	}
	return dispatch.ActionResult{
		Outcome:       dispatch.OutcomeCompleted,
		AppointmentID: a.ID,
		SpokenReply: fmt.Sprintf("You're all set. Your %s appointment is booked for %s.",
			a.ServiceType, a.ScheduledAt.Format("Monday January 2 at 3:04 PM")),
	}, nil
}

func (e *Engine) handleReschedule(ctx context.Context, call calls.Call, fields map[string]string) (dispatch.ActionResult, error) {
	when, err := parseTimeField(fields["new_time"], "new time")
	if err != nil {
		return dispatch.ActionResult{}, err
	}

	a, err := e.appointments.Reschedule(ctx, appointments.RescheduleRequest{
		AppointmentID: fields["appointment_id"],
		Phone:         fieldOr(fields, "phone_number", call.Phone),
		NewTime:       when,
		Reason:        fields["reason"],
		SourceCallID:  call.CallID,
	})
	if err != nil {
		return dispatch.ActionResult{}, err
	}
	return dispatch.ActionResult{
		Outcome:       dispatch.OutcomeCompleted,
		AppointmentID: a.ID,
		SpokenReply: fmt.Sprintf("Done. Your %s appointment is now %s.",
			a.ServiceType, a.ScheduledAt.Format("Monday January 2 at 3:04 PM")),
	}, nil
}

func (e *Engine) handleCancel(ctx context.Context, call calls.Call, fields map[string]string) (dispatch.ActionResult, error) {
	a, err := e.appointments.Cancel(ctx, appointments.CancelRequest{
		AppointmentID: fields["appointment_id"],
		Phone:         fieldOr(fields, "phone_number", call.Phone),
		Reason:        fields["reason"],
	})
	if err != nil {
		return dispatch.ActionResult{}, err
	}
	return dispatch.ActionResult{
		Outcome:       dispatch.OutcomeCompleted,
		AppointmentID: a.ID,
		SpokenReply:   "Your appointment has been cancelled. Is there anything else I can help with?",
	}, nil
}

func (e *Engine) handleCallback(ctx context.Context, call calls.Call, fields map[string]string) (dispatch.ActionResult, error) {
	var requestedAt time.Time
	if raw := fields["requested_time"]; raw != "" {
		t, err := parseTimeField(raw, "callback time")
		if err != nil {
			return dispatch.ActionResult{}, err
		}
		requestedAt = t
	}

	cb, err := e.callbacks.Enqueue(ctx, callbacks.EnqueueRequest{
		Phone:        fieldOr(fields, "phone_number", call.Phone),
		CustomerID:   call.CustomerID,
		Purpose:      fieldOr(fields, "purpose", fieldOr(fields, "reason", "your recent call")),
		RequestedAt:  requestedAt,
		SourceCallID: call.CallID,
	})
	if err != nil {
		return dispatch.ActionResult{}, err
	}
	return dispatch.ActionResult{
		Outcome:     dispatch.OutcomeCompleted,
		CallbackID:  cb.ID,
		SpokenReply: "Got it. We'll give you a call back. Thanks for reaching out.",
	}, nil
}

func (e *Engine) handleTransfer(ctx context.Context, call calls.Call, fields map[string]string) (dispatch.ActionResult, error) {
	// Bridge the live call at the provider. The webhook response repeats the
	// number, so a provider error here degrades to an announced transfer
	// rather than failing the call.
	if err := e.provider.TransferCall(ctx, call.CallID, e.transferNumber); err != nil {
		e.log.Warn("provider transfer failed", "call_id", call.CallID, "err", err)
	}
	return dispatch.ActionResult{
		Outcome:     dispatch.OutcomeTransfer,
		TransferTo:  e.transferNumber,
		SpokenReply: "Let me connect you with a team member who can help. One moment please.",
	}, nil
}

func (e *Engine) handleQuestion(ctx context.Context, call calls.Call, fields map[string]string) (dispatch.ActionResult, error) {
	prompt, err := e.renderer.Render(ctx, "answer_question", map[string]string{"transcript": call.Transcript})
	if err == nil {
		answer, cerr := e.completer.Complete(ctx, prompt)
		if cerr == nil && answer != "" {
			return dispatch.ActionResult{Outcome: dispatch.OutcomeCompleted, SpokenReply: answer}, nil
		}
		err = cerr
	}
	e.log.Warn("question answering degraded to transfer", "call_id", call.CallID, "err", err)
	return e.handleTransfer(ctx, call, fields)
}

func parseTimeField(raw, label string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fault.Validation("%s is missing", label)
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fault.Validation("%s %q is not understood", label, raw)
	}
	return t.UTC(), nil
}

func fieldOr(fields map[string]string, key, fallback string) string {
	if v := fields[key]; v != "" {
		return v
	}
	return fallback
}
