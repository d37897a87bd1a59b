package orchestrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/adityapallipati/voice-agent/internal/appointments"
	"github.com/adityapallipati/voice-agent/internal/calendar"
	"github.com/adityapallipati/voice-agent/internal/callbacks"
	"github.com/adityapallipati/voice-agent/internal/calls"
	"github.com/adityapallipati/voice-agent/internal/config"
	"github.com/adityapallipati/voice-agent/internal/dispatch"
	"github.com/adityapallipati/voice-agent/internal/fault"
	"github.com/adityapallipati/voice-agent/internal/intent"
	"github.com/adityapallipati/voice-agent/internal/llm"
	"github.com/adityapallipati/voice-agent/internal/notify"
	"github.com/adityapallipati/voice-agent/internal/telephony"
)

// stubClassifier resolves transcripts from a fixed table.
type stubClassifier struct {
	results map[string]intent.Result
}

func (c stubClassifier) Classify(ctx context.Context, transcript string) (intent.Result, error) {
	if transcript == "" {
		return intent.Result{}, fault.Validation("transcript is empty")
	}
	if r, ok := c.results[transcript]; ok {
		return r, nil
	}
	return intent.Result{Intent: intent.Unknown, Fields: map[string]string{}}, nil
}

type fakeCalendar struct{}

func (fakeCalendar) CreateEvent(ctx context.Context, ev calendar.Event) (string, error) {
	return "evt-1", nil
}

type fakeProvider struct {
	err       error
	next      int
	transfers []string
}

func (p *fakeProvider) Name() string { return "fake" }
func (p *fakeProvider) InitiateCall(ctx context.Context, req telephony.OutboundCallRequest) (telephony.OutboundCallResult, error) {
	if p.err != nil {
		return telephony.OutboundCallResult{}, p.err
	}
	p.next++
	return telephony.OutboundCallResult{ProviderCallID: "prov-" + strconv.Itoa(p.next), Status: "queued"}, nil
}
func (p *fakeProvider) TransferCall(ctx context.Context, providerCallID, toNumber string) error {
	p.transfers = append(p.transfers, providerCallID+"->"+toNumber)
	return nil
}

type staticRenderer struct{ text string }

func (r staticRenderer) Render(ctx context.Context, name string, vars map[string]string) (string, error) {
	return r.text, nil
}

type testEnv struct {
	engine   *Engine
	apptRepo *appointments.MemoryRepo
	cbRepo   *callbacks.MemoryRepo
	callRepo *calls.MemoryRepo
	provider *fakeProvider
	classMap map[string]intent.Result
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	apptRepo := appointments.NewMemoryRepo()
	cbRepo := callbacks.NewMemoryRepo()
	callRepo := calls.NewMemoryRepo()
	provider := &fakeProvider{}

	apptSvc := appointments.NewService(apptRepo, fakeCalendar{}, notify.NotifierFunc(
		func(ctx context.Context, to, msg string) error { return nil }))
	cbSvc := callbacks.NewService(cbRepo, "US")

	classMap := map[string]intent.Result{}
	completer := llm.CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		return "Our office is open nine to five on weekdays.", nil
	})

	sweeper := callbacks.NewSweeper(cbRepo, staticRenderer{text: "hello"}, completer, provider,
		config.SchedulerConfig{MaxAttempts: 3, BackoffBase: 15 * time.Minute, BackoffCap: 24 * time.Hour, CallTimeout: time.Second},
		config.BusinessConfig{OutboundNumber: "+15559990000"}, log)
	tracker := calls.NewTracker(callRepo, 5*time.Minute)
	dispatcher := dispatch.NewDispatcher(dispatch.NewMemoryKeyStore())

	engine := NewEngine(tracker, stubClassifier{results: classMap}, dispatcher,
		apptSvc, cbSvc, sweeper, provider, staticRenderer{text: "answer the question"}, completer,
		config.BusinessConfig{TransferNumber: "+15558880000"}, log)

	return &testEnv{
		engine: engine, apptRepo: apptRepo, cbRepo: cbRepo,
		callRepo: callRepo, provider: provider, classMap: classMap,
	}
}

func futureTime(d time.Duration) string {
	return time.Now().UTC().Add(d).Truncate(time.Second).Format(time.RFC3339)
}

func TestProcessCallBooksAppointment(t *testing.T) {
	env := newTestEnv(t)
	env.classMap["I want a haircut tomorrow"] = intent.Result{
		Intent: intent.BookAppointment,
		Fields: map[string]string{"service_type": "haircut", "requested_time": futureTime(24 * time.Hour)},
	}

	res, err := env.engine.ProcessCall(context.Background(), ProcessRequest{
		CallID: "call-1", Phone: "+15551234567", Transcript: "I want a haircut tomorrow",
	})
	if err != nil {
		t.Fatalf("ProcessCall: %v", err)
	}
	if res.Action.Outcome != dispatch.OutcomeCompleted {
		t.Errorf("outcome = %s, want completed", res.Action.Outcome)
	}
	if res.Action.AppointmentID == "" {
		t.Error("no appointment id returned")
	}
	if res.Call.Status != calls.StatusCompleted {
		t.Errorf("call status = %s, want completed", res.Call.Status)
	}

	a, err := env.apptRepo.Get(context.Background(), res.Action.AppointmentID)
	if err != nil {
		t.Fatalf("appointment not stored: %v", err)
	}
	if a.SourceCallID != "call-1" {
		t.Errorf("source call id = %q", a.SourceCallID)
	}
}

func TestDuplicateDeliveryDoesNotDoubleBook(t *testing.T) {
	env := newTestEnv(t)
	transcript := "book me in"
	env.classMap[transcript] = intent.Result{
		Intent: intent.BookAppointment,
		Fields: map[string]string{"service_type": "haircut", "requested_time": futureTime(24 * time.Hour)},
	}
	req := ProcessRequest{CallID: "call-1", Phone: "+15551234567", Transcript: transcript}

	if _, err := env.engine.ProcessCall(context.Background(), req); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	res, err := env.engine.ProcessCall(context.Background(), req)
	if err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if !res.Duplicate || res.Action.Outcome != dispatch.OutcomeNoOp {
		t.Errorf("second delivery = %+v, want duplicate noop", res)
	}

	got, _ := env.apptRepo.List(context.Background(), appointments.ListFilter{Limit: 10})
	if len(got) != 1 {
		t.Fatalf("appointments = %d, want 1", len(got))
	}
}

func TestRescheduleSupersedesAcrossCalls(t *testing.T) {
	env := newTestEnv(t)
	env.classMap["book"] = intent.Result{
		Intent: intent.BookAppointment,
		Fields: map[string]string{"service_type": "haircut", "requested_time": futureTime(24 * time.Hour)},
	}
	env.classMap["move it"] = intent.Result{
		Intent: intent.Reschedule,
		Fields: map[string]string{"new_time": futureTime(48 * time.Hour)},
	}

	first, err := env.engine.ProcessCall(context.Background(), ProcessRequest{
		CallID: "call-1", Phone: "+15551234567", Transcript: "book",
	})
	if err != nil {
		t.Fatalf("booking call: %v", err)
	}
	second, err := env.engine.ProcessCall(context.Background(), ProcessRequest{
		CallID: "call-2", Phone: "+15551234567", Transcript: "move it",
	})
	if err != nil {
		t.Fatalf("reschedule call: %v", err)
	}

	orig, _ := env.apptRepo.Get(context.Background(), first.Action.AppointmentID)
	if orig.Status != appointments.StatusSuperseded {
		t.Errorf("original status = %s, want superseded", orig.Status)
	}
	moved, _ := env.apptRepo.Get(context.Background(), second.Action.AppointmentID)
	if moved.Status != appointments.StatusRescheduled {
		t.Errorf("replacement status = %s, want rescheduled", moved.Status)
	}
	if moved.RescheduledFrom != orig.ID {
		t.Errorf("replacement references %q, want %q", moved.RescheduledFrom, orig.ID)
	}
}

func TestUnknownIntentTransfers(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.engine.ProcessCall(context.Background(), ProcessRequest{
		CallID: "call-1", Phone: "+15551234567", Transcript: "mumble mumble",
	})
	if err != nil {
		t.Fatalf("ProcessCall: %v", err)
	}
	if res.Action.Outcome != dispatch.OutcomeTransfer {
		t.Errorf("outcome = %s, want transfer", res.Action.Outcome)
	}
	if res.Action.TransferTo != "+15558880000" {
		t.Errorf("transfer to = %q", res.Action.TransferTo)
	}
	if len(env.provider.transfers) != 1 || env.provider.transfers[0] != "call-1->+15558880000" {
		t.Errorf("provider transfers = %v, want call bridged to the transfer number", env.provider.transfers)
	}
}

func TestGeneralQuestionAnswered(t *testing.T) {
	env := newTestEnv(t)
	env.classMap["what are your hours"] = intent.Result{Intent: intent.GeneralQuestion, Fields: map[string]string{}}

	res, err := env.engine.ProcessCall(context.Background(), ProcessRequest{
		CallID: "call-1", Phone: "+15551234567", Transcript: "what are your hours",
	})
	if err != nil {
		t.Fatalf("ProcessCall: %v", err)
	}
	if res.Action.Outcome != dispatch.OutcomeCompleted {
		t.Errorf("outcome = %s", res.Action.Outcome)
	}
	if res.Action.SpokenReply != "Our office is open nine to five on weekdays." {
		t.Errorf("reply = %q", res.Action.SpokenReply)
	}
}

func TestMissingBookingTimeAsksForClarification(t *testing.T) {
	env := newTestEnv(t)
	env.classMap["book something"] = intent.Result{
		Intent: intent.BookAppointment,
		Fields: map[string]string{"service_type": "haircut"},
	}

	res, err := env.engine.ProcessCall(context.Background(), ProcessRequest{
		CallID: "call-1", Phone: "+15551234567", Transcript: "book something",
	})
	if err != nil {
		t.Fatalf("ProcessCall: %v", err)
	}
	if res.Action.Outcome != dispatch.OutcomeClarify {
		t.Errorf("outcome = %s, want clarify", res.Action.Outcome)
	}
	if res.Call.Status != calls.StatusCompleted {
		t.Errorf("call status = %s, clarification still completes the session", res.Call.Status)
	}
}

func TestEmptyTranscriptFailsSession(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.ProcessCall(context.Background(), ProcessRequest{
		CallID: "call-1", Phone: "+15551234567", Transcript: "",
	})
	if !errors.Is(err, fault.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}

	c, gerr := env.callRepo.Get(context.Background(), "call-1")
	if gerr != nil {
		t.Fatalf("Get call: %v", gerr)
	}
	if c.Status != calls.StatusFailed {
		t.Errorf("call status = %s, want failed", c.Status)
	}
}

func TestCallbackRequestEnqueuedAndFailedCallReopens(t *testing.T) {
	env := newTestEnv(t)
	env.classMap["call me back"] = intent.Result{
		Intent: intent.Callback,
		Fields: map[string]string{"reason": "pricing question"},
	}

	res, err := env.engine.ProcessCall(context.Background(), ProcessRequest{
		CallID: "call-1", Phone: "+15551234567", Transcript: "call me back",
	})
	if err != nil {
		t.Fatalf("ProcessCall: %v", err)
	}
	if res.Action.CallbackID == "" {
		t.Fatal("no callback id returned")
	}

	cb, err := env.cbRepo.Get(context.Background(), res.Action.CallbackID)
	if err != nil {
		t.Fatalf("callback not stored: %v", err)
	}
	if cb.Status != callbacks.StatusPending {
		t.Fatalf("callback status = %s, want pending", cb.Status)
	}

	// Simulate a placed call that the customer did not answer.
	cb.Status = callbacks.StatusCompleted
	cb.AttemptCount = 1
	cb.ProviderCallID = "prov-9"
	if err := env.cbRepo.Update(context.Background(), cb); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if err := env.engine.ProcessCallStatus(context.Background(), "prov-9", "no-answer", ""); err != nil {
		t.Fatalf("ProcessCallStatus: %v", err)
	}

	got, _ := env.cbRepo.Get(context.Background(), cb.ID)
	if got.Status != callbacks.StatusPending {
		t.Errorf("callback status = %s, want reopened pending", got.Status)
	}
	if got.NextAttemptAt.IsZero() || !got.NextAttemptAt.After(time.Now().Add(10*time.Minute)) {
		t.Errorf("next attempt %s not pushed out by backoff", got.NextAttemptAt)
	}

	outbound, err := env.callRepo.Get(context.Background(), "prov-9")
	if err != nil {
		t.Fatalf("outbound call session missing: %v", err)
	}
	if outbound.Direction != calls.DirectionOutbound || outbound.Status != calls.StatusFailed {
		t.Errorf("outbound session = %s/%s", outbound.Direction, outbound.Status)
	}
}

func TestSuccessfulOutboundStatusCompletesCallbackAndSession(t *testing.T) {
	env := newTestEnv(t)
	cb := callbacks.Callback{
		ID: "cb-1", Phone: "+15551234567", Purpose: "pricing question",
		RequestedAt: time.Now().UTC(), Status: callbacks.StatusInProgress,
		AttemptCount: 1, NextAttemptAt: time.Now().UTC(),
		ProviderCallID: "prov-7",
		CreatedAt:      time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	if err := env.cbRepo.Insert(context.Background(), cb); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if err := env.engine.ProcessCallStatus(context.Background(), "prov-7", "completed", "thanks, bye"); err != nil {
		t.Fatalf("ProcessCallStatus: %v", err)
	}

	got, _ := env.cbRepo.Get(context.Background(), "cb-1")
	if got.Status != callbacks.StatusCompleted {
		t.Errorf("callback status = %s, want completed", got.Status)
	}
	outbound, err := env.callRepo.Get(context.Background(), "prov-7")
	if err != nil {
		t.Fatalf("outbound call session missing: %v", err)
	}
	if outbound.Status != calls.StatusCompleted || outbound.Outcome != "callback_delivered" {
		t.Errorf("outbound session = %s/%q, want completed/callback_delivered", outbound.Status, outbound.Outcome)
	}

	// The provider may redeliver the event; a repeat must acknowledge cleanly.
	if err := env.engine.ProcessCallStatus(context.Background(), "prov-7", "completed", "thanks, bye"); err != nil {
		t.Fatalf("repeated ProcessCallStatus: %v", err)
	}
}
