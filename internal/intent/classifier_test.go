package intent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/adityapallipati/voice-agent/internal/fault"
	"github.com/adityapallipati/voice-agent/internal/llm"
	"github.com/adityapallipati/voice-agent/internal/prompts"
)

func testStore() *prompts.Store {
	return prompts.NewStore(prompts.NewMemoryRepo(), nil)
}

// scriptedCompleter returns canned responses in order.
type scriptedCompleter struct {
	responses []string
	errs      []error
	calls     int
}

func (s *scriptedCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	i := s.calls
	s.calls++
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return "", errors.New("no scripted response")
}

func TestClassify_EmptyTranscriptRejected(t *testing.T) {
	c := NewClassifier(testStore(), &scriptedCompleter{}, "US")
	_, err := c.Classify(context.Background(), "   ")
	if !errors.Is(err, fault.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestClassify_SimpleIntent(t *testing.T) {
	comp := &scriptedCompleter{responses: []string{`{"intent": "human_agent"}`}}
	c := NewClassifier(testStore(), comp, "US")
	res, err := c.Classify(context.Background(), "let me talk to a person")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.Intent != HumanAgent {
		t.Fatalf("expected human_agent, got %q", res.Intent)
	}
	if comp.calls != 1 {
		t.Fatalf("expected 1 model call, got %d", comp.calls)
	}
}

func TestClassify_RetriesOnceThenUnknown(t *testing.T) {
	comp := &scriptedCompleter{responses: []string{"I think the caller wants...", "still not json"}}
	c := NewClassifier(testStore(), comp, "US")
	res, err := c.Classify(context.Background(), "mumble")
	if err != nil {
		t.Fatalf("malformed model output must not raise: %v", err)
	}
	if res.Intent != Unknown {
		t.Fatalf("expected unknown, got %q", res.Intent)
	}
	if comp.calls != 2 {
		t.Fatalf("expected exactly 2 model calls (one retry), got %d", comp.calls)
	}
}

func TestClassify_ModelErrorYieldsUnknown(t *testing.T) {
	boom := errors.New("rate limited")
	comp := &scriptedCompleter{errs: []error{boom, boom}}
	c := NewClassifier(testStore(), comp, "US")
	res, err := c.Classify(context.Background(), "hello?")
	if err != nil {
		t.Fatalf("model failure must not raise: %v", err)
	}
	if res.Intent != Unknown {
		t.Fatalf("expected unknown, got %q", res.Intent)
	}
}

func TestClassify_OffMenuIntentMapsToUnknown(t *testing.T) {
	comp := &scriptedCompleter{responses: []string{`{"intent": "order_pizza"}`}}
	c := NewClassifier(testStore(), comp, "US")
	res, _ := c.Classify(context.Background(), "large pepperoni please")
	if res.Intent != Unknown {
		t.Fatalf("expected unknown for off-menu intent, got %q", res.Intent)
	}
}

func TestClassify_ExtractionNormalizesFields(t *testing.T) {
	comp := &scriptedCompleter{responses: []string{
		`{"intent": "reschedule"}`,
		"Sure! ```json\n" + `{"appointment_id": null, "service_type": "haircut", "new_time": "2026-09-02 14:00", "phone_number": "(555) 123-4567"}` + "\n```",
	}}
	c := NewClassifier(testStore(), comp, "US")
	res, err := c.Classify(context.Background(), "reschedule my haircut to Wednesday 2pm")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.Intent != Reschedule {
		t.Fatalf("expected reschedule, got %q", res.Intent)
	}
	if res.Fields["service_type"] != "haircut" {
		t.Fatalf("service_type missing: %v", res.Fields)
	}
	if res.Fields["new_time"] != "2026-09-02T14:00:00Z" {
		t.Fatalf("new_time not normalized: %q", res.Fields["new_time"])
	}
	if res.Fields["phone_number"] != "+15551234567" {
		t.Fatalf("phone not normalized: %q", res.Fields["phone_number"])
	}
	if _, ok := res.Fields["appointment_id"]; ok {
		t.Fatalf("null field should be absent: %v", res.Fields)
	}
}

func TestClassify_UnparseableTimeBecomesAbsent(t *testing.T) {
	comp := &scriptedCompleter{responses: []string{
		`{"intent": "book_appointment"}`,
		`{"service_type": "massage", "requested_time": "next Tuesday-ish"}`,
	}}
	c := NewClassifier(testStore(), comp, "US")
	res, _ := c.Classify(context.Background(), "book me a massage")
	if res.Fields["service_type"] != "massage" {
		t.Fatalf("service_type missing: %v", res.Fields)
	}
	if _, ok := res.Fields["requested_time"]; ok {
		t.Fatalf("unparseable time should be absent, got %q", res.Fields["requested_time"])
	}
}

func TestClassify_UsesStubCompleterFunc(t *testing.T) {
	c := NewClassifier(testStore(), llm.CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "mop the floors") {
			return `{"intent": "callback"}`, nil
		}
		return `{"intent": "unknown"}`, nil
	}), "US")
	res, _ := c.Classify(context.Background(), "call me back when you can, I have to mop the floors")
	if res.Intent != Callback {
		t.Fatalf("expected callback, got %q", res.Intent)
	}
}

func TestExtractJSONObject_BalancedBraces(t *testing.T) {
	obj, ok := extractJSONObject(`prefix {"a": "x", "nested": {"b": "y"}} suffix {"c": "z"}`)
	if !ok {
		t.Fatalf("expected a parse")
	}
	if obj["a"] != "x" {
		t.Fatalf("unexpected object: %v", obj)
	}
	if _, ok := obj["c"]; ok {
		t.Fatalf("should only take the first object: %v", obj)
	}
}
