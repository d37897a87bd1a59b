package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/adityapallipati/voice-agent/internal/calls"
	"github.com/adityapallipati/voice-agent/internal/fault"
	"github.com/adityapallipati/voice-agent/internal/intent"
)

// Outcome classifies an action result for the voice provider.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeTransfer  Outcome = "transfer"
	OutcomeClarify   Outcome = "clarify"
	OutcomeFailed    Outcome = "failed"
	OutcomeNoOp      Outcome = "duplicate_noop"
)

// ActionResult is what a handler produced, surfaced to the voice provider
// as the next step in the call.
type ActionResult struct {
	Outcome Outcome `json:"outcome"`

	// SpokenReply is read to the caller verbatim.
	SpokenReply string `json:"spoken_reply,omitempty"`

	// TransferTo is set when Outcome is transfer.
	TransferTo string `json:"transfer_to,omitempty"`

	// AppointmentID / CallbackID reference the side effect, when one exists.
	AppointmentID string `json:"appointment_id,omitempty"`
	CallbackID    string `json:"callback_id,omitempty"`
}

// Handler executes the business action for one intent.
type Handler func(ctx context.Context, call calls.Call, fields map[string]string) (ActionResult, error)

// Dispatcher routes a classified call to exactly one handler, guarded by the
// processed-keys record so duplicate deliveries never re-execute side
// effects.
type Dispatcher struct {
	handlers map[intent.Intent]Handler
	keys     KeyStore
	locks    *keyedMutex
	clock    func() time.Time
}

func NewDispatcher(keys KeyStore) *Dispatcher {
	return &Dispatcher{
		handlers: map[intent.Intent]Handler{},
		keys:     keys,
		locks:    newKeyedMutex(),
		clock:    time.Now,
	}
}

// Register binds a handler to an intent. The transfer handler doubles as the
// route for Unknown (fail safe towards human escalation), so registering
// HumanAgent also covers Unknown unless Unknown is registered explicitly.
func (d *Dispatcher) Register(in intent.Intent, h Handler) {
	d.handlers[in] = h
}

// Dispatch invokes the handler for the intent under the call's key lock.
//
// Idempotency contract: the key is checked before the handler runs and
// recorded only after the handler returns without error. A failed handler
// leaves the key unrecorded, permitting a safe retry.
func (d *Dispatcher) Dispatch(ctx context.Context, call calls.Call, in intent.Intent, fields map[string]string) (ActionResult, error) {
	h := d.resolve(in)
	if h == nil {
		return ActionResult{}, fault.Validation("no handler for intent %q", in)
	}

	unlock := d.locks.Lock(call.CallID)
	defer unlock()

	action := string(in)
	if prior, ok, err := d.keys.Find(ctx, call.CallID, action); err != nil {
		return ActionResult{}, err
	} else if ok {
		// Duplicate delivery: success-no-op with the recorded result.
		res := decodeResult(prior.Result)
		res.Outcome = OutcomeNoOp
		return res, nil
	}

	res, err := h(ctx, call, fields)
	if err != nil {
		return failureResult(err), err
	}

	key := ProcessedKey{
		CallID:    call.CallID,
		Action:    action,
		Result:    encodeResult(res),
		CreatedAt: d.clock().UTC(),
	}
	if err := d.keys.Record(ctx, key); err != nil {
		if errors.Is(err, fault.ErrConflict) {
			// A concurrent delivery won the record; treat as no-op.
			return ActionResult{Outcome: OutcomeNoOp}, nil
		}
		return ActionResult{}, err
	}
	return res, nil
}

func (d *Dispatcher) resolve(in intent.Intent) Handler {
	if h, ok := d.handlers[in]; ok {
		return h
	}
	if in == intent.Unknown {
		// Unregistered unknown falls back to the human escalation path.
		return d.handlers[intent.HumanAgent]
	}
	return nil
}

// failureResult converts a handler error into the structured failure the
// voice provider speaks back to the caller.
func failureResult(err error) ActionResult {
	switch {
	case errors.Is(err, fault.ErrValidation):
		return ActionResult{
			Outcome:     OutcomeClarify,
			SpokenReply: "I'm sorry, I didn't catch everything I need. Could you repeat that with a bit more detail?",
		}
	case errors.Is(err, fault.ErrNotFound):
		return ActionResult{
			Outcome:     OutcomeClarify,
			SpokenReply: "I couldn't find a matching appointment for this number. Could you confirm the details?",
		}
	case errors.Is(err, fault.ErrAmbiguous):
		return ActionResult{
			Outcome:     OutcomeTransfer,
			SpokenReply: "I found more than one matching appointment, so let me connect you with a team member.",
		}
	default:
		slog.Error("action handler failed", "err", err)
		return ActionResult{
			Outcome:     OutcomeFailed,
			SpokenReply: "I'm sorry, something went wrong on our end. Please try again in a moment.",
		}
	}
}

func encodeResult(r ActionResult) string {
	raw, err := json.Marshal(r)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

func decodeResult(raw string) ActionResult {
	var r ActionResult
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return ActionResult{}
	}
	return r
}
