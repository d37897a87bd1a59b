package callbacks

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/adityapallipati/voice-agent/internal/config"
	"github.com/adityapallipati/voice-agent/internal/fault"
	"github.com/adityapallipati/voice-agent/internal/llm"
	"github.com/adityapallipati/voice-agent/internal/prompts"
	"github.com/adityapallipati/voice-agent/internal/telephony"
)

const sweepBatchSize = 50

var errAttemptAbandoned = errors.New("attempt abandoned by a dead worker")

// ScriptRenderer resolves the callback script template. Satisfied by
// *prompts.Store.
type ScriptRenderer interface {
	Render(ctx context.Context, name string, vars map[string]string) (string, error)
}

// Sweeper drains due callbacks by placing outbound calls. More than one
// sweeper may run against the same database; the Claim compare-and-swap
// ensures each callback is attempted once per sweep.
type Sweeper struct {
	repo      Repository
	renderer  ScriptRenderer
	completer llm.Completer
	provider  telephony.VoiceProvider

	from        string
	webhookURL  string
	maxAttempts int
	backoffBase time.Duration
	backoffCap  time.Duration
	callTimeout time.Duration
	staleAfter  time.Duration

	clock func() time.Time
	log   *slog.Logger
}

func NewSweeper(repo Repository, renderer ScriptRenderer, completer llm.Completer, provider telephony.VoiceProvider, cfg config.SchedulerConfig, biz config.BusinessConfig, log *slog.Logger) *Sweeper {
	return &Sweeper{
		repo:        repo,
		renderer:    renderer,
		completer:   completer,
		provider:    provider,
		from:        biz.OutboundNumber,
		webhookURL:  biz.WebhookURL,
		maxAttempts: cfg.MaxAttempts,
		backoffBase: cfg.BackoffBase,
		backoffCap:  cfg.BackoffCap,
		callTimeout: cfg.CallTimeout,
		staleAfter:  cfg.StalenessWindow,
		clock:       time.Now,
		log:         log,
	}
}

// SweepResult summarizes one sweep pass.
type SweepResult struct {
	Due         int `json:"due"`
	Placed      int `json:"placed"`
	Skipped     int `json:"skipped"`
	Rescheduled int `json:"rescheduled"`
	Exhausted   int `json:"exhausted"`
}

// RunSweep claims and attempts every due callback. Individual callback
// failures are recorded on their rows and never abort the rest of the batch.
func (s *Sweeper) RunSweep(ctx context.Context) (SweepResult, error) {
	now := s.clock().UTC()
	due, err := s.repo.ListDue(ctx, now, sweepBatchSize)
	if err != nil {
		return SweepResult{}, err
	}

	res := SweepResult{Due: len(due)}
	for _, cb := range due {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		claimed, err := s.repo.Claim(ctx, cb.ID)
		if err != nil {
			s.log.Error("callback claim failed", "callback_id", cb.ID, "err", err)
			continue
		}
		if !claimed {
			res.Skipped++
			continue
		}

		switch s.attempt(ctx, cb) {
		case StatusCompleted:
			res.Placed++
		case StatusPending:
			res.Rescheduled++
		case StatusFailed:
			res.Exhausted++
		}
	}
	return res, nil
}

// ReclaimStale returns callbacks parked in claimed or in_progress past the
// staleness window to the retry policy. Those states only exist while a
// worker is actively dialing; a stale row means that worker died mid-attempt.
func (s *Sweeper) ReclaimStale(ctx context.Context) (int, error) {
	cutoff := s.clock().UTC().Add(-s.staleAfter)
	stuck, err := s.repo.ListStale(ctx, cutoff, sweepBatchSize)
	if err != nil {
		return 0, err
	}
	for _, cb := range stuck {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		// A claimed row never reached the attempt counter. Count it now so
		// a crash loop cannot dial forever.
		if cb.Status == StatusClaimed {
			cb.AttemptCount++
		}
		s.recordFailure(ctx, cb, errAttemptAbandoned)
	}
	if len(stuck) > 0 {
		s.log.Warn("reclaimed stale callbacks", "count", len(stuck), "cutoff", cutoff)
	}
	return len(stuck), nil
}

// attempt runs one claimed callback to its next persisted state and returns
// that state.
func (s *Sweeper) attempt(ctx context.Context, cb Callback) Status {
	now := s.clock().UTC()
	cb.Status = StatusInProgress
	cb.AttemptCount++
	cb.UpdatedAt = now
	if err := s.repo.Update(ctx, cb); err != nil {
		s.log.Error("callback update failed", "callback_id", cb.ID, "err", err)
		return StatusClaimed
	}

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	result, err := s.provider.InitiateCall(callCtx, telephony.OutboundCallRequest{
		From:       s.from,
		To:         cb.Phone,
		Script:     s.script(ctx, cb),
		WebhookURL: s.webhookURL,
		Metadata:   `{"callback_id":"` + cb.ID + `"}`,
	})
	cancel()

	if err != nil {
		return s.recordFailure(ctx, cb, err)
	}

	cb.Status = StatusCompleted
	cb.ProviderCallID = result.ProviderCallID
	cb.LastError = ""
	cb.UpdatedAt = s.clock().UTC()
	if uerr := s.repo.Update(ctx, cb); uerr != nil {
		s.log.Error("callback completion update failed", "callback_id", cb.ID, "err", uerr)
	}
	s.log.Info("callback placed", "callback_id", cb.ID, "provider_call_id", result.ProviderCallID, "attempt", cb.AttemptCount)
	return StatusCompleted
}

func (s *Sweeper) recordFailure(ctx context.Context, cb Callback, cause error) Status {
	now := s.clock().UTC()
	cb.LastError = cause.Error()
	cb.UpdatedAt = now

	if cb.AttemptCount >= s.maxAttempts {
		cb.Status = StatusFailed
		s.log.Warn("callback exhausted", "callback_id", cb.ID, "attempts", cb.AttemptCount, "err", cause)
	} else {
		cb.Status = StatusPending
		cb.NextAttemptAt = now.Add(s.backoff(cb.AttemptCount))
		s.log.Warn("callback attempt failed", "callback_id", cb.ID,
			"attempt", cb.AttemptCount, "next_attempt_at", cb.NextAttemptAt, "err", cause)
	}
	if err := s.repo.Update(ctx, cb); err != nil {
		s.log.Error("callback failure update failed", "callback_id", cb.ID, "err", err)
	}
	return cb.Status
}

// RecordOutboundResult applies the provider-reported outcome of a placed
// callback call. A failed call (no answer, busy) reopens the callback for
// retry under the same backoff policy as placement failures.
func (s *Sweeper) RecordOutboundResult(ctx context.Context, providerCallID string, success bool, detail string) (Callback, error) {
	cb, err := s.repo.FindByProviderCallID(ctx, providerCallID)
	if err != nil {
		return Callback{}, err
	}

	now := s.clock().UTC()
	if success {
		if cb.Status != StatusCompleted {
			cb.Status = StatusCompleted
			cb.LastError = ""
			cb.UpdatedAt = now
			if err := s.repo.Update(ctx, cb); err != nil {
				return Callback{}, err
			}
		}
		return cb, nil
	}

	cb.LastError = detail
	cb.UpdatedAt = now
	if cb.AttemptCount >= s.maxAttempts {
		cb.Status = StatusFailed
		s.log.Warn("callback exhausted after call failure", "callback_id", cb.ID, "attempts", cb.AttemptCount)
	} else {
		cb.Status = StatusPending
		cb.NextAttemptAt = now.Add(s.backoff(cb.AttemptCount))
		s.log.Info("callback reopened after call failure", "callback_id", cb.ID, "next_attempt_at", cb.NextAttemptAt)
	}
	if err := s.repo.Update(ctx, cb); err != nil {
		return Callback{}, err
	}
	return cb, nil
}

// backoff is base * 2^(attempt-1), capped.
func (s *Sweeper) backoff(attempt int) time.Duration {
	d := s.backoffBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= s.backoffCap {
			return s.backoffCap
		}
	}
	if d > s.backoffCap {
		return s.backoffCap
	}
	return d
}

// RegenerateScript re-renders the callback script from the current template
// and stores it on the callback, discarding any previous override.
func (s *Sweeper) RegenerateScript(ctx context.Context, id string) (Callback, error) {
	cb, err := s.repo.Get(ctx, id)
	if err != nil {
		return Callback{}, err
	}
	if cb.Status.Terminal() {
		return Callback{}, fault.Validation("callback %s is %s", cb.ID, cb.Status)
	}
	cb.Script = "" // script() short-circuits on a stored override
	cb.Script = s.script(ctx, cb)
	cb.UpdatedAt = s.clock().UTC()
	if err := s.repo.Update(ctx, cb); err != nil {
		return Callback{}, err
	}
	return cb, nil
}

// script resolves the text the voice agent speaks: a stored override wins,
// otherwise the callback_script prompt is rendered and completed by the
// language model. Any failure along the way falls back to the canned script
// so a dial never blocks on the model.
func (s *Sweeper) script(ctx context.Context, cb Callback) string {
	if cb.Script != "" {
		return cb.Script
	}
	prompt, err := s.renderer.Render(ctx, "callback_script", map[string]string{
		"customer_name": cb.CustomerID,
		"purpose":       cb.Purpose,
	})
	if err != nil {
		s.log.Warn("callback script render failed, using default", "callback_id", cb.ID, "err", err)
		return prompts.DefaultCallbackScript(cb.CustomerID, cb.Purpose)
	}
	text, err := s.completer.Complete(ctx, prompt)
	if err != nil || strings.TrimSpace(text) == "" {
		s.log.Warn("callback script generation failed, using default", "callback_id", cb.ID, "err", err)
		return prompts.DefaultCallbackScript(cb.CustomerID, cb.Purpose)
	}
	return strings.TrimSpace(text)
}
