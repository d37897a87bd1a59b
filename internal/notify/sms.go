package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/adityapallipati/voice-agent/internal/config"
	"github.com/adityapallipati/voice-agent/internal/fault"
)

// Notifier sends customer-facing text messages. Callers treat delivery as
// fire-and-forget: failures are logged, never propagated into appointment or
// callback state.
type Notifier interface {
	Send(ctx context.Context, to, message string) error
}

// NotifierFunc adapts a function to the Notifier interface. Used by tests.
type NotifierFunc func(ctx context.Context, to, message string) error

func (f NotifierFunc) Send(ctx context.Context, to, message string) error {
	return f(ctx, to, message)
}

// SMSGateway delivers messages through the SMS HTTP gateway.
type SMSGateway struct {
	baseURL string
	apiKey  string
	from    string
	http    *http.Client
}

func NewSMSGateway(cfg config.SMSConfig) *SMSGateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SMSGateway{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		from:    cfg.From,
		http:    &http.Client{Timeout: timeout},
	}
}

func (g *SMSGateway) Send(ctx context.Context, to, message string) error {
	if to == "" || message == "" {
		return fault.Validation("to and message are required")
	}
	raw, err := json.Marshal(map[string]string{"from": g.from, "to": to, "body": message})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/messages", bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return fault.External("sms", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fault.External("sms", fmt.Errorf("status %d: %s", resp.StatusCode, snippet))
	}
	return nil
}
