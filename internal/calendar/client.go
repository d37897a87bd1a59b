package calendar

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

// Event is one calendar entry to create.
type Event struct {
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Title   string    `json:"title"`
	Details string    `json:"details,omitempty"`
}

// Client creates calendar events. Best-effort semantics (failures do not
// block appointment confirmation) live in the appointment coordinator, not
// here.
type Client interface {
	CreateEvent(ctx context.Context, ev Event) (string, error)
}

// HTTPClient talks to the calendar gateway over HTTP.
type HTTPClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewHTTPClient(cfg config.CalendarConfig) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) CreateEvent(ctx context.Context, ev Event) (string, error) {
	if ev.Start.IsZero() || !ev.End.After(ev.Start) {
		return "", fault.Validation("event needs a start before its end")
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/events", bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fault.External("calendar", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fault.External("calendar", fmt.Errorf("status %d: %s", resp.StatusCode, snippet))
	}
	var out struct {
		EventID string `json:"event_id"`
		ID      string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fault.External("calendar", fmt.Errorf("decode response: %w", err))
	}
	if out.EventID != "" {
		return out.EventID, nil
	}
	return out.ID, nil
}
