package telephony

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

// VAPIProvider talks to the hosted voice-agent API over HTTP.
// All requests carry a bounded timeout; a stuck provider call must not stall
// other webhook handlers or the callback sweep.
type VAPIProvider struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewVAPIProvider(cfg config.VoiceConfig) *VAPIProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &VAPIProvider{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
	}
}

func (p *VAPIProvider) Name() string { return "vapi" }

func (p *VAPIProvider) InitiateCall(ctx context.Context, req OutboundCallRequest) (OutboundCallResult, error) {
	if req.From == "" || req.To == "" || req.Script == "" {
		return OutboundCallResult{}, fault.Validation("from, to and script are required")
	}

	body := map[string]any{
		"from":   req.From,
		"to":     req.To,
		"prompt": req.Script,
	}
	if req.VoiceID != "" {
		body["voice_id"] = req.VoiceID
	}
	if req.WebhookURL != "" {
		body["webhook_url"] = req.WebhookURL
	}
	if req.Metadata != "" {
		body["metadata"] = req.Metadata
	}

	var out struct {
		CallID string `json:"call_id"`
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := p.do(ctx, http.MethodPost, "/v1/calls", body, &out); err != nil {
		return OutboundCallResult{}, err
	}
	id := out.CallID
	if id == "" {
		id = out.ID
	}
	if id == "" {
		return OutboundCallResult{}, fault.External("voice", fmt.Errorf("response missing call id"))
	}
	return OutboundCallResult{ProviderCallID: id, Status: out.Status}, nil
}

func (p *VAPIProvider) TransferCall(ctx context.Context, providerCallID, toNumber string) error {
	if providerCallID == "" || toNumber == "" {
		return fault.Validation("call id and destination are required")
	}
	body := map[string]any{"phone_number": toNumber}
	return p.do(ctx, http.MethodPost, "/v1/calls/"+providerCallID+"/transfer", body, nil)
}

func (p *VAPIProvider) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return fault.External("voice", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fault.External("voice", fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, snippet))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fault.External("voice", fmt.Errorf("decode response: %w", err))
	}
	return nil
}
