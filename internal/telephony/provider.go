package telephony

import "context"

// VoiceProvider defines the provider-agnostic interface used by business
// logic for outbound calling.
//
// Rules:
//   - No provider SDK/HTTP calls outside telephony adapters.
//   - Calls are asynchronous: completion and transcript arrive later via the
//     inbound webhook, keyed by the returned provider call ID.
type VoiceProvider interface {
	Name() string

	InitiateCall(ctx context.Context, req OutboundCallRequest) (OutboundCallResult, error)
	TransferCall(ctx context.Context, providerCallID, toNumber string) error
}

// OutboundCallRequest describes one outbound call to place.
type OutboundCallRequest struct {
	// From and To are E.164.
	From string `json:"from"`
	To   string `json:"to"`

	// Script is the finalized instruction text the voice agent follows.
	Script string `json:"script"`

	// VoiceID selects the synthesized voice; empty means provider default.
	VoiceID string `json:"voice_id,omitempty"`

	// WebhookURL receives call events for this call.
	WebhookURL string `json:"webhook_url,omitempty"`

	// Metadata is optional JSON echoed back on webhook events.
	Metadata string `json:"metadata,omitempty"`
}

type OutboundCallResult struct {
	// ProviderCallID is the provider's unique identifier for this call.
	ProviderCallID string `json:"provider_call_id"`
	Status         string `json:"status"`
}
