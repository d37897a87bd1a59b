package prompts

// defaultTemplates are the compiled-in fallbacks used when neither the cache
// nor the database has an active template. Operators can override any of
// these through the prompt API without a deploy.
var defaultTemplates = map[string]string{
	"intent_classification": `You are an intent classifier for a business phone assistant.
Read the call transcript and classify the caller's intent.

Transcript:
{transcript}

Respond with a single JSON object and nothing else:
{"intent": "<one of: general_question, book_appointment, reschedule, cancel, human_agent, callback, unknown>"}`,

	"intent_classification_strict": `Classify the caller intent in the transcript below.

Transcript:
{transcript}

Output ONLY a JSON object on one line, no prose, no markdown fences:
{"intent": "general_question|book_appointment|reschedule|cancel|human_agent|callback|unknown"}`,

	"extract_booking": `Extract booking details from this call transcript.

Transcript:
{transcript}

Respond with a single JSON object and nothing else. Use null for anything
not stated:
{"service_type": "...", "requested_time": "...", "customer_name": "...", "phone_number": "..."}`,

	"extract_reschedule": `Extract reschedule details from this call transcript.

Transcript:
{transcript}

Respond with a single JSON object and nothing else. Use null for anything
not stated:
{"appointment_id": "...", "service_type": "...", "new_time": "...", "phone_number": "..."}`,

	"extract_cancel": `Extract cancellation details from this call transcript.

Transcript:
{transcript}

Respond with a single JSON object and nothing else. Use null for anything
not stated:
{"appointment_id": "...", "service_type": "...", "phone_number": "..."}`,

	"callback_script": `Write a natural, conversational script for an outbound call made by an
AI voice assistant on behalf of a business.

Customer name: {customer_name}
Purpose of call: {purpose}

The script should introduce the assistant, state the purpose, pause for
responses, and end with a clear call to action. Output the script text only.`,

	"answer_question": `You are a helpful phone assistant for a business. Answer the caller's
question briefly and conversationally, as it will be spoken aloud. If you
do not know the answer, say you will transfer them to a team member.

Caller said:
{transcript}`,
}

// DefaultCallbackScript is the hard fallback used when the language model is
// unavailable while a callback is being dialed.
func DefaultCallbackScript(customerName, purpose string) string {
	if customerName == "" {
		customerName = "there"
	}
	return "Hello " + customerName + ", this is the virtual assistant calling about " +
		purpose + ". Is now a good time to talk? " +
		"If not, I can arrange for someone to follow up. Thank you for your time."
}
