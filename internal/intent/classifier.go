package intent

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"

	"github.com/adityapallipati/voice-agent/internal/fault"
	"github.com/adityapallipati/voice-agent/internal/llm"
)

// TemplateRenderer resolves a named prompt template with variables.
type TemplateRenderer interface {
	Render(ctx context.Context, name string, vars map[string]string) (string, error)
}

// Result is the outcome of classifying one transcript.
type Result struct {
	Intent Intent            `json:"intent"`
	Fields map[string]string `json:"fields"`
}

// Classifier turns a transcript into exactly one Intent plus extracted
// fields. Model misbehavior (malformed JSON, wrong keys) degrades to Unknown;
// it is never surfaced as an error to the caller.
type Classifier struct {
	prompts   TemplateRenderer
	completer llm.Completer
	// region is the ISO country used to parse national phone numbers.
	region string
}

func NewClassifier(prompts TemplateRenderer, completer llm.Completer, region string) *Classifier {
	if region == "" {
		region = "US"
	}
	return &Classifier{prompts: prompts, completer: completer, region: region}
}

// Classify returns the intent and, for booking/reschedule/cancel, the
// structured fields extracted by a second model call. An empty transcript is
// a validation error and is never sent to the model.
func (c *Classifier) Classify(ctx context.Context, transcript string) (Result, error) {
	if strings.TrimSpace(transcript) == "" {
		return Result{}, fault.Validation("transcript is empty")
	}

	out := Result{Intent: Unknown, Fields: map[string]string{}}

	raw, ok := c.classifyOnce(ctx, "intent_classification", transcript)
	if !ok {
		// One retry with a stricter instruction, then fall back to unknown.
		raw, ok = c.classifyOnce(ctx, "intent_classification_strict", transcript)
	}
	if ok {
		out.Intent = Parse(raw)
	}

	if out.Intent.NeedsExtraction() {
		out.Fields = c.extract(ctx, out.Intent, transcript)
	}
	return out, nil
}

func (c *Classifier) classifyOnce(ctx context.Context, template, transcript string) (string, bool) {
	prompt, err := c.prompts.Render(ctx, template, map[string]string{"transcript": transcript})
	if err != nil {
		slog.Warn("intent template render failed", "template", template, "err", err)
		return "", false
	}
	text, err := c.completer.Complete(ctx, prompt)
	if err != nil {
		slog.Warn("intent model call failed", "template", template, "err", err)
		return "", false
	}
	obj, ok := extractJSONObject(text)
	if !ok {
		slog.Warn("intent response had no JSON object", "template", template)
		return "", false
	}
	raw, ok := obj["intent"]
	if !ok || raw == "" {
		return "", false
	}
	return raw, true
}

var extractionTemplates = map[Intent]string{
	BookAppointment: "extract_booking",
	Reschedule:      "extract_reschedule",
	Cancel:          "extract_cancel",
}

// extract pulls structured fields with the intent-specific template.
// Unparseable times and phones are dropped rather than failing the whole
// extraction; the downstream handler decides what absence means.
func (c *Classifier) extract(ctx context.Context, in Intent, transcript string) map[string]string {
	fields := map[string]string{}

	template := extractionTemplates[in]
	prompt, err := c.prompts.Render(ctx, template, map[string]string{"transcript": transcript})
	if err != nil {
		slog.Warn("extraction template render failed", "template", template, "err", err)
		return fields
	}
	text, err := c.completer.Complete(ctx, prompt)
	if err != nil {
		slog.Warn("extraction model call failed", "template", template, "err", err)
		return fields
	}
	obj, ok := extractJSONObject(text)
	if !ok {
		return fields
	}

	for k, v := range obj {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		switch k {
		case "requested_time", "new_time":
			if ts, ok := NormalizeTime(v); ok {
				fields[k] = ts
			}
		case "phone_number":
			if p, ok := NormalizePhone(v, c.region); ok {
				fields[k] = p
			}
		default:
			fields[k] = v
		}
	}
	return fields
}

// extractJSONObject finds the first balanced JSON object in text and decodes
// it into flat string fields. Model responses often wrap the object in prose
// or markdown fences.
func extractJSONObject(text string) (map[string]string, bool) {
	start := strings.IndexByte(text, '{')
	if start == -1 {
		return nil, false
	}
	depth := 0
	end := -1
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				end = i
			}
		}
		if end != -1 {
			break
		}
	}
	if end == -1 {
		return nil, false
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil, false
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch t := v.(type) {
		case string:
			out[k] = t
		case nil:
			// null fields are simply absent
		case float64:
			out[k] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			if t {
				out[k] = "true"
			} else {
				out[k] = "false"
			}
		}
	}
	return out, true
}
