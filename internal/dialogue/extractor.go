package dialogue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bookbotclinic/bookbot/internal/catalog"
)

const extractorPrompt = `You are a booking assistant for a clinic. Extract booking fields from the user's message.
Respond with JSON only, in this shape:
{"intent": "<book|info|status|chat>", "reply": "<short reply>", "booking_type": "appointment", "details": {"service": "", "date": "", "time": "", "location": "", "contact": ""}, "missing_fields": [], "is_complete": false, "confirmation_summary": ""}
Only include detail keys you are confident about. Never invent values.`

// Extraction is the generator's advisory read of an utterance. Every field in
// Details has already been re-validated; nothing in it is trusted model
// output.
type Extraction struct {
	Intent  string
	Reply   string
	Details map[Field]string
	// Suggestions holds fields where validation produced a fuzzy
	// suggestion instead of a committed-ready value.
	Suggestions map[Field]string
}

// FieldExtractor asks the LLM to propose field values from free text and then
// re-validates every proposal through the field validators. Model output is
// advisory only.
type FieldExtractor struct {
	client LLMClient
	model  string
}

// NewFieldExtractor creates an extractor over the given client and model id.
func NewFieldExtractor(client LLMClient, model string) *FieldExtractor {
	return &FieldExtractor{client: client, model: model}
}

// Extract proposes field values for the utterance. Proposals that fail their
// validator are dropped rather than surfaced as errors.
func (e *FieldExtractor) Extract(ctx context.Context, utterance string, cat *catalog.Catalog, draft *Draft) (Extraction, error) {
	out := Extraction{Details: map[Field]string{}, Suggestions: map[Field]string{}}
	if e == nil || e.client == nil {
		return out, fmt.Errorf("%w: no client configured", ErrGeneratorUnavailable)
	}

	payload, err := json.Marshal(map[string]any{
		"user_message":    utterance,
		"clinic_catalog":  cat,
		"current_booking": draft,
	})
	if err != nil {
		return out, fmt.Errorf("dialogue: extraction payload marshal: %w", err)
	}

	resp, err := e.client.Complete(ctx, LLMRequest{
		Model:       e.model,
		System:      []string{extractorPrompt},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: string(payload)}},
		MaxTokens:   512,
		Temperature: 0,
	})
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrGeneratorUnavailable, err)
	}

	var parsed struct {
		Intent  string            `json:"intent"`
		Reply   string            `json:"reply"`
		Details map[string]string `json:"details"`
	}

	// The model may wrap its JSON in extra prose.
	content := strings.TrimSpace(resp.Text)
	startIdx := strings.Index(content, "{")
	endIdx := strings.LastIndex(content, "}")
	if startIdx >= 0 && endIdx > startIdx {
		content = content[startIdx : endIdx+1]
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return out, fmt.Errorf("%w: unparseable extraction", ErrGeneratorUnavailable)
	}

	out.Intent = parsed.Intent
	out.Reply = parsed.Reply

	location := ""
	if draft != nil {
		location = draft.Details[FieldLocation]
	}
	for name, raw := range parsed.Details {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		f := Field(strings.ToLower(strings.TrimSpace(name)))
		v, verr := ValidateField(f, raw, cat, location)
		if verr != nil {
			continue
		}
		if v.Suggestion != "" {
			out.Suggestions[f] = v.Suggestion
			continue
		}
		out.Details[f] = v.Value
	}
	return out, nil
}
