package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/steveyegge/rdscout/internal/entities"
)

// LLMRecognizer finds people, organizations and dates with a language model.
// It satisfies entities.Recognizer; the extractor falls back to its
// heuristics when a call fails.
type LLMRecognizer struct {
	completer Completer
	model     string
	maxTokens int
	caller    *caller
}

// NewLLMRecognizer creates a recognizer. An empty model uses ModelHaiku.
func NewLLMRecognizer(completer Completer, model string, rc RetryConfig, logger *slog.Logger) *LLMRecognizer {
	if model == "" {
		model = ModelHaiku
	}
	return &LLMRecognizer{
		completer: completer,
		model:     model,
		maxTokens: 2048,
		caller:    newCaller("ner", rc, logger),
	}
}

type recognizedEntity struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

type recognitionResponse struct {
	Entities []recognizedEntity `json:"entities"`
}

// Recognize implements entities.Recognizer. Mentions the model returns that
// don't occur verbatim in text are dropped.
func (r *LLMRecognizer) Recognize(ctx context.Context, text string) ([]entities.Span, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var resp recognitionResponse
	err := r.caller.do(ctx, "recognize entities", func(ctx context.Context) error {
		out, err := r.completer.Complete(ctx, r.model, r.maxTokens, buildRecognitionPrompt(text))
		if err != nil {
			return err
		}
		resp, err = parseJSON[recognitionResponse](out)
		return err
	})
	if err != nil {
		return nil, err
	}

	var spans []entities.Span
	seen := make(map[string]bool)
	for _, e := range resp.Entities {
		label := normalizeLabel(e.Label)
		mention := strings.TrimSpace(e.Text)
		if label == "" || mention == "" || seen[label+"\x00"+mention] {
			continue
		}
		start := strings.Index(text, mention)
		if start < 0 {
			continue
		}
		seen[label+"\x00"+mention] = true
		spans = append(spans, entities.Span{Label: label, Text: mention, Start: start, End: start + len(mention)})
	}
	return spans, nil
}

func normalizeLabel(label string) string {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "PERSON", "PER", "PEOPLE":
		return entities.LabelPerson
	case "ORG", "ORGANIZATION", "COMPANY":
		return entities.LabelOrg
	case "DATE":
		return entities.LabelDate
	}
	return ""
}

func buildRecognitionPrompt(text string) string {
	return fmt.Sprintf(`Extract named entities from the engineering document below.

Return only people (PERSON), organizations (ORG) and calendar dates (DATE).
Copy each mention exactly as it appears in the text.

Respond with JSON only, in this shape:
{"entities": [{"label": "PERSON", "text": "Jane Doe"}, {"label": "DATE", "text": "March 3, 2024"}]}

DOCUMENT:
%s`, text)
}
