package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/steveyegge/rdscout/internal/config"
	"github.com/steveyegge/rdscout/internal/types"
)

// NarrativeGenerator writes one narrative section for a project from its
// evidence excerpts
type NarrativeGenerator struct {
	completer Completer
	model     string
	maxTokens int
	caller    *caller
}

// NewNarrativeGenerator creates a generator
func NewNarrativeGenerator(completer Completer, cfg config.NarrativeConfig, rc RetryConfig, logger *slog.Logger) *NarrativeGenerator {
	model := cfg.Model
	if model == "" {
		model = ModelSonnet
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &NarrativeGenerator{
		completer: completer,
		model:     model,
		maxTokens: maxTokens,
		caller:    newCaller("narrative", rc, logger),
	}
}

// Generate returns prose for section grounded only in refs
func (g *NarrativeGenerator) Generate(ctx context.Context, projectName string, section types.EvidenceSlot, refs []types.EvidenceRef) (string, error) {
	if !section.IsValid() {
		return "", fmt.Errorf("unknown narrative section %q", section)
	}
	if len(refs) == 0 {
		return "", fmt.Errorf("no %s evidence recorded for %s", section, projectName)
	}

	prompt := buildNarrativePrompt(projectName, section, refs)
	var prose string
	err := g.caller.do(ctx, "generate narrative", func(ctx context.Context) error {
		out, err := g.completer.Complete(ctx, g.model, g.maxTokens, prompt)
		if err != nil {
			return err
		}
		prose = strings.TrimSpace(out)
		return nil
	})
	if err != nil {
		return "", err
	}
	return prose, nil
}

var sectionGuidance = map[types.EvidenceSlot]string{
	types.SlotUncertainty:   "the technical uncertainty the team faced at the outset: what was not known and why existing knowledge did not resolve it",
	types.SlotInvestigation: "the systematic investigation: hypotheses formed, experiments and prototypes run, and how results were evaluated",
	types.SlotOutcome:       "the outcome: setbacks encountered, what was learned from them, and the technological advancement achieved",
}

func buildNarrativePrompt(projectName string, section types.EvidenceSlot, refs []types.EvidenceRef) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are drafting the %s section of a research and development project narrative for %q.\n\n", section, projectName)
	fmt.Fprintf(&b, "Describe %s.\n\n", sectionGuidance[section])
	b.WriteString("Use only the evidence excerpts below. Do not invent facts, figures or names. ")
	b.WriteString("Cite excerpts by their bracketed number. Write two or three plain paragraphs.\n\nEVIDENCE:\n")
	for i, ref := range refs {
		excerpt := ref.Excerpt
		if excerpt == "" {
			excerpt = "(no excerpt recorded)"
		}
		fmt.Fprintf(&b, "[%d] %s@%d: %s\n", i+1, ref.DocumentID, ref.Offset, excerpt)
	}
	return b.String()
}
