package signals

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/steveyegge/rdscout/internal/types"
)

// Taxonomy is the curated keyword set for each signal category.
// Phrases are matched case-insensitively on word boundaries; internal
// whitespace in a phrase matches any run of whitespace in the text.
type Taxonomy struct {
	Uncertainty  []string `yaml:"uncertainty"`
	Systematic   []string `yaml:"systematic_investigation"`
	Setback      []string `yaml:"setback"`
	Advancement  []string `yaml:"advancement"`
	Disqualifier []string `yaml:"routine_work"`
}

// Phrases returns the phrase list for a category
func (t *Taxonomy) Phrases(c types.SignalCategory) []string {
	switch c {
	case types.CategoryUncertainty:
		return t.Uncertainty
	case types.CategorySystematic:
		return t.Systematic
	case types.CategorySetback:
		return t.Setback
	case types.CategoryAdvancement:
		return t.Advancement
	case types.CategoryDisqualifier:
		return t.Disqualifier
	}
	return nil
}

// Validate rejects empty categories and single-character phrases
func (t *Taxonomy) Validate() error {
	for _, c := range types.AllSignalCategories {
		phrases := t.Phrases(c)
		if len(phrases) == 0 {
			return fmt.Errorf("taxonomy category %s has no phrases", c)
		}
		for _, p := range phrases {
			if len([]rune(strings.TrimSpace(p))) < 2 {
				return fmt.Errorf("taxonomy category %s: phrase %q is too short", c, p)
			}
		}
	}
	return nil
}

// LoadTaxonomy reads a YAML taxonomy file. Categories missing from the file
// keep their default phrases.
func LoadTaxonomy(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read taxonomy file: %w", err)
	}

	var override Taxonomy
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("failed to parse taxonomy file %s: %w", path, err)
	}

	t := DefaultTaxonomy()
	if len(override.Uncertainty) > 0 {
		t.Uncertainty = override.Uncertainty
	}
	if len(override.Systematic) > 0 {
		t.Systematic = override.Systematic
	}
	if len(override.Setback) > 0 {
		t.Setback = override.Setback
	}
	if len(override.Advancement) > 0 {
		t.Advancement = override.Advancement
	}
	if len(override.Disqualifier) > 0 {
		t.Disqualifier = override.Disqualifier
	}

	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid taxonomy %s: %w", path, err)
	}
	return t, nil
}

// DefaultTaxonomy returns a fresh copy of the built-in keyword sets
func DefaultTaxonomy() *Taxonomy {
	return &Taxonomy{
		Uncertainty: []string{
			"uncertain", "uncertainty", "uncertainties",
			"unknown", "unknowns", "unclear", "unsure", "unproven", "untested",
			"hypothesis", "hypotheses", "hypothesize", "hypothesized", "hypothesise", "hypothesised",
			"feasibility", "not feasible", "technical risk", "technical risks",
			"technical challenge", "technical challenges", "technological uncertainty",
			"no known solution", "no existing solution", "not known whether", "could not determine",
			"it was not clear", "open question", "open questions", "whether it was possible",
			"novel", "unprecedented",
		},
		Systematic: []string{
			"approach", "approaches", "attempt", "attempts", "attempted",
			"experiment", "experiments", "experimented", "experimental", "experimentation",
			"prototype", "prototypes", "prototyped", "prototyping", "proof of concept",
			"iteration", "iterations", "iterated", "iterative",
			"benchmark", "benchmarks", "benchmarked", "benchmarking",
			"trial", "trials", "trial and error", "simulation", "simulations", "simulated",
			"evaluated alternatives", "compared alternatives", "design alternatives",
			"root cause analysis", "methodology", "controlled test", "test harness",
			"measured", "instrumented", "ablation",
		},
		Setback: []string{
			"failed", "failure", "failures", "fails",
			"did not work", "didn't work", "does not work", "unsuccessful",
			"setback", "setbacks", "dead end", "dead ends", "regression", "regressions",
			"crashed", "abandoned", "ruled out", "rolled back", "bottleneck",
			"did not converge", "not viable", "out of memory",
		},
		Advancement: []string{
			"succeeded", "success", "successful", "successfully",
			"improvement", "improvements", "improved", "breakthrough",
			"achieved", "outperformed", "speedup", "faster than",
			"reduced latency", "increased throughput", "new capability",
			"advancement", "advanced the state", "optimized", "validated",
		},
		Disqualifier: []string{
			"routine maintenance", "routine", "standard vendor documentation",
			"normal operating procedure", "standard operating procedure",
			"off-the-shelf configuration", "data entry", "cosmetic change", "cosmetic changes",
			"style changes", "market research", "customer support", "quality control testing",
			"administrative", "user manual", "training session", "minor bug fix",
			"vendor-supplied", "data migration",
		},
	}
}
