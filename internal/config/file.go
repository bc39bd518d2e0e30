package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the config file inside the workspace directory
const FileName = "config.yaml"

// ConfigFile represents the structure of .rdscout/config.yaml. Zero values
// leave the default in place.
type ConfigFile struct {
	DatabasePath           string   `yaml:"database_path"`
	Scope                  string   `yaml:"scope"`
	Workers                int      `yaml:"workers"`
	MaxTextChars           int      `yaml:"max_text_chars"`
	MinClusterSize         int      `yaml:"min_cluster_size"`
	DensitySimilarity      float64  `yaml:"density_similarity"`
	MatchThreshold         float64  `yaml:"match_threshold"`
	MinCandidateScore      *float64 `yaml:"min_candidate_score"`
	AutoApplySafeAdditions bool     `yaml:"auto_apply_safe_additions"`
	Taxonomy               string   `yaml:"taxonomy"`

	Embedding struct {
		Enabled           bool    `yaml:"enabled"`
		Model             string  `yaml:"model"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		MaxConcurrent     int     `yaml:"max_concurrent"`
	} `yaml:"embedding"`

	Narrative struct {
		Model     string `yaml:"model"`
		MaxTokens int    `yaml:"max_tokens"`
	} `yaml:"narrative"`

	NER struct {
		UseLLM bool   `yaml:"use_llm"`
		Model  string `yaml:"model"`
	} `yaml:"ner"`

	Retry struct {
		MaxRetries       *int   `yaml:"max_retries"`
		InitialBackoff   string `yaml:"initial_backoff"` // Duration string like "1s"
		MaxBackoff       string `yaml:"max_backoff"`
		Timeout          string `yaml:"timeout"`
		FailureThreshold int    `yaml:"failure_threshold"`
		OpenTimeout      string `yaml:"open_timeout"`
	} `yaml:"retry"`
}

// LoadFile loads .rdscout/config.yaml under root over the defaults. A
// missing file yields the defaults.
func LoadFile(root string) (Config, error) {
	configPath := filepath.Join(root, ".rdscout", FileName)

	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var cf ConfigFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", configPath, err)
	}
	return cf.ToConfig()
}

// ToConfig converts a ConfigFile to a Config, starting from the defaults
func (cf *ConfigFile) ToConfig() (Config, error) {
	cfg := DefaultConfig()

	if cf.DatabasePath != "" {
		cfg.DatabasePath = cf.DatabasePath
	}
	if cf.Scope != "" {
		cfg.Scope = cf.Scope
	}
	if cf.Workers > 0 {
		cfg.Workers = cf.Workers
	}
	if cf.MaxTextChars > 0 {
		cfg.MaxTextChars = cf.MaxTextChars
	}
	if cf.MinClusterSize > 0 {
		cfg.MinClusterSize = cf.MinClusterSize
	}
	if cf.DensitySimilarity > 0 {
		cfg.DensitySimilarity = cf.DensitySimilarity
	}
	if cf.MatchThreshold > 0 {
		cfg.MatchThreshold = cf.MatchThreshold
	}
	if cf.MinCandidateScore != nil {
		cfg.MinCandidateScore = *cf.MinCandidateScore
	}
	cfg.AutoApplySafeAdditions = cf.AutoApplySafeAdditions
	cfg.TaxonomyPath = cf.Taxonomy

	cfg.Embedding.Enabled = cf.Embedding.Enabled
	if cf.Embedding.Model != "" {
		cfg.Embedding.Model = cf.Embedding.Model
	}
	if cf.Embedding.RequestsPerSecond > 0 {
		cfg.Embedding.RequestsPerSecond = cf.Embedding.RequestsPerSecond
	}
	if cf.Embedding.MaxConcurrent > 0 {
		cfg.Embedding.MaxConcurrent = cf.Embedding.MaxConcurrent
	}

	if cf.Narrative.Model != "" {
		cfg.Narrative.Model = cf.Narrative.Model
	}
	if cf.Narrative.MaxTokens > 0 {
		cfg.Narrative.MaxTokens = cf.Narrative.MaxTokens
	}

	cfg.NER.UseLLM = cf.NER.UseLLM
	if cf.NER.Model != "" {
		cfg.NER.Model = cf.NER.Model
	}

	if cf.Retry.MaxRetries != nil {
		cfg.Retry.MaxRetries = *cf.Retry.MaxRetries
	}
	if cf.Retry.FailureThreshold > 0 {
		cfg.Retry.FailureThreshold = cf.Retry.FailureThreshold
	}
	for _, d := range []struct {
		name  string
		value string
		dest  *time.Duration
	}{
		{"retry.initial_backoff", cf.Retry.InitialBackoff, &cfg.Retry.InitialBackoff},
		{"retry.max_backoff", cf.Retry.MaxBackoff, &cfg.Retry.MaxBackoff},
		{"retry.timeout", cf.Retry.Timeout, &cfg.Retry.Timeout},
		{"retry.open_timeout", cf.Retry.OpenTimeout, &cfg.Retry.OpenTimeout},
	} {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", d.name, err)
		}
		*d.dest = parsed
	}

	return cfg, nil
}

// WriteDefault writes a commented starter config into the workspace. An
// existing file is left alone.
func WriteDefault(root string) (string, error) {
	configPath := filepath.Join(root, ".rdscout", FileName)
	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	}
	if err := os.WriteFile(configPath, []byte(defaultFile), 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return configPath, nil
}

const defaultFile = `# rdscout workspace configuration
scope: default
workers: 4
min_cluster_size: 3
match_threshold: 0.60
auto_apply_safe_additions: false

embedding:
  enabled: false          # requires OPENAI_API_KEY
  model: text-embedding-3-small

narrative:
  model: claude-sonnet-4-5-20250929
  max_tokens: 1024

ner:
  use_llm: false          # requires ANTHROPIC_API_KEY
`
