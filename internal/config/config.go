package config

import (
	"fmt"
	"time"
)

// Config holds configuration for a discovery workspace
type Config struct {
	// DatabasePath is the SQLite database file
	// Default: .rdscout/rdscout.db
	DatabasePath string

	// Scope is the claim scope used when a command doesn't name one
	// Default: "default"
	Scope string

	// Workers is the number of documents analyzed in parallel
	// Default: 4, Range: 1-64
	Workers int

	// MaxTextChars is how much of each document entity extraction reads
	// Default: 50000
	MaxTextChars int

	// MinClusterSize is the density clustering core size
	// Default: 3, Range: 2-50
	MinClusterSize int

	// DensitySimilarity is the cosine similarity two embeddings need to be neighbours
	// Default: 0.80
	DensitySimilarity float64

	// MatchThreshold is the profile similarity a new document needs to join an
	// existing candidate during incremental runs
	// Default: 0.60
	MatchThreshold float64

	// MinCandidateScore is the confidence floor below which a cluster is not
	// proposed as a candidate
	// Default: 0.0 (propose every cluster)
	MinCandidateScore float64

	// AutoApplySafeAdditions tags safe additions directly instead of asking
	// Default: false
	AutoApplySafeAdditions bool

	// TaxonomyPath optionally replaces the built-in keyword taxonomy
	TaxonomyPath string

	Embedding EmbeddingConfig
	Narrative NarrativeConfig
	NER       NERConfig
	Retry     RetryConfig
}

// EmbeddingConfig configures the embedding collaborator
type EmbeddingConfig struct {
	// Enabled turns on embedding lookups (requires OPENAI_API_KEY)
	// Default: false
	Enabled bool

	// Model is the embedding model
	// Default: text-embedding-3-small
	Model string

	// RequestsPerSecond caps the embedding call rate
	// Default: 5
	RequestsPerSecond float64

	// MaxConcurrent caps in-flight embedding calls
	// Default: 4
	MaxConcurrent int
}

// NarrativeConfig configures the narrative-generation collaborator
type NarrativeConfig struct {
	// Model is the Anthropic model used for prose
	// Default: claude-sonnet-4-5-20250929
	Model string

	// MaxTokens caps the length of one generated section
	// Default: 1024
	MaxTokens int
}

// NERConfig configures named-entity recognition
type NERConfig struct {
	// UseLLM delegates people/organization/date recognition to the LLM
	// recognizer, falling back to the built-in heuristics on failure
	// Default: false
	UseLLM bool

	// Model is the Anthropic model used for recognition
	// Default: claude-3-5-haiku-20241022
	Model string
}

// RetryConfig configures collaborator retries and the circuit breaker
type RetryConfig struct {
	MaxRetries       int           // Default: 3
	InitialBackoff   time.Duration // Default: 1s
	MaxBackoff       time.Duration // Default: 30s
	Timeout          time.Duration // Per-attempt timeout. Default: 60s
	FailureThreshold int           // Failures before the breaker opens. Default: 5
	OpenTimeout      time.Duration // How long the breaker stays open. Default: 30s
}

// DefaultConfig returns the default discovery configuration
func DefaultConfig() Config {
	return Config{
		DatabasePath:      ".rdscout/rdscout.db",
		Scope:             "default",
		Workers:           4,
		MaxTextChars:      50000,
		MinClusterSize:    3,
		DensitySimilarity: 0.80,
		MatchThreshold:    0.60,
		MinCandidateScore: 0.0,
		Embedding: EmbeddingConfig{
			Model:             "text-embedding-3-small",
			RequestsPerSecond: 5,
			MaxConcurrent:     4,
		},
		Narrative: NarrativeConfig{
			Model:     "claude-sonnet-4-5-20250929",
			MaxTokens: 1024,
		},
		NER: NERConfig{
			Model: "claude-3-5-haiku-20241022",
		},
		Retry: RetryConfig{
			MaxRetries:       3,
			InitialBackoff:   1 * time.Second,
			MaxBackoff:       30 * time.Second,
			Timeout:          60 * time.Second,
			FailureThreshold: 5,
			OpenTimeout:      30 * time.Second,
		},
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path is required")
	}
	if c.Scope == "" {
		return fmt.Errorf("scope is required")
	}
	if c.Workers < 1 || c.Workers > 64 {
		return fmt.Errorf("workers must be between 1 and 64 (got %d)", c.Workers)
	}
	if c.MaxTextChars < 1000 {
		return fmt.Errorf("max_text_chars too small (got %d, min 1000)", c.MaxTextChars)
	}
	if c.MinClusterSize < 2 || c.MinClusterSize > 50 {
		return fmt.Errorf("min_cluster_size must be between 2 and 50 (got %d)", c.MinClusterSize)
	}
	if err := checkUnit("density_similarity", c.DensitySimilarity); err != nil {
		return err
	}
	if c.DensitySimilarity == 0 {
		return fmt.Errorf("density_similarity must be positive")
	}
	if err := checkUnit("match_threshold", c.MatchThreshold); err != nil {
		return err
	}
	if c.MatchThreshold == 0 {
		return fmt.Errorf("match_threshold must be positive")
	}
	if err := checkUnit("min_candidate_score", c.MinCandidateScore); err != nil {
		return err
	}

	if c.Embedding.Enabled {
		if c.Embedding.Model == "" {
			return fmt.Errorf("embedding.model is required when embeddings are enabled")
		}
		if c.Embedding.RequestsPerSecond <= 0 {
			return fmt.Errorf("embedding.requests_per_second must be positive (got %.2f)", c.Embedding.RequestsPerSecond)
		}
		if c.Embedding.MaxConcurrent < 1 {
			return fmt.Errorf("embedding.max_concurrent must be positive (got %d)", c.Embedding.MaxConcurrent)
		}
	}
	if c.Narrative.MaxTokens < 1 || c.Narrative.MaxTokens > 8192 {
		return fmt.Errorf("narrative.max_tokens must be between 1 and 8192 (got %d)", c.Narrative.MaxTokens)
	}

	if c.Retry.MaxRetries < 0 || c.Retry.MaxRetries > 10 {
		return fmt.Errorf("retry.max_retries must be between 0 and 10 (got %d)", c.Retry.MaxRetries)
	}
	if c.Retry.InitialBackoff <= 0 || c.Retry.MaxBackoff < c.Retry.InitialBackoff {
		return fmt.Errorf("retry backoff must satisfy 0 < initial (%v) <= max (%v)", c.Retry.InitialBackoff, c.Retry.MaxBackoff)
	}
	if c.Retry.Timeout <= 0 || c.Retry.Timeout > 5*time.Minute {
		return fmt.Errorf("retry.timeout must be positive and at most 5 minutes (got %v)", c.Retry.Timeout)
	}
	if c.Retry.FailureThreshold < 1 {
		return fmt.Errorf("retry.failure_threshold must be positive (got %d)", c.Retry.FailureThreshold)
	}
	if c.Retry.OpenTimeout <= 0 {
		return fmt.Errorf("retry.open_timeout must be positive (got %v)", c.Retry.OpenTimeout)
	}
	return nil
}

func checkUnit(name string, v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%s must be between 0.0 and 1.0 (got %.2f)", name, v)
	}
	return nil
}

// String returns a human-readable representation of the config
func (c Config) String() string {
	return fmt.Sprintf(
		"Config{DB: %s, Scope: %s, Workers: %d, MaxText: %d, MinCluster: %d, Density: %.2f, "+
			"Match: %.2f, MinScore: %.2f, AutoApply: %t, Embeddings: %t, LLMNER: %t}",
		c.DatabasePath, c.Scope, c.Workers, c.MaxTextChars, c.MinClusterSize, c.DensitySimilarity,
		c.MatchThreshold, c.MinCandidateScore, c.AutoApplySafeAdditions, c.Embedding.Enabled, c.NER.UseLLM,
	)
}
