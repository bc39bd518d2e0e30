package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Load reads the workspace config file under root, applies RDSCOUT_*
// environment overrides and validates the result
func Load(root string) (Config, error) {
	cfg, err := LoadFile(root)
	if err != nil {
		return cfg, err
	}
	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with any RDSCOUT_* environment variables that are set
func ApplyEnv(cfg *Config) error {
	if v := os.Getenv("RDSCOUT_SCOPE"); v != "" {
		cfg.Scope = v
	}
	if v := os.Getenv("RDSCOUT_TAXONOMY"); v != "" {
		cfg.TaxonomyPath = v
	}
	if v := os.Getenv("RDSCOUT_EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("RDSCOUT_NARRATIVE_MODEL"); v != "" {
		cfg.Narrative.Model = v
	}

	if err := parseEnvInt("RDSCOUT_WORKERS", &cfg.Workers); err != nil {
		return err
	}
	if err := parseEnvInt("RDSCOUT_MAX_TEXT_CHARS", &cfg.MaxTextChars); err != nil {
		return err
	}
	if err := parseEnvInt("RDSCOUT_MIN_CLUSTER_SIZE", &cfg.MinClusterSize); err != nil {
		return err
	}
	if err := parseEnvFloat("RDSCOUT_DENSITY_SIMILARITY", &cfg.DensitySimilarity); err != nil {
		return err
	}
	if err := parseEnvFloat("RDSCOUT_MATCH_THRESHOLD", &cfg.MatchThreshold); err != nil {
		return err
	}
	if err := parseEnvFloat("RDSCOUT_MIN_CANDIDATE_SCORE", &cfg.MinCandidateScore); err != nil {
		return err
	}
	if err := parseEnvBool("RDSCOUT_AUTO_APPLY", &cfg.AutoApplySafeAdditions); err != nil {
		return err
	}
	if err := parseEnvBool("RDSCOUT_EMBEDDINGS", &cfg.Embedding.Enabled); err != nil {
		return err
	}
	if err := parseEnvFloat("RDSCOUT_EMBEDDING_RPS", &cfg.Embedding.RequestsPerSecond); err != nil {
		return err
	}
	if err := parseEnvBool("RDSCOUT_LLM_NER", &cfg.NER.UseLLM); err != nil {
		return err
	}
	if err := parseEnvInt("RDSCOUT_MAX_RETRIES", &cfg.Retry.MaxRetries); err != nil {
		return err
	}
	if err := parseEnvDuration("RDSCOUT_TIMEOUT_SECS", &cfg.Retry.Timeout, time.Second); err != nil {
		return err
	}
	return nil
}

// parseEnvFloat parses a float64 from an environment variable
func parseEnvFloat(key string, dest *float64) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvInt parses an int from an environment variable
func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvBool parses a bool from an environment variable
func parseEnvBool(key string, dest *bool) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvDuration parses an integer count of multiplier units
func parseEnvDuration(key string, dest *time.Duration, multiplier time.Duration) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = time.Duration(parsed) * multiplier
	return nil
}
