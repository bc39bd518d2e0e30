package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 50000, cfg.MaxTextChars)
	assert.Equal(t, 3, cfg.MinClusterSize)
	assert.InDelta(t, 0.60, cfg.MatchThreshold, 1e-9)
	assert.False(t, cfg.AutoApplySafeAdditions)
	assert.False(t, cfg.Embedding.Enabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"no workers", func(c *Config) { c.Workers = 0 }, "workers must be between"},
		{"too many workers", func(c *Config) { c.Workers = 65 }, "workers must be between"},
		{"tiny text cap", func(c *Config) { c.MaxTextChars = 10 }, "max_text_chars"},
		{"cluster size 1", func(c *Config) { c.MinClusterSize = 1 }, "min_cluster_size"},
		{"match above one", func(c *Config) { c.MatchThreshold = 1.5 }, "match_threshold"},
		{"match zero", func(c *Config) { c.MatchThreshold = 0 }, "match_threshold must be positive"},
		{"negative min score", func(c *Config) { c.MinCandidateScore = -0.1 }, "min_candidate_score"},
		{"empty scope", func(c *Config) { c.Scope = "" }, "scope is required"},
		{"embedding without rate", func(c *Config) {
			c.Embedding.Enabled = true
			c.Embedding.RequestsPerSecond = 0
		}, "requests_per_second"},
		{"inverted backoff", func(c *Config) { c.Retry.MaxBackoff = time.Millisecond }, "backoff"},
		{"huge timeout", func(c *Config) { c.Retry.Timeout = time.Hour }, "retry.timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFile_MissingReturnsDefaults(t *testing.T) {
	cfg, err := LoadFile(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".rdscout"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".rdscout", FileName), []byte(body), 0644))
	return root
}

func TestLoadFile_Overrides(t *testing.T) {
	root := writeConfig(t, `
scope: lab-a
workers: 8
match_threshold: 0.7
min_candidate_score: 0
auto_apply_safe_additions: true
embedding:
  enabled: true
  requests_per_second: 2.5
retry:
  max_retries: 0
  timeout: 90s
`)
	cfg, err := LoadFile(root)
	require.NoError(t, err)

	assert.Equal(t, "lab-a", cfg.Scope)
	assert.Equal(t, 8, cfg.Workers)
	assert.InDelta(t, 0.7, cfg.MatchThreshold, 1e-9)
	assert.True(t, cfg.AutoApplySafeAdditions)
	assert.True(t, cfg.Embedding.Enabled)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.InDelta(t, 2.5, cfg.Embedding.RequestsPerSecond, 1e-9)
	assert.Equal(t, 0, cfg.Retry.MaxRetries)
	assert.Equal(t, 90*time.Second, cfg.Retry.Timeout)
	assert.Equal(t, 3, cfg.MinClusterSize)
}

func TestLoadFile_BadDuration(t *testing.T) {
	root := writeConfig(t, "retry:\n  timeout: soon\n")
	_, err := LoadFile(root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retry.timeout")
}

func TestLoadFile_BadYAML(t *testing.T) {
	root := writeConfig(t, "workers: [1, 2\n")
	_, err := LoadFile(root)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "parsing config file"))
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("RDSCOUT_SCOPE", "env-scope")
	t.Setenv("RDSCOUT_WORKERS", "2")
	t.Setenv("RDSCOUT_AUTO_APPLY", "true")
	t.Setenv("RDSCOUT_TIMEOUT_SECS", "15")

	cfg := DefaultConfig()
	require.NoError(t, ApplyEnv(&cfg))
	assert.Equal(t, "env-scope", cfg.Scope)
	assert.Equal(t, 2, cfg.Workers)
	assert.True(t, cfg.AutoApplySafeAdditions)
	assert.Equal(t, 15*time.Second, cfg.Retry.Timeout)
}

func TestApplyEnv_InvalidValue(t *testing.T) {
	t.Setenv("RDSCOUT_MATCH_THRESHOLD", "high")
	cfg := DefaultConfig()
	err := ApplyEnv(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid value for RDSCOUT_MATCH_THRESHOLD")
}

func TestLoad_ValidatesMergedResult(t *testing.T) {
	root := writeConfig(t, "workers: 4\n")
	t.Setenv("RDSCOUT_WORKERS", "500")
	_, err := Load(root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers must be between")
}

func TestWriteDefault(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".rdscout"), 0755))

	path, err := WriteDefault(root)
	require.NoError(t, err)

	cfg, err := LoadFile(root)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	// second write keeps user edits
	require.NoError(t, os.WriteFile(path, []byte("scope: mine\n"), 0644))
	_, err = WriteDefault(root)
	require.NoError(t, err)
	cfg, err = LoadFile(root)
	require.NoError(t, err)
	assert.Equal(t, "mine", cfg.Scope)
}

func TestString(t *testing.T) {
	s := DefaultConfig().String()
	assert.Contains(t, s, "Workers: 4")
	assert.Contains(t, s, "Match: 0.60")
}
