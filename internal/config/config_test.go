package config

import (
	"testing"
	"time"
)

func TestDefaultValues(t *testing.T) {
	cfg := Default()

	if cfg.SimilarityThreshold != 0.92 {
		t.Errorf("unexpected threshold %f", cfg.SimilarityThreshold)
	}
	if cfg.CacheTTL != time.Hour {
		t.Errorf("unexpected TTL %v", cfg.CacheTTL)
	}
	if cfg.MaxCandidates != 100 || cfg.MaxPerDomain != 2 {
		t.Errorf("unexpected bounds: %+v", cfg)
	}
	if cfg.ShortWindowCap != 1 || cfg.LongWindowCap != 2000 {
		t.Errorf("unexpected rate limits: %+v", cfg)
	}
	if cfg.MaxRetryAttempts != 3 {
		t.Errorf("unexpected retry attempts %d", cfg.MaxRetryAttempts)
	}
	if !cfg.CacheEnabled {
		t.Error("cache should be enabled by default")
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv(EnvAPIKey, "key-123")
	t.Setenv(EnvSimilarityThreshold, "0.85")
	t.Setenv(EnvCacheTTLSeconds, "7200")
	t.Setenv(EnvCacheEnabled, "false")
	t.Setenv(EnvLongWindowCap, "500")

	cfg := FromEnv()

	if cfg.APIKey != "key-123" {
		t.Errorf("unexpected API key %q", cfg.APIKey)
	}
	if cfg.SimilarityThreshold != 0.85 {
		t.Errorf("unexpected threshold %f", cfg.SimilarityThreshold)
	}
	if cfg.CacheTTL != 2*time.Hour {
		t.Errorf("unexpected TTL %v", cfg.CacheTTL)
	}
	if cfg.CacheEnabled {
		t.Error("expected cache disabled")
	}
	if cfg.LongWindowCap != 500 {
		t.Errorf("unexpected long window cap %d", cfg.LongWindowCap)
	}
}

func TestFromEnvIgnoresMalformedValues(t *testing.T) {
	t.Setenv(EnvSimilarityThreshold, "not-a-number")
	t.Setenv(EnvMaxCandidates, "many")
	t.Setenv(EnvCacheEnabled, "maybe")

	cfg := FromEnv()

	if cfg.SimilarityThreshold != DefaultSimilarityThreshold {
		t.Errorf("expected default threshold, got %f", cfg.SimilarityThreshold)
	}
	if cfg.MaxCandidates != DefaultMaxCandidates {
		t.Errorf("expected default candidates, got %d", cfg.MaxCandidates)
	}
	if !cfg.CacheEnabled {
		t.Error("expected default cache enabled")
	}
}

func TestSanitizedClampsOutOfRange(t *testing.T) {
	t.Setenv(EnvSimilarityThreshold, "1.5")
	t.Setenv(EnvMaxPerDomain, "-3")
	t.Setenv(EnvMaxRetryAttempts, "0")

	cfg := FromEnv()

	if cfg.SimilarityThreshold != DefaultSimilarityThreshold {
		t.Errorf("expected threshold clamped to default, got %f", cfg.SimilarityThreshold)
	}
	if cfg.MaxPerDomain != DefaultMaxPerDomain {
		t.Errorf("expected per-domain cap clamped, got %d", cfg.MaxPerDomain)
	}
	if cfg.MaxRetryAttempts != DefaultMaxRetryAttempts {
		t.Errorf("expected retry attempts clamped, got %d", cfg.MaxRetryAttempts)
	}
}
