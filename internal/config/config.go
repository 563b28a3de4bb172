package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Environment variable names recognized by the server.
const (
	EnvAPIKey              = "WEBSEARCH_API_KEY"
	EnvEndpoint            = "WEBSEARCH_ENDPOINT"
	EnvDBPath              = "WEBSEARCH_DB_PATH"
	EnvCacheEnabled        = "WEBSEARCH_CACHE_ENABLED"
	EnvSimilarityThreshold = "WEBSEARCH_SIMILARITY_THRESHOLD"
	EnvCacheTTLSeconds     = "WEBSEARCH_CACHE_TTL_SECONDS"
	EnvMaxCandidates       = "WEBSEARCH_MAX_CANDIDATES"
	EnvMaxPerDomain        = "WEBSEARCH_MAX_RESULTS_PER_DOMAIN"
	EnvShortWindowCap      = "WEBSEARCH_RATE_LIMIT_PER_SECOND"
	EnvLongWindowCap       = "WEBSEARCH_RATE_LIMIT_PER_MONTH"
	EnvMaxRetryAttempts    = "WEBSEARCH_RETRY_MAX_ATTEMPTS"
	EnvEmbeddingProvider   = "WEBSEARCH_EMBEDDING_PROVIDER"
)

// Defaults for every tunable. The similarity threshold and candidate bound
// are deliberate tradeoffs; see the cache package for the scan semantics.
const (
	DefaultSimilarityThreshold = 0.92
	DefaultCacheTTL            = time.Hour
	DefaultMaxCandidates       = 100
	DefaultMaxPerDomain        = 2
	DefaultShortWindowCap      = 1
	DefaultShortWindow         = time.Second
	DefaultLongWindowCap       = 2000
	DefaultLongWindow          = 30 * 24 * time.Hour
	DefaultMaxRetryAttempts    = 3
)

// Config holds the full runtime configuration for the search server.
type Config struct {
	// Upstream provider
	APIKey   string
	Endpoint string // empty means the provider default

	// Cache
	DBPath              string
	CacheEnabled        bool
	SimilarityThreshold float64
	CacheTTL            time.Duration
	MaxCandidates       int

	// Result processing
	MaxPerDomain int

	// Rate limiting
	ShortWindowCap int
	ShortWindow    time.Duration
	LongWindowCap  int
	LongWindow     time.Duration

	// Retry
	MaxRetryAttempts int

	// Embedding
	EmbeddingProvider string // empty means auto-detect
}

// Default returns a Config populated with all default values.
func Default() Config {
	return Config{
		CacheEnabled:        true,
		SimilarityThreshold: DefaultSimilarityThreshold,
		CacheTTL:            DefaultCacheTTL,
		MaxCandidates:       DefaultMaxCandidates,
		MaxPerDomain:        DefaultMaxPerDomain,
		ShortWindowCap:      DefaultShortWindowCap,
		ShortWindow:         DefaultShortWindow,
		LongWindowCap:       DefaultLongWindowCap,
		LongWindow:          DefaultLongWindow,
		MaxRetryAttempts:    DefaultMaxRetryAttempts,
	}
}

// FromEnv builds a Config from environment variables, starting from the
// defaults. Malformed values are logged and ignored rather than treated as
// fatal, so a typo in one variable never prevents startup.
func FromEnv() Config {
	cfg := Default()

	cfg.APIKey = os.Getenv(EnvAPIKey)
	cfg.Endpoint = os.Getenv(EnvEndpoint)
	cfg.DBPath = os.Getenv(EnvDBPath)
	cfg.EmbeddingProvider = os.Getenv(EnvEmbeddingProvider)

	cfg.CacheEnabled = envBool(EnvCacheEnabled, cfg.CacheEnabled)
	cfg.SimilarityThreshold = envFloat(EnvSimilarityThreshold, cfg.SimilarityThreshold)
	cfg.MaxCandidates = envInt(EnvMaxCandidates, cfg.MaxCandidates)
	cfg.MaxPerDomain = envInt(EnvMaxPerDomain, cfg.MaxPerDomain)
	cfg.ShortWindowCap = envInt(EnvShortWindowCap, cfg.ShortWindowCap)
	cfg.LongWindowCap = envInt(EnvLongWindowCap, cfg.LongWindowCap)
	cfg.MaxRetryAttempts = envInt(EnvMaxRetryAttempts, cfg.MaxRetryAttempts)

	if secs := envInt(EnvCacheTTLSeconds, int(cfg.CacheTTL/time.Second)); secs >= 0 {
		cfg.CacheTTL = time.Duration(secs) * time.Second
	}

	return cfg.sanitized()
}

// sanitized clamps out-of-range values back to defaults.
func (c Config) sanitized() Config {
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		slog.Warn("similarity threshold out of range, using default",
			"value", c.SimilarityThreshold, "default", DefaultSimilarityThreshold)
		c.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if c.MaxCandidates <= 0 {
		c.MaxCandidates = DefaultMaxCandidates
	}
	if c.MaxPerDomain <= 0 {
		c.MaxPerDomain = DefaultMaxPerDomain
	}
	if c.ShortWindowCap <= 0 {
		c.ShortWindowCap = DefaultShortWindowCap
	}
	if c.LongWindowCap <= 0 {
		c.LongWindowCap = DefaultLongWindowCap
	}
	if c.MaxRetryAttempts <= 0 {
		c.MaxRetryAttempts = DefaultMaxRetryAttempts
	}
	return c
}

func envBool(key string, def bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		slog.Warn("invalid boolean environment variable", "key", key, "value", val)
		return def
	}
	return parsed
}

func envInt(key string, def int) int {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		slog.Warn("invalid integer environment variable", "key", key, "value", val)
		return def
	}
	return parsed
}

func envFloat(key string, def float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		slog.Warn("invalid float environment variable", "key", key, "value", val)
		return def
	}
	return parsed
}
