package embedder

import (
	"fmt"
	"log/slog"
	"os"
)

// DefaultCacheSize is the default embedding LRU cache capacity
const DefaultCacheSize = 1000

// Options configures embedder creation.
type Options struct {
	// Provider is "openai" or "local". Empty selects automatically:
	// openai when an API key is available, local otherwise.
	Provider string

	// APIKey is the OpenAI API key. Falls back to OPENAI_API_KEY.
	APIKey string

	// Model overrides the OpenAI embedding model.
	Model string

	// CacheSize is the LRU capacity; zero selects DefaultCacheSize.
	CacheSize int

	Logger *slog.Logger
}

// New creates an embedder from the given options.
func New(opts Options) (Embedder, error) {
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.APIKey == "" {
		opts.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if opts.Provider == "" {
		if opts.APIKey != "" {
			opts.Provider = ProviderOpenAI
		} else {
			opts.Provider = ProviderLocal
		}
	}

	switch opts.Provider {
	case ProviderOpenAI:
		return NewOpenAIProvider(opts.APIKey, opts.Model, opts.CacheSize, opts.Logger)
	case ProviderLocal:
		return NewLocalProvider(opts.CacheSize)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, opts.Provider)
	}
}
