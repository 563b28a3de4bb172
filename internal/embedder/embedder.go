package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Common errors returned by embedders
var (
	// ErrModelUnavailable means the embedding backend could not be
	// reached or initialized. Callers should degrade rather than fail.
	ErrModelUnavailable = errors.New("embedding model unavailable")

	// ErrEmptyText is returned when attempting to embed empty text
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrUnsupportedProvider is returned for unknown provider types
	ErrUnsupportedProvider = errors.New("unsupported embedding provider")
)

// Embedder generates vector embeddings for query text
type Embedder interface {
	// Warmup prepares the model for use. Safe to call more than once;
	// only the first call does work.
	Warmup(ctx context.Context) error

	// Embed generates an embedding vector for the given text
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the embedding dimension
	Dimension() int

	// Provider returns the provider name
	Provider() string

	// Close releases any resources
	Close() error
}

// ComputeHash generates a SHA-256 hash of the text, used as the
// embedding cache key.
func ComputeHash(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}

// Cache is an LRU cache of computed embeddings keyed by text hash.
// Repeated embeds of the same text within one process hit memory
// instead of the backend, which also makes the lookup-then-store
// double embed on a cache miss effectively free.
type Cache struct {
	cache *lru.Cache[string, []float32]
}

// NewCache creates an embedding cache holding up to size vectors.
func NewCache(size int) (*Cache, error) {
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	return &Cache{cache: cache}, nil
}

// Get returns a copy of the cached embedding for the text, if present.
func (c *Cache) Get(text string) ([]float32, bool) {
	vec, ok := c.cache.Get(ComputeHash(text))
	if !ok {
		return nil, false
	}
	out := make([]float32, len(vec))
	copy(out, vec)
	return out, true
}

// Put stores an embedding for the text.
func (c *Cache) Put(text string, vec []float32) {
	stored := make([]float32, len(vec))
	copy(stored, vec)
	c.cache.Add(ComputeHash(text), stored)
}

// Len returns the number of cached embeddings.
func (c *Cache) Len() int {
	return c.cache.Len()
}
