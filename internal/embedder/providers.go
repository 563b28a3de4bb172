package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/toolrack/websearch-mcp/internal/retry"
)

// Provider names
const (
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"
)

const (
	// DefaultOpenAIModel is the embedding model used unless overridden
	DefaultOpenAIModel = "text-embedding-3-small"

	// OpenAIDimension is the dimension of text-embedding-3-small vectors
	OpenAIDimension = 1536

	// LocalDimension is the dimension of local token-hash vectors
	LocalDimension = 384

	openaiEndpoint = "https://api.openai.com/v1/embeddings"

	// warmupText is the canonical probe used to verify the backend
	warmupText = "warmup probe"
)

// OpenAIProvider generates embeddings via the OpenAI API.
type OpenAIProvider struct {
	apiKey     string
	model      string
	httpClient *http.Client
	cache      *Cache
	retrier    *retry.Orchestrator
	logger     *slog.Logger

	warmOnce sync.Once
	warmErr  error
}

// NewOpenAIProvider creates an OpenAI embedding provider. An empty model
// selects DefaultOpenAIModel.
func NewOpenAIProvider(apiKey, model string, cacheSize int, logger *slog.Logger) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key required", ErrModelUnavailable)
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	cache, err := NewCache(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}

	policy := retry.DefaultPolicy()
	policy.Classify = retry.RetryAllErrors

	return &OpenAIProvider{
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cache:      cache,
		retrier:    retry.New(policy, nil, logger),
		logger:     logger,
	}, nil
}

// Warmup verifies the API is reachable by embedding a canonical probe.
// The result is memoized: later calls return the first outcome.
func (p *OpenAIProvider) Warmup(ctx context.Context) error {
	p.warmOnce.Do(func() {
		if _, err := p.callAPI(ctx, warmupText); err != nil {
			p.warmErr = fmt.Errorf("%w: %v", ErrModelUnavailable, err)
		}
	})
	return p.warmErr
}

// Embed generates an embedding for the text, consulting the cache first.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	if err := p.Warmup(ctx); err != nil {
		return nil, err
	}
	if vec, ok := p.cache.Get(text); ok {
		return vec, nil
	}

	vec, err := retry.Run(ctx, p.retrier, "embed", func(ctx context.Context) ([]float32, error) {
		return p.callAPI(ctx, text)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	p.cache.Put(text, vec)
	return vec, nil
}

func (p *OpenAIProvider) callAPI(ctx context.Context, text string) ([]float32, error) {
	reqBody, err := json.Marshal(map[string]any{
		"input": text,
		"model": p.model,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openaiEndpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embeddings API returned status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode embeddings response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("embeddings response contained no data")
	}
	return parsed.Data[0].Embedding, nil
}

// Dimension returns the embedding dimension
func (p *OpenAIProvider) Dimension() int { return OpenAIDimension }

// Provider returns the provider name
func (p *OpenAIProvider) Provider() string { return ProviderOpenAI }

// Close releases resources
func (p *OpenAIProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

// LocalProvider generates deterministic token-hash embeddings without
// any network dependency. Each lowercase token hashes into a bucket of a
// fixed-dimension vector, so queries sharing vocabulary land close in
// cosine space. Useful for offline operation and tests; not a semantic
// model.
type LocalProvider struct {
	cache *Cache
}

// NewLocalProvider creates a local embedding provider.
func NewLocalProvider(cacheSize int) (*LocalProvider, error) {
	cache, err := NewCache(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}
	return &LocalProvider{cache: cache}, nil
}

// Warmup is a no-op: the local embedder has nothing to initialize.
func (p *LocalProvider) Warmup(ctx context.Context) error { return nil }

// Embed generates a token-hash embedding for the text.
func (p *LocalProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	if vec, ok := p.cache.Get(text); ok {
		return vec, nil
	}

	vec := make([]float32, LocalDimension)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		vec[h.Sum32()%LocalDimension]++
	}

	// L2-normalize so cosine similarity reduces to a dot product.
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}

	p.cache.Put(text, vec)
	return vec, nil
}

// Dimension returns the embedding dimension
func (p *LocalProvider) Dimension() int { return LocalDimension }

// Provider returns the provider name
func (p *LocalProvider) Provider() string { return ProviderLocal }

// Close releases resources
func (p *LocalProvider) Close() error { return nil }
