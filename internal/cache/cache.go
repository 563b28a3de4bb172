package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/toolrack/websearch-mcp/internal/embedder"
	"github.com/toolrack/websearch-mcp/internal/storage"
)

// Config controls similarity matching.
type Config struct {
	// Threshold is the minimum cosine similarity for a hit.
	Threshold float64

	// MaxCandidates bounds how many recent entries per search type are
	// compared on each lookup.
	MaxCandidates int
}

// Hit is a cache entry that cleared the similarity threshold.
type Hit struct {
	Entry      *storage.Entry
	Similarity float64
}

// SimilarityCache finds previously stored results whose query embedding
// is close enough to the incoming query's.
//
// The cache degrades, never fails: embedding or storage errors on the
// lookup path log and report a miss, and write errors log and drop the
// entry. A broken cache costs an upstream fetch, not the search.
type SimilarityCache struct {
	store    storage.Store
	embedder embedder.Embedder
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a similarity cache over the given store and embedder.
func New(store storage.Store, emb embedder.Embedder, cfg Config, logger *slog.Logger) *SimilarityCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &SimilarityCache{
		store:    store,
		embedder: emb,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// FindSimilar embeds the query and looks for a live entry of the same
// search type within the similarity threshold. Returns nil on a miss.
func (c *SimilarityCache) FindSimilar(ctx context.Context, query, searchType string) *Hit {
	vec, err := c.embedder.Embed(ctx, query)
	if err != nil {
		c.logger.Warn("embedding unavailable, skipping cache lookup", "error", err)
		return nil
	}
	return c.FindSimilarVector(ctx, vec, searchType)
}

// FindSimilarVector is FindSimilar with a precomputed query embedding.
// Candidates are the MaxCandidates most recently stored entries of the
// search type; among those at or above the threshold, the most similar
// wins. Expired entries are purged before the scan so they can never
// match.
func (c *SimilarityCache) FindSimilarVector(ctx context.Context, vec []float32, searchType string) *Hit {
	nowMs := c.now().UnixMilli()

	if n, err := c.store.DeleteExpired(ctx, nowMs); err != nil {
		c.logger.Warn("failed to purge expired cache entries", "error", err)
	} else if n > 0 {
		c.logger.Debug("purged expired cache entries", "count", n)
	}

	entries, err := c.store.RecentEntries(ctx, searchType, c.cfg.MaxCandidates)
	if err != nil {
		c.logger.Warn("cache lookup failed, treating as miss", "error", err)
		return nil
	}

	var best *Hit
	for _, entry := range entries {
		if !entry.Live(nowMs) {
			continue
		}
		sim := storage.CosineSimilarity(vec, storage.DeserializeVector(entry.Embedding))
		if sim < c.cfg.Threshold {
			continue
		}
		if best == nil || sim > best.Similarity {
			best = &Hit{Entry: entry, Similarity: sim}
		}
	}
	return best
}

// Store embeds the query and persists the result. Best effort: failures
// are logged and swallowed so a search never fails on the write path.
// Non-positive TTLs store an already-expired entry, effectively a no-op.
func (c *SimilarityCache) Store(ctx context.Context, query, searchType, result string, ttl time.Duration) {
	vec, err := c.embedder.Embed(ctx, query)
	if err != nil {
		c.logger.Warn("embedding unavailable, result not cached", "error", err)
		return
	}

	entry := &storage.Entry{
		Query:      query,
		Embedding:  storage.SerializeVector(vec),
		Result:     result,
		SearchType: searchType,
		Timestamp:  c.now().UnixMilli(),
		TTL:        ttl.Milliseconds(),
	}
	if err := c.store.InsertEntry(ctx, entry); err != nil {
		c.logger.Warn("cache write failed", "error", err)
	}
}

// CleanupExpired removes expired entries, returning how many went.
func (c *SimilarityCache) CleanupExpired(ctx context.Context) (int, error) {
	return c.store.DeleteExpired(ctx, c.now().UnixMilli())
}

// Size returns the number of stored entries, expired ones included.
func (c *SimilarityCache) Size(ctx context.Context) (int, error) {
	return c.store.CountEntries(ctx)
}

// Clear removes all entries.
func (c *SimilarityCache) Clear(ctx context.Context) error {
	return c.store.DeleteAll(ctx)
}
