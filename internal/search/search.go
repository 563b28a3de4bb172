package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/toolrack/websearch-mcp/internal/cache"
	"github.com/toolrack/websearch-mcp/internal/provider"
	"github.com/toolrack/websearch-mcp/internal/results"
	"github.com/toolrack/websearch-mcp/internal/retry"
)

// Search types accepted by the orchestrator.
const (
	TypeWeb  = "web"
	TypeCode = "code"
	TypeNews = "news"
)

// Defaults applied to zero-valued request fields.
const (
	DefaultCount = 10
)

// ErrEmptyQuery is returned for requests with no query text.
var ErrEmptyQuery = errors.New("query cannot be empty")

// Fetcher performs one upstream search request. *provider.Client is the
// production implementation.
type Fetcher interface {
	Fetch(ctx context.Context, query string, count, offset int) (string, error)
}

// Request is one search invocation.
type Request struct {
	Query      string
	Count      int
	Offset     int
	SearchType string
}

// Response is the outcome of a search.
type Response struct {
	Text       string
	Cached     bool
	Similarity float64
	Latency    time.Duration
}

// Config controls orchestrator behavior.
type Config struct {
	CacheEnabled bool
	CacheTTL     time.Duration
	MaxPerDomain int
}

// Orchestrator runs the full search flow: cache lookup, rate-limited
// retrying upstream fetch, result processing, cache write.
type Orchestrator struct {
	cache   *cache.SimilarityCache
	fetcher Fetcher
	retrier *retry.Orchestrator
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time

	// group collapses concurrent identical requests into one upstream
	// fetch so duplicates cost no extra quota.
	group singleflight.Group
}

// New creates a search orchestrator.
func New(c *cache.SimilarityCache, fetcher Fetcher, retrier *retry.Orchestrator, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		cache:   c,
		fetcher: fetcher,
		retrier: retrier,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// Search resolves a request from cache or upstream.
//
// Cache and processing failures degrade silently; the only errors that
// surface are an empty query, an exhausted quota, a terminal upstream
// status, and retryable failures that outlived every attempt.
func (o *Orchestrator) Search(ctx context.Context, req Request) (*Response, error) {
	start := o.now()

	req = normalize(req)
	if req.Query == "" {
		return nil, ErrEmptyQuery
	}

	if o.cfg.CacheEnabled {
		if hit := o.cache.FindSimilar(ctx, req.Query, req.SearchType); hit != nil {
			latency := o.now().Sub(start)
			o.logger.Info("cache hit",
				"query", req.Query,
				"search_type", req.SearchType,
				"similarity", fmt.Sprintf("%.4f", hit.Similarity),
				"latency", latency)
			text := results.Compose(hit.Entry.Result, results.Metadata{
				Query:   req.Query,
				Cached:  true,
				Age:     results.FormatCacheAge(hit.Entry.Timestamp, o.now().UnixMilli()),
				Latency: latency,
			})
			return &Response{
				Text:       text,
				Cached:     true,
				Similarity: hit.Similarity,
				Latency:    latency,
			}, nil
		}
	}

	key := fmt.Sprintf("%s\x00%s\x00%d\x00%d", req.SearchType, req.Query, req.Count, req.Offset)
	raw, err, shared := o.group.Do(key, func() (any, error) {
		return retry.Run(ctx, o.retrier, "web search", func(ctx context.Context) (string, error) {
			return o.fetcher.Fetch(ctx, req.Query, req.Count, req.Offset)
		})
	})
	if err != nil {
		return nil, err
	}
	if shared {
		o.logger.Debug("request coalesced with identical in-flight search", "query", req.Query)
	}

	items := results.Parse(raw.(string))
	items = results.Deduplicate(items, o.cfg.MaxPerDomain, results.DomainKey)
	body := results.RenderItems(items)

	if o.cfg.CacheEnabled && len(items) > 0 {
		o.cache.Store(ctx, req.Query, req.SearchType, body, o.cfg.CacheTTL)
	}

	latency := o.now().Sub(start)
	o.logger.Info("cache miss, fetched upstream",
		"query", req.Query,
		"search_type", req.SearchType,
		"results", len(items),
		"latency", latency)

	text := results.Compose(body, results.Metadata{
		Query:   req.Query,
		Latency: latency,
	})
	return &Response{Text: text, Latency: latency}, nil
}

// normalize fills defaults and clamps ranges. Unknown search types fall
// back to web rather than erroring, matching the tool schema default.
func normalize(req Request) Request {
	if req.Count == 0 {
		req.Count = DefaultCount
	}
	if req.Count > provider.MaxCount {
		req.Count = provider.MaxCount
	}
	if req.Count < 1 {
		req.Count = 1
	}
	if req.Offset < 0 {
		req.Offset = 0
	}
	if req.Offset > provider.MaxOffset {
		req.Offset = provider.MaxOffset
	}
	switch req.SearchType {
	case TypeWeb, TypeCode, TypeNews:
	default:
		req.SearchType = TypeWeb
	}
	return req
}
