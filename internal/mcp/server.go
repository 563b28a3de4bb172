package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/toolrack/websearch-mcp/internal/cache"
	"github.com/toolrack/websearch-mcp/internal/config"
	"github.com/toolrack/websearch-mcp/internal/embedder"
	"github.com/toolrack/websearch-mcp/internal/provider"
	"github.com/toolrack/websearch-mcp/internal/ratelimit"
	"github.com/toolrack/websearch-mcp/internal/retry"
	"github.com/toolrack/websearch-mcp/internal/search"
	"github.com/toolrack/websearch-mcp/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "websearch-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	store    storage.Store
	embedder embedder.Embedder
	cache    *cache.SimilarityCache
	limiter  *ratelimit.Limiter
	search   *search.Orchestrator
	logger   *slog.Logger
}

// NewServer creates a new MCP server instance wired from the given
// configuration.
func NewServer(cfg config.Config, logger *slog.Logger) (*Server, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("search API key required: set %s", config.EnvAPIKey)
	}
	if logger == nil {
		logger = slog.Default()
	}

	dbPath, err := resolveDBPath(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	emb, err := embedder.New(embedder.Options{
		Provider: cfg.EmbeddingProvider,
		Logger:   logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	simCache := cache.New(store, emb, cache.Config{
		Threshold:     cfg.SimilarityThreshold,
		MaxCandidates: cfg.MaxCandidates,
	}, logger)

	limiter := ratelimit.New(ratelimit.Config{
		ShortWindowCap: cfg.ShortWindowCap,
		ShortWindow:    cfg.ShortWindow,
		LongWindowCap:  cfg.LongWindowCap,
		LongWindow:     cfg.LongWindow,
	})

	policy := retry.DefaultPolicy()
	policy.MaxAttempts = cfg.MaxRetryAttempts
	retrier := retry.New(policy, limiter, logger)

	client := provider.NewClient(cfg.APIKey, cfg.Endpoint)

	orchestrator := search.New(simCache, client, retrier, search.Config{
		CacheEnabled: cfg.CacheEnabled,
		CacheTTL:     cfg.CacheTTL,
		MaxPerDomain: cfg.MaxPerDomain,
	}, logger)

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:      mcpServer,
		store:    store,
		embedder: emb,
		cache:    simCache,
		limiter:  limiter,
		search:   orchestrator,
		logger:   logger,
	}

	s.registerTools()
	return s, nil
}

// Serve warms the embedder, starts the MCP server on stdio and blocks
// until shutdown. A failed warmup is logged, not fatal: the cache
// degrades to miss-only and searches still work.
func (s *Server) Serve(ctx context.Context) error {
	defer func() {
		_ = s.embedder.Close()
		_ = s.store.Close()
	}()

	if err := s.embedder.Warmup(ctx); err != nil {
		s.logger.Warn("embedder warmup failed, cache will be bypassed", "error", err)
	} else {
		s.logger.Info("embedder ready", "provider", s.embedder.Provider(), "dimension", s.embedder.Dimension())
	}

	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(webSearchTool(), s.handleWebSearch)
	s.mcp.AddTool(cacheStatsTool(), s.handleCacheStats)
	s.mcp.AddTool(clearCacheTool(), s.handleClearCache)
}

// resolveDBPath expands the default database location under the user's
// home directory and creates the parent directory.
func resolveDBPath(dbPath string) (string, error) {
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".websearch", "cache.db")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create database directory: %w", err)
	}
	return dbPath, nil
}
