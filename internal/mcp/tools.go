package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/toolrack/websearch-mcp/internal/ratelimit"
	"github.com/toolrack/websearch-mcp/internal/search"
)

// MCP error codes
const (
	ErrorCodeInvalidParams  = -32602 // Invalid method parameters
	ErrorCodeInternalError  = -32603 // Internal JSON-RPC error
	ErrorCodeQuotaExhausted = -32001 // Long-window search quota spent
	ErrorCodeUpstreamFailed = -32002 // Search API failed after retries
	ErrorCodeEmptyQuery     = -32004 // Query parameter is empty
)

// handleWebSearch handles the web_search tool invocation
func (s *Server) handleWebSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	count := getIntDefault(args, "count", search.DefaultCount)
	if count < 1 || count > 20 {
		return nil, newMCPError(ErrorCodeInvalidParams, "count must be between 1 and 20", map[string]interface{}{
			"param": "count",
			"value": count,
		})
	}

	offset := getIntDefault(args, "offset", 0)
	if offset < 0 || offset > 9 {
		return nil, newMCPError(ErrorCodeInvalidParams, "offset must be between 0 and 9", map[string]interface{}{
			"param": "offset",
			"value": offset,
		})
	}

	searchType := getStringDefault(args, "search_type", search.TypeWeb)
	if searchType != search.TypeWeb && searchType != search.TypeCode && searchType != search.TypeNews {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid search_type", map[string]interface{}{
			"param":   "search_type",
			"value":   searchType,
			"allowed": []string{search.TypeWeb, search.TypeCode, search.TypeNews},
		})
	}

	resp, err := s.search.Search(ctx, search.Request{
		Query:      query,
		Count:      count,
		Offset:     offset,
		SearchType: searchType,
	})
	if err != nil {
		var quotaErr *ratelimit.QuotaExhaustedError
		switch {
		case errors.As(err, &quotaErr):
			return nil, newMCPError(ErrorCodeQuotaExhausted, "search quota exhausted", map[string]interface{}{
				"resets_in": quotaErr.Reset.String(),
			})
		case errors.Is(err, search.ErrEmptyQuery):
			return nil, newMCPError(ErrorCodeEmptyQuery, "query cannot be empty", nil)
		default:
			return nil, newMCPError(ErrorCodeUpstreamFailed, "search failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	return mcp.NewToolResultText(resp.Text), nil
}

// handleCacheStats handles the cache_stats tool invocation
func (s *Server) handleCacheStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	size, err := s.cache.Size(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to read cache size", map[string]interface{}{
			"error": err.Error(),
		})
	}

	quota := s.limiter.State()
	response := map[string]interface{}{
		"cache": map[string]interface{}{
			"entries": size,
		},
		"embedder": map[string]interface{}{
			"provider":  s.embedder.Provider(),
			"dimension": s.embedder.Dimension(),
		},
		"quota": map[string]interface{}{
			"short_window_used": quota.ShortCount,
			"short_window_cap":  quota.ShortCap,
			"long_window_used":  quota.LongCount,
			"long_window_cap":   quota.LongCap,
			"long_window_reset": quota.LongReset.String(),
		},
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleClearCache handles the clear_cache tool invocation
func (s *Server) handleClearCache(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	expiredOnly := getBoolDefault(args, "expired_only", false)

	if expiredOnly {
		removed, err := s.cache.CleanupExpired(ctx)
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "failed to clear expired entries", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return mcp.NewToolResultText(formatJSON(map[string]interface{}{
			"cleared": removed,
			"scope":   "expired",
		})), nil
	}

	size, _ := s.cache.Size(ctx)
	if err := s.cache.Clear(ctx); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to clear cache", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"cleared": size,
		"scope":   "all",
	})), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
