package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// webSearchTool returns the tool definition for web_search
func webSearchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "web_search",
		Description: "Search the web. Semantically similar recent queries are answered from cache without consuming API quota",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query",
				},
				"count": map[string]interface{}{
					"type":        "integer",
					"description": "Number of results to return (1-20)",
					"default":     10,
					"minimum":     1,
					"maximum":     20,
				},
				"offset": map[string]interface{}{
					"type":        "integer",
					"description": "Page offset for pagination (0-9)",
					"default":     0,
					"minimum":     0,
					"maximum":     9,
				},
				"search_type": map[string]interface{}{
					"type":        "string",
					"description": "Result category; cache lookups never cross categories",
					"enum":        []string{"web", "code", "news"},
					"default":     "web",
				},
			},
			Required: []string{"query"},
		},
	}
}

// cacheStatsTool returns the tool definition for cache_stats
func cacheStatsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "cache_stats",
		Description: "Report cache size and rate-limit quota usage",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// clearCacheTool returns the tool definition for clear_cache
func clearCacheTool() mcp.Tool {
	return mcp.Tool{
		Name:        "clear_cache",
		Description: "Remove all cached search results",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"expired_only": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, remove only entries whose TTL has elapsed",
					"default":     false,
				},
			},
		},
	}
}
