// Package mcp implements the Model Context Protocol (MCP) server for
// the web search cache.
//
// The server exposes three tools to MCP clients:
//   - web_search: Search the web, answered from the semantic cache when
//     a similar recent query exists
//   - cache_stats: Report cache size and quota usage
//   - clear_cache: Remove cached results, optionally expired-only
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport. The server
// listens on stdin and writes responses to stdout, so all logging goes
// to stderr.
//
// # Tool: web_search
//
//	Request:
//	{
//	  "name": "web_search",
//	  "arguments": {
//	    "query": "golang error handling best practices",
//	    "count": 10,
//	    "offset": 0,
//	    "search_type": "web"
//	  }
//	}
//
// The response is the formatted result text. Its header says whether the
// answer came from cache and how old the cached entry is.
package mcp
