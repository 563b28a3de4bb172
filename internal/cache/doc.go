// Package cache implements semantic result caching: queries are matched
// by embedding similarity rather than exact text, so rephrasings of a
// recent search reuse its stored result. Lookups scan only a bounded
// window of the most recent entries per search type.
package cache
