// Package provider is the HTTP client for the upstream web search API.
// It performs single requests only; retries, rate limiting and caching
// are layered above it.
package provider
