// Package embedder generates vector embeddings for search queries.
//
// Two providers are supported: OpenAI's embedding API and a local
// token-hash embedder that needs no network or API key. Both sit behind
// an LRU cache keyed by text hash, so repeated queries embed once.
package embedder
