// Package search ties the layers together: semantic cache lookup first,
// then a rate-limited, retrying upstream fetch whose processed result is
// written back to the cache. Concurrent identical requests share one
// upstream call.
package search
