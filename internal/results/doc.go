// Package results turns raw provider output into the text returned to
// clients: parsing labeled blocks, capping results per domain, and
// rendering with freshness metadata.
package results
