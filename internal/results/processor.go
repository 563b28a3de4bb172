package results

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
)

// NoResultsMessage is the canonical empty-result response.
const NoResultsMessage = "No results found."

// Item is one parsed search result.
type Item struct {
	Title       string
	Description string
	URL         string
}

// Metadata describes how a rendered body was obtained.
type Metadata struct {
	Query   string
	Cached  bool
	Age     string
	Latency time.Duration
}

// Parse splits raw provider output into items. Blocks are separated by
// blank lines; within a block, "Title:", "Description:" and "URL:" lines
// populate the item. Blocks missing a title or URL are dropped rather
// than reported: partial upstream data should not fail the search.
func Parse(raw string) []Item {
	blocks := strings.Split(raw, "\n\n")
	items := make([]Item, 0, len(blocks))

	for _, block := range blocks {
		var item Item
		for _, line := range strings.Split(block, "\n") {
			line = strings.TrimSpace(line)
			switch {
			case strings.HasPrefix(line, "Title:"):
				item.Title = strings.TrimSpace(strings.TrimPrefix(line, "Title:"))
			case strings.HasPrefix(line, "Description:"):
				item.Description = strings.TrimSpace(strings.TrimPrefix(line, "Description:"))
			case strings.HasPrefix(line, "URL:"):
				item.URL = strings.TrimSpace(strings.TrimPrefix(line, "URL:"))
			}
		}
		if item.Title == "" || item.URL == "" {
			continue
		}
		items = append(items, item)
	}
	return items
}

// DomainKey groups items by registrable host: lowercased, with a
// leading "www." stripped so www.example.com and example.com dedupe
// together.
func DomainKey(item Item) (string, error) {
	u, err := url.Parse(item.URL)
	if err != nil {
		return "", fmt.Errorf("unparseable URL %q: %w", item.URL, err)
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return "", fmt.Errorf("URL %q has no host", item.URL)
	}
	return host, nil
}

// Deduplicate keeps at most maxPerGroup items per key, preserving input
// order. Items whose key cannot be computed are dropped with a log line,
// never grouped under a shared fallback key.
func Deduplicate(items []Item, maxPerGroup int, keyFn func(Item) (string, error)) []Item {
	counts := make(map[string]int)
	kept := make([]Item, 0, len(items))

	for _, item := range items {
		key, err := keyFn(item)
		if err != nil {
			slog.Debug("dropping result with unusable group key", "url", item.URL, "error", err)
			continue
		}
		if counts[key] >= maxPerGroup {
			continue
		}
		counts[key]++
		kept = append(kept, item)
	}
	return kept
}

// RenderItems formats items as the numbered body block that gets cached
// and returned. Empty input renders as the canonical no-results message.
func RenderItems(items []Item) string {
	if len(items) == 0 {
		return NoResultsMessage
	}

	var b strings.Builder
	noun := "results"
	if len(items) == 1 {
		noun = "result"
	}
	fmt.Fprintf(&b, "Found %d %s:\n", len(items), noun)

	for i, item := range items {
		fmt.Fprintf(&b, "\n%d. %s\n   %s\n", i+1, item.Title, item.URL)
		if item.Description != "" {
			fmt.Fprintf(&b, "   %s\n", item.Description)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// Compose prefixes a rendered body with the query and freshness header.
// The no-results body passes through untouched, independent of metadata.
func Compose(body string, meta Metadata) string {
	if body == "" || body == NoResultsMessage {
		return NoResultsMessage
	}

	source := "live"
	if meta.Cached {
		source = "cached, " + meta.Age
	}
	return fmt.Sprintf("Search results for %q (%s, %dms)\n\n%s",
		meta.Query, source, meta.Latency.Milliseconds(), body)
}

// Format is the one-shot path: parse-side callers that hold items render
// and compose in a single call.
func Format(items []Item, meta Metadata) string {
	return Compose(RenderItems(items), meta)
}

// FormatCacheAge renders the elapsed time between a stored entry and
// now, both in Unix milliseconds, as a coarse human label.
func FormatCacheAge(timestampMs, nowMs int64) string {
	elapsed := nowMs - timestampMs
	if elapsed < 0 {
		elapsed = 0
	}

	minutes := elapsed / int64(time.Minute/time.Millisecond)
	switch {
	case minutes < 1:
		return "just now"
	case minutes < 60:
		return fmt.Sprintf("%dm ago", minutes)
	case minutes < 24*60:
		return fmt.Sprintf("%dh ago", minutes/60)
	default:
		return fmt.Sprintf("%dd ago", minutes/(24*60))
	}
}
