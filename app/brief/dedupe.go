package brief

import (
	"log/slog"
	"strings"
)

// Deduplicate removes items already seen by URL or content fingerprint.
// Order-preserving, first occurrence wins. URLs collide after trimming and
// stripping trailing slashes. Pure in-memory pass; cross-run duplicate
// suppression is the persistence layer's job.
func Deduplicate(items []Item) []Item {
	seenURLs := make(map[string]struct{}, len(items))
	seenHashes := make(map[string]struct{}, len(items))
	unique := make([]Item, 0, len(items))

	for _, item := range items {
		urlKey := strings.TrimRight(strings.TrimSpace(item.URL), "/")
		if _, ok := seenURLs[urlKey]; ok {
			slog.Debug("Duplicate by URL", "title", item.Title)
			continue
		}

		fingerprint := item.Fingerprint()
		if _, ok := seenHashes[fingerprint]; ok {
			slog.Debug("Duplicate by content hash", "title", item.Title)
			continue
		}

		seenURLs[urlKey] = struct{}{}
		seenHashes[fingerprint] = struct{}{}
		unique = append(unique, item)
	}

	if dropped := len(items) - len(unique); dropped > 0 {
		slog.Info("Deduplication removed items", "dropped", dropped, "before", len(items), "after", len(unique))
	}

	return unique
}
