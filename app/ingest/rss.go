package ingest

import (
	"cmp"
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"

	"github.com/worldbrief/worldbrief/app/brief"
	"github.com/worldbrief/worldbrief/app/config"
	"github.com/worldbrief/worldbrief/app/fetcher"
)

// Simple tag-removal pass, not a full HTML parser. Entity decoding is not
// guaranteed.
var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

// RSSIngestor fetches and parses feed documents into normalized items.
type RSSIngestor struct {
	fetcher      *fetcher.Client
	parser       *gofeed.Parser
	maxPerSource int
}

// NewRSSIngestor creates a new RSS ingestor. maxPerSource caps the number
// of items taken per feed; zero means no cap.
func NewRSSIngestor(client *fetcher.Client, maxPerSource int) *RSSIngestor {
	return &RSSIngestor{
		fetcher:      client,
		parser:       gofeed.NewParser(),
		maxPerSource: maxPerSource,
	}
}

// IngestAll ingests every configured feed, isolating per-feed failures.
// A zero since defaults to 24 hours before now.
func (in *RSSIngestor) IngestAll(ctx context.Context, feeds []config.SourceRef, since time.Time) []brief.Item {
	if since.IsZero() {
		since = time.Now().UTC().Add(-24 * time.Hour)
	}

	var all []brief.Item
	for _, feed := range feeds {
		name := cmp.Or(feed.Name, feed.URL)
		all = append(all, in.IngestFeed(ctx, feed.URL, name, since)...)
	}
	return all
}

// IngestFeed fetches and parses a single feed, returning items published at
// or after since. Fetch and parse failures yield an empty list and a logged
// error rather than aborting the run.
func (in *RSSIngestor) IngestFeed(ctx context.Context, feedURL, sourceName string, since time.Time) []brief.Item {
	resp, err := in.fetcher.Get(ctx, feedURL, nil)
	if err != nil {
		slog.Error("Failed to fetch RSS feed", "feed", feedURL, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		slog.Error("Failed to fetch RSS feed", "feed", feedURL, "status", resp.StatusCode)
		return nil
	}

	parsed, err := in.parser.Parse(resp.Body)
	if err != nil {
		slog.Error("Failed to parse RSS feed", "feed", feedURL, "error", err)
		return nil
	}

	var items []brief.Item
	for _, entry := range parsed.Items {
		item, ok := entryToItem(entry, sourceName)
		if !ok {
			continue
		}
		if item.PublishedAt.Before(since) {
			continue
		}
		items = append(items, item)
		if in.maxPerSource > 0 && len(items) >= in.maxPerSource {
			break
		}
	}

	slog.Info("RSS feed ingested", "source", sourceName, "items", len(items), "since", since.Format(time.RFC3339))
	return items
}

// entryToItem converts a feed entry to a normalized item. Entries without a
// parseable publication date or without a link are dropped.
func entryToItem(entry *gofeed.Item, sourceName string) (brief.Item, bool) {
	publishedAt, ok := entryPublishedAt(entry)
	if !ok {
		slog.Debug("Skipping entry without parseable date", "title", entry.Title)
		return brief.Item{}, false
	}

	if entry.Link == "" {
		slog.Debug("Skipping entry without link", "title", entry.Title)
		return brief.Item{}, false
	}

	text := cmp.Or(entry.Description, entry.Content)

	return brief.Item{
		SourceType:  brief.SourceRSS,
		SourceName:  sourceName,
		ExternalID:  cmp.Or(entry.GUID, entry.Link),
		Title:       strings.TrimSpace(entry.Title),
		Text:        stripTags(text),
		URL:         entry.Link,
		PublishedAt: publishedAt,
	}, true
}

// entryPublishedAt resolves an entry's publication timestamp, trying the
// parsed published and updated fields first, then raw date strings through
// dateparse. Naive timestamps are assumed UTC.
func entryPublishedAt(entry *gofeed.Item) (time.Time, bool) {
	if entry.PublishedParsed != nil {
		return entry.PublishedParsed.UTC(), true
	}
	if entry.UpdatedParsed != nil {
		return entry.UpdatedParsed.UTC(), true
	}

	raw := []string{entry.Published, entry.Updated}
	if entry.Custom != nil {
		raw = append(raw, entry.Custom["created"])
	}
	for _, value := range raw {
		if value == "" {
			continue
		}
		if ts, err := dateparse.ParseIn(value, time.UTC); err == nil {
			return ts.UTC(), true
		}
	}

	return time.Time{}, false
}

func stripTags(s string) string {
	if strings.Contains(s, "<") {
		s = htmlTagPattern.ReplaceAllString(s, "")
	}
	return strings.TrimSpace(s)
}
