package ingest

import (
	"cmp"
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/worldbrief/worldbrief/app/brief"
	"github.com/worldbrief/worldbrief/app/config"
	"github.com/worldbrief/worldbrief/app/fetcher"
)

const (
	// DefaultSearchURL is the YouTube Data API v3 search endpoint.
	DefaultSearchURL = "https://www.googleapis.com/youtube/v3/search"

	watchURLPrefix = "https://www.youtube.com/watch?v="

	// One page per channel, no pagination.
	maxResultsPerChannel = 15
)

// YouTubeIngestor queries the YouTube search API per channel and maps
// results into normalized items.
type YouTubeIngestor struct {
	fetcher   *fetcher.Client
	apiKey    string
	searchURL string
}

// YouTubeOption configures the YouTubeIngestor.
type YouTubeOption func(*YouTubeIngestor)

// WithSearchURL overrides the search endpoint.
func WithSearchURL(searchURL string) YouTubeOption {
	return func(in *YouTubeIngestor) {
		in.searchURL = searchURL
	}
}

// NewYouTubeIngestor creates a new video ingestor. An empty apiKey disables
// video ingestion entirely.
func NewYouTubeIngestor(client *fetcher.Client, apiKey string, opts ...YouTubeOption) *YouTubeIngestor {
	in := &YouTubeIngestor{
		fetcher:   client,
		apiKey:    apiKey,
		searchURL: DefaultSearchURL,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

type searchResponse struct {
	Items []searchResult `json:"items"`
}

type searchResult struct {
	ID struct {
		VideoID string `json:"videoId"`
	} `json:"id"`
	Snippet struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		PublishedAt string `json:"publishedAt"`
	} `json:"snippet"`
}

// IngestAll ingests every configured channel. When no API credential is
// configured the whole stage is skipped with a warning; ingestion degrades
// gracefully rather than failing the run.
func (in *YouTubeIngestor) IngestAll(ctx context.Context, channels []config.ChannelRef, since time.Time) []brief.Item {
	if in.apiKey == "" {
		slog.Warn("YouTube API key not configured, skipping video ingestion")
		return nil
	}

	if since.IsZero() {
		since = time.Now().UTC().Add(-24 * time.Hour)
	}

	var all []brief.Item
	for _, channel := range channels {
		name := cmp.Or(channel.Name, channel.ChannelID)
		all = append(all, in.IngestChannel(ctx, channel.ChannelID, name, since)...)
	}
	return all
}

// IngestChannel fetches recent uploads for a single channel. A non-200
// response yields an empty list and a logged error.
func (in *YouTubeIngestor) IngestChannel(ctx context.Context, channelID, channelName string, since time.Time) []brief.Item {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("channelId", channelID)
	params.Set("type", "video")
	params.Set("order", "date")
	params.Set("publishedAfter", since.UTC().Format("2006-01-02T15:04:05Z"))
	params.Set("maxResults", strconv.Itoa(maxResultsPerChannel))
	params.Set("key", in.apiKey)

	resp, err := in.fetcher.Get(ctx, in.searchURL, params)
	if err != nil {
		slog.Error("Failed to query YouTube API", "channel", channelName, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		slog.Error("YouTube API error", "channel", channelName, "status", resp.StatusCode)
		return nil
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		slog.Error("Failed to decode YouTube API response", "channel", channelName, "error", err)
		return nil
	}

	var items []brief.Item
	for _, result := range parsed.Items {
		item, ok := resultToItem(result, channelName)
		if !ok {
			continue
		}
		items = append(items, item)
	}

	slog.Info("YouTube channel ingested", "channel", channelName, "items", len(items), "since", since.Format(time.RFC3339))
	return items
}

// resultToItem converts a search result to a normalized item. Results
// without a video identifier or a parseable publication date are dropped.
func resultToItem(result searchResult, channelName string) (brief.Item, bool) {
	videoID := result.ID.VideoID
	if videoID == "" {
		return brief.Item{}, false
	}

	publishedAt, err := time.Parse(time.RFC3339, result.Snippet.PublishedAt)
	if err != nil {
		slog.Debug("Skipping video without parseable date", "video_id", videoID)
		return brief.Item{}, false
	}

	return brief.Item{
		SourceType:  brief.SourceYouTube,
		SourceName:  channelName,
		ExternalID:  videoID,
		Title:       strings.TrimSpace(result.Snippet.Title),
		Text:        strings.TrimSpace(result.Snippet.Description),
		URL:         watchURLPrefix + videoID,
		PublishedAt: publishedAt.UTC(),
	}, true
}
