// Package pipeline sequences one full briefing run: ingest, deduplicate,
// classify, summarize, persist, and deliver.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/worldbrief/worldbrief/app/brief"
	"github.com/worldbrief/worldbrief/app/config"
	"github.com/worldbrief/worldbrief/app/database"
)

// Ingestion window looking back from the run start.
const lookback = 24 * time.Hour

type FeedIngestor interface {
	IngestAll(ctx context.Context, feeds []config.SourceRef, since time.Time) []brief.Item
}

type VideoIngestor interface {
	IngestAll(ctx context.Context, channels []config.ChannelRef, since time.Time) []brief.Item
}

type Classifier interface {
	Run(ctx context.Context, items []brief.Item, taxonomy *config.Taxonomy) []brief.Item
}

type Summarizer interface {
	Run(ctx context.Context, items []brief.Item, dateLabel string) string
}

type Delivery interface {
	SendBrief(subject, body string, dryRun bool) error
}

type AudioRenderer interface {
	RenderSections(ctx context.Context, briefText, dateLabel string) (map[string]string, error)
}

// Pipeline runs the daily briefing end to end. All collaborators are injected
// at construction; audio is optional (nil disables it).
type Pipeline struct {
	loader     *config.Loader
	rss        FeedIngestor
	video      VideoIngestor
	classifier Classifier
	summarizer Summarizer
	delivery   Delivery
	audio      AudioRenderer
	items      database.ItemRepository
	briefings  database.BriefingRepository
	dryRun     bool
}

// NewPipeline creates a new pipeline.
func NewPipeline(loader *config.Loader, rss FeedIngestor, video VideoIngestor,
	classifier Classifier, summarizer Summarizer, delivery Delivery,
	audio AudioRenderer, items database.ItemRepository,
	briefings database.BriefingRepository, dryRun bool) *Pipeline {
	return &Pipeline{
		loader:     loader,
		rss:        rss,
		video:      video,
		classifier: classifier,
		summarizer: summarizer,
		delivery:   delivery,
		audio:      audio,
		items:      items,
		briefings:  briefings,
		dryRun:     dryRun,
	}
}

// Run executes one briefing run. Failures in classification or audio degrade
// to defaults; persistence and delivery failures abort the run.
func (p *Pipeline) Run(ctx context.Context) error {
	started := time.Now().UTC()
	since := started.Add(-lookback)
	runDate := started.Format("2006-01-02")

	slog.Info("Starting briefing run", "run_date", runDate, "since", since.Format(time.RFC3339))

	sources, err := p.loader.LoadSources()
	if err != nil {
		return fmt.Errorf("failed to load sources: %w", err)
	}
	taxonomy, err := p.loader.LoadTaxonomy()
	if err != nil {
		return fmt.Errorf("failed to load taxonomy: %w", err)
	}

	items := p.rss.IngestAll(ctx, sources.RSSFeeds, since)
	items = append(items, p.video.IngestAll(ctx, sources.YouTubeChannels, since)...)
	if len(items) == 0 {
		slog.Warn("No items ingested, stopping run", "run_date", runDate)
		return nil
	}
	slog.Info("Ingestion complete", "items", len(items))

	items = brief.Deduplicate(items)
	if len(items) == 0 {
		slog.Warn("No items left after deduplication, stopping run", "run_date", runDate)
		return nil
	}

	stored := 0
	for _, item := range items {
		inserted, err := p.items.InsertIfAbsent(item, runDate)
		if err != nil {
			return fmt.Errorf("failed to persist item %q: %w", item.URL, err)
		}
		if inserted {
			stored++
		}
	}
	slog.Info("Items persisted", "stored", stored, "skipped", len(items)-stored)

	items = p.classifier.Run(ctx, items, taxonomy)
	for _, item := range items {
		err := p.items.UpdateClassification(item.URL, item.Category, item.Confidence, item.Tags)
		if err != nil {
			return fmt.Errorf("failed to persist classification for %q: %w", item.URL, err)
		}
	}

	briefText := p.summarizer.Run(ctx, items, runDate)

	if err := p.briefings.Save(runDate, briefText); err != nil {
		return fmt.Errorf("failed to save briefing: %w", err)
	}

	if p.audio != nil {
		if rendered, err := p.audio.RenderSections(ctx, briefText, runDate); err != nil {
			slog.Error("Audio rendering failed", "error", err)
		} else {
			slog.Info("Audio rendering complete", "sections", len(rendered))
		}
	}

	subject := fmt.Sprintf("Daily World Brief — %s", runDate)
	if err := p.delivery.SendBrief(subject, briefText, p.dryRun); err != nil {
		return fmt.Errorf("failed to deliver briefing: %w", err)
	}

	slog.Info("Briefing run complete", "run_date", runDate, "items", len(items), "duration", time.Since(started).Round(time.Millisecond))
	return nil
}
