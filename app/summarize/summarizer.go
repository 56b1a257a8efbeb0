package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/worldbrief/worldbrief/app/brief"
	"github.com/worldbrief/worldbrief/app/llm"
)

const (
	// Cap on item body characters carried into the grouped payload.
	maxTextChars = 500

	systemPrompt = "You are a senior news editor writing a concise daily world briefing email. " +
		"Respond ONLY with the briefing text (plaintext, no markdown)."

	promptTemplate = `Write the daily world briefing for %s from the news items below.

Requirements:
- Plaintext only, no markdown formatting of any kind.
- Start with the line "Daily World Brief — %s" followed by a blank line.
- One section per category. Each section starts with the bare category name on
  its own line, followed by bullet points ("• ") covering the day's items, then
  a single line starting with "Why it matters:" giving the rationale, then the
  source URLs one per line.
- Be concise and factual; merge overlapping items into one bullet.

News items grouped by category (JSON):
%s`
)

// ModelClient is the slice of the model client the summarizer needs.
type ModelClient interface {
	Chat(ctx context.Context, req llm.ChatRequest) (string, error)
}

// Summarizer turns a day's classified items into the final prose briefing
// through a single model call.
type Summarizer struct {
	client ModelClient
}

// NewSummarizer creates a new summarizer.
func NewSummarizer(client ModelClient) *Summarizer {
	return &Summarizer{client: client}
}

// groupedItem is the per-item shape embedded in the summarization prompt.
type groupedItem struct {
	Title       string   `json:"title"`
	Text        string   `json:"text"`
	URL         string   `json:"url"`
	Source      string   `json:"source"`
	PublishedAt string   `json:"published_at"`
	Tags        []string `json:"tags"`
}

// Run produces the full daily brief as a plaintext string. An empty item list
// short-circuits without a model call. A failed model call degrades to a
// deterministic headline listing so the run can still deliver something.
func (s *Summarizer) Run(ctx context.Context, items []brief.Item, dateLabel string) string {
	if len(items) == 0 {
		return fmt.Sprintf("Daily World Brief — %s\n\nNo items to report today.", dateLabel)
	}

	categories, grouped := groupByCategory(items)

	payload, err := json.MarshalIndent(orderedGroups(categories, grouped), "", "  ")
	if err != nil {
		slog.Error("Failed to serialize grouped items", "error", err)
		return fallbackBrief(dateLabel, categories, grouped)
	}

	slog.Info("Generating summary", "categories", len(categories), "items", len(items))

	text, err := s.client.Chat(ctx, llm.ChatRequest{
		Task:        llm.TaskSummarize,
		System:      systemPrompt,
		Prompt:      fmt.Sprintf(promptTemplate, dateLabel, dateLabel, payload),
		Temperature: 0.4,
		MaxTokens:   2000,
	})
	if err != nil {
		slog.Error("Summarization call failed", "error", err)
		return fallbackBrief(dateLabel, categories, grouped)
	}

	return strings.TrimSpace(text)
}

// groupByCategory buckets items per category in first-seen order. Items with
// no category land in "Other".
func groupByCategory(items []brief.Item) ([]string, map[string][]groupedItem) {
	var categories []string
	grouped := make(map[string][]groupedItem)

	for _, item := range items {
		category := item.Category
		if category == "" {
			category = "Other"
		}
		if _, seen := grouped[category]; !seen {
			categories = append(categories, category)
		}
		tags := item.Tags
		if tags == nil {
			tags = []string{}
		}
		grouped[category] = append(grouped[category], groupedItem{
			Title:       item.Title,
			Text:        truncate(item.Text, maxTextChars),
			URL:         item.URL,
			Source:      item.SourceName,
			PublishedAt: item.PublishedAt.Format("2006-01-02T15:04:05Z07:00"),
			Tags:        tags,
		})
	}

	return categories, grouped
}

// orderedGroups rebuilds the grouping as an ordered slice so the JSON payload
// renders categories deterministically.
func orderedGroups(categories []string, grouped map[string][]groupedItem) []map[string][]groupedItem {
	out := make([]map[string][]groupedItem, 0, len(categories))
	for _, category := range categories {
		out = append(out, map[string][]groupedItem{category: grouped[category]})
	}
	return out
}

// fallbackBrief lists bare headlines per category with a visible failure
// marker. It carries no model-originated content.
func fallbackBrief(dateLabel string, categories []string, grouped map[string][]groupedItem) string {
	lines := []string{
		fmt.Sprintf("Daily World Brief — %s", dateLabel),
		"",
		"⚠ Summarization failed – raw headlines:",
		"",
	}
	for _, category := range categories {
		lines = append(lines, fmt.Sprintf("== %s ==", category))
		for _, item := range grouped[category] {
			lines = append(lines, fmt.Sprintf("  • %s  (%s)", item.Title, item.URL))
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
