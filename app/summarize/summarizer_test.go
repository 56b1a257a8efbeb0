package summarize

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/worldbrief/worldbrief/app/brief"
	"github.com/worldbrief/worldbrief/app/llm"
)

type stubModel struct {
	response string
	err      error
	calls    int
	lastReq  llm.ChatRequest
}

func (s *stubModel) Chat(_ context.Context, req llm.ChatRequest) (string, error) {
	s.calls++
	s.lastReq = req
	return s.response, s.err
}

func testItems() []brief.Item {
	published := time.Date(2026, 8, 30, 6, 0, 0, 0, time.UTC)
	return []brief.Item{
		{
			SourceName:  "Wire A",
			Title:       "Ceasefire talks resume",
			Text:        "Delegations met for a third round of talks.",
			URL:         "https://example.com/talks",
			PublishedAt: published,
			Category:    "Geopolitics",
			Tags:        []string{"diplomacy"},
		},
		{
			SourceName:  "Wire B",
			Title:       "Markets rally on rate decision",
			Text:        "Equities rose after the central bank held rates.",
			URL:         "https://example.com/markets",
			PublishedAt: published,
			Category:    "Economy",
		},
		{
			SourceName:  "Wire A",
			Title:       "Uncategorized oddity",
			Text:        "An item the classifier never touched.",
			URL:         "https://example.com/odd",
			PublishedAt: published,
		},
	}
}

func TestRunEmptyShortCircuit(t *testing.T) {
	model := &stubModel{}
	summarizer := NewSummarizer(model)

	got := summarizer.Run(context.Background(), nil, "2026-08-30")

	want := "Daily World Brief — 2026-08-30\n\nNo items to report today."
	if got != want {
		t.Errorf("expected short-circuit message, got %q", got)
	}
	if model.calls != 0 {
		t.Errorf("expected no model calls, got %d", model.calls)
	}
}

func TestRunRequestParameters(t *testing.T) {
	model := &stubModel{response: "Daily World Brief — 2026-08-30\n\nGeopolitics\n• talks"}
	summarizer := NewSummarizer(model)

	summarizer.Run(context.Background(), testItems(), "2026-08-30")

	if model.calls != 1 {
		t.Fatalf("expected 1 model call, got %d", model.calls)
	}
	if model.lastReq.Task != llm.TaskSummarize {
		t.Errorf("expected summarize task, got %q", model.lastReq.Task)
	}
	if model.lastReq.Temperature != 0.4 {
		t.Errorf("expected temperature 0.4, got %v", model.lastReq.Temperature)
	}
	if model.lastReq.MaxTokens != 2000 {
		t.Errorf("expected max tokens 2000, got %d", model.lastReq.MaxTokens)
	}
	if !strings.Contains(model.lastReq.System, "senior news editor") {
		t.Errorf("unexpected system prompt: %q", model.lastReq.System)
	}
}

func TestRunPromptContainsGroupedItems(t *testing.T) {
	model := &stubModel{response: "brief"}
	summarizer := NewSummarizer(model)

	summarizer.Run(context.Background(), testItems(), "2026-08-30")

	prompt := model.lastReq.Prompt
	for _, want := range []string{
		"2026-08-30",
		`"Geopolitics"`,
		`"Economy"`,
		`"Other"`,
		"Ceasefire talks resume",
		"https://example.com/markets",
		"Wire A",
		"2026-08-30T06:00:00Z",
		`"diplomacy"`,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestRunTruncatesItemText(t *testing.T) {
	model := &stubModel{response: "brief"}
	summarizer := NewSummarizer(model)

	items := testItems()[:1]
	items[0].Text = strings.Repeat("y", 2000)
	summarizer.Run(context.Background(), items, "2026-08-30")

	if strings.Contains(model.lastReq.Prompt, strings.Repeat("y", maxTextChars+1)) {
		t.Error("expected item text truncated in summarization payload")
	}
}

func TestRunReturnsTrimmedModelOutput(t *testing.T) {
	model := &stubModel{response: "\n  Daily World Brief — 2026-08-30\n\nGeopolitics\n• talks\n  "}
	summarizer := NewSummarizer(model)

	got := summarizer.Run(context.Background(), testItems(), "2026-08-30")

	if strings.HasPrefix(got, "\n") || strings.HasSuffix(got, " ") {
		t.Errorf("expected trimmed output, got %q", got)
	}
}

func TestRunFallbackOnModelFailure(t *testing.T) {
	model := &stubModel{err: errors.New("rate limited")}
	summarizer := NewSummarizer(model)

	got := summarizer.Run(context.Background(), testItems(), "2026-08-30")

	if !strings.HasPrefix(got, "Daily World Brief — 2026-08-30") {
		t.Errorf("expected date header, got %q", got)
	}
	if !strings.Contains(got, "⚠") {
		t.Error("expected visible failure marker in fallback brief")
	}
	for _, want := range []string{
		"== Geopolitics ==",
		"== Economy ==",
		"== Other ==",
		"• Ceasefire talks resume  (https://example.com/talks)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("fallback brief missing %q", want)
		}
	}
}

func TestGroupByCategoryOrderAndFallbackBucket(t *testing.T) {
	categories, grouped := groupByCategory(testItems())

	if len(categories) != 3 || categories[0] != "Geopolitics" || categories[1] != "Economy" || categories[2] != "Other" {
		t.Fatalf("unexpected category order: %v", categories)
	}
	if len(grouped["Other"]) != 1 || grouped["Other"][0].Title != "Uncategorized oddity" {
		t.Errorf("expected uncategorized item in Other, got %v", grouped["Other"])
	}
	if grouped["Economy"][0].Tags == nil {
		t.Error("expected nil tags normalized to empty slice")
	}
}
