package classify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/worldbrief/worldbrief/app/brief"
	"github.com/worldbrief/worldbrief/app/config"
	"github.com/worldbrief/worldbrief/app/llm"
)

type stubModel struct {
	responses []string
	errs      []error
	calls     int
	requests  []llm.ChatRequest
}

func (s *stubModel) Chat(_ context.Context, req llm.ChatRequest) (string, error) {
	s.requests = append(s.requests, req)
	i := s.calls
	s.calls++
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	var resp string
	if i < len(s.responses) {
		resp = s.responses[i]
	}
	return resp, err
}

func testTaxonomy() *config.Taxonomy {
	return &config.Taxonomy{
		Groups: []config.TaxonomyGroup{
			{
				Group: "World",
				Categories: []config.Category{
					{Name: "Geopolitics", Scope: "International relations and conflicts"},
					{Name: "Economy", Scope: "Markets, trade, macroeconomics"},
				},
			},
			{
				Group: "Science",
				Categories: []config.Category{
					{Name: "Science & Technology", Scope: "Research and technology news"},
					{Name: "Other"},
				},
			},
		},
		Disambiguation: []string{"Trade disputes between states go to Geopolitics, not Economy."},
	}
}

func testItem() brief.Item {
	return brief.Item{
		SourceType:  brief.SourceRSS,
		SourceName:  "Test Feed",
		Title:       "Fusion milestone reached",
		Text:        "Researchers report net energy gain.",
		URL:         "https://example.com/fusion",
		PublishedAt: time.Now().UTC(),
	}
}

func TestRunAssignsClassification(t *testing.T) {
	model := &stubModel{responses: []string{`{"category": "Science & Technology", "confidence": 0.92, "tags": ["fusion", "energy"]}`}}
	classifier := NewClassifier(model)

	items := classifier.Run(context.Background(), []brief.Item{testItem()}, testTaxonomy())

	if items[0].Category != "Science & Technology" {
		t.Errorf("expected category Science & Technology, got %q", items[0].Category)
	}
	if items[0].Confidence != 0.92 {
		t.Errorf("expected confidence 0.92, got %v", items[0].Confidence)
	}
	if len(items[0].Tags) != 2 || items[0].Tags[0] != "fusion" {
		t.Errorf("unexpected tags: %v", items[0].Tags)
	}
}

func TestRunRequestParameters(t *testing.T) {
	model := &stubModel{responses: []string{`{"category": "Other", "confidence": 0.5, "tags": []}`}}
	classifier := NewClassifier(model)

	classifier.Run(context.Background(), []brief.Item{testItem()}, testTaxonomy())

	if len(model.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(model.requests))
	}
	req := model.requests[0]
	if req.Task != llm.TaskClassify {
		t.Errorf("expected classify task, got %q", req.Task)
	}
	if req.Temperature != 0.1 {
		t.Errorf("expected temperature 0.1, got %v", req.Temperature)
	}
	if req.MaxTokens != 200 {
		t.Errorf("expected max tokens 200, got %d", req.MaxTokens)
	}
	if req.System != systemPrompt {
		t.Errorf("unexpected system prompt: %q", req.System)
	}
}

func TestRunPromptContainsTaxonomyAndItem(t *testing.T) {
	model := &stubModel{responses: []string{`{"category": "Other"}`}}
	classifier := NewClassifier(model)

	classifier.Run(context.Background(), []brief.Item{testItem()}, testTaxonomy())

	prompt := model.requests[0].Prompt
	for _, want := range []string{
		"[World]",
		"- Geopolitics",
		"Scope: Markets, trade, macroeconomics",
		"1. Trade disputes between states go to Geopolitics, not Economy.",
		"Fusion milestone reached",
		"https://example.com/fusion",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestRunGroupOrderPreserved(t *testing.T) {
	model := &stubModel{responses: []string{`{"category": "Other"}`}}
	classifier := NewClassifier(model)

	classifier.Run(context.Background(), []brief.Item{testItem()}, testTaxonomy())

	prompt := model.requests[0].Prompt
	if strings.Index(prompt, "[World]") > strings.Index(prompt, "[Science]") {
		t.Error("expected World group to render before Science group")
	}
	if strings.Index(prompt, "- Geopolitics") > strings.Index(prompt, "- Economy") {
		t.Error("expected Geopolitics to render before Economy")
	}
}

func TestRunTruncatesLongText(t *testing.T) {
	model := &stubModel{responses: []string{`{"category": "Other"}`}}
	classifier := NewClassifier(model)

	item := testItem()
	item.Text = strings.Repeat("x", 5000)
	classifier.Run(context.Background(), []brief.Item{item}, testTaxonomy())

	if strings.Contains(model.requests[0].Prompt, strings.Repeat("x", maxTextChars+1)) {
		t.Error("expected item text to be truncated in prompt")
	}
}

func TestRunRetriesOnMalformedResponse(t *testing.T) {
	model := &stubModel{responses: []string{
		"not json at all",
		`{"category": "Economy", "confidence": 0.8, "tags": []}`,
	}}
	classifier := NewClassifier(model)

	items := classifier.Run(context.Background(), []brief.Item{testItem()}, testTaxonomy())

	if model.calls != 2 {
		t.Errorf("expected 2 calls, got %d", model.calls)
	}
	if items[0].Category != "Economy" {
		t.Errorf("expected Economy after retry, got %q", items[0].Category)
	}
}

func TestRunFallbackAfterExhaustedRetries(t *testing.T) {
	model := &stubModel{
		errs: []error{errors.New("boom"), errors.New("boom"), errors.New("boom")},
	}
	classifier := NewClassifier(model)

	items := classifier.Run(context.Background(), []brief.Item{testItem()}, testTaxonomy())

	if model.calls != maxAttempts {
		t.Errorf("expected %d calls, got %d", maxAttempts, model.calls)
	}
	if items[0].Category != FallbackCategory {
		t.Errorf("expected fallback category, got %q", items[0].Category)
	}
	if items[0].Confidence != 0.0 {
		t.Errorf("expected confidence 0.0, got %v", items[0].Confidence)
	}
	if items[0].Tags == nil || len(items[0].Tags) != 0 {
		t.Errorf("expected empty tags, got %v", items[0].Tags)
	}
}

func TestRunCoercesUnknownCategory(t *testing.T) {
	model := &stubModel{responses: []string{`{"category": "Sports", "confidence": 0.9, "tags": ["football"]}`}}
	classifier := NewClassifier(model)

	items := classifier.Run(context.Background(), []brief.Item{testItem()}, testTaxonomy())

	if items[0].Category != FallbackCategory {
		t.Errorf("expected unknown category coerced to %q, got %q", FallbackCategory, items[0].Category)
	}
	if items[0].Confidence != 0.9 {
		t.Errorf("expected confidence preserved, got %v", items[0].Confidence)
	}
	if len(items[0].Tags) != 1 || items[0].Tags[0] != "football" {
		t.Errorf("expected tags preserved, got %v", items[0].Tags)
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"plain object", `{"category": "Economy"}`, "Economy", false},
		{"fenced json", "```json\n{\"category\": \"Economy\"}\n```", "Economy", false},
		{"bare fence", "```\n{\"category\": \"Economy\"}\n```", "Economy", false},
		{"surrounding prose", `Sure! Here you go: {"category": "Economy"} Hope that helps.`, "Economy", false},
		{"no object", "I cannot classify this item.", "", true},
		{"broken json", `{"category": `, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := ExtractJSON(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if payload["category"] != tt.want {
				t.Errorf("expected category %q, got %v", tt.want, payload["category"])
			}
		})
	}
}

func TestValidateResultDefaults(t *testing.T) {
	known := map[string]bool{"Economy": true, "Other": true}

	tests := []struct {
		name           string
		payload        map[string]interface{}
		wantCategory   string
		wantConfidence float64
		wantTags       int
	}{
		{"string confidence", map[string]interface{}{"category": "Economy", "confidence": "0.75"}, "Economy", 0.75, 0},
		{"missing confidence", map[string]interface{}{"category": "Economy"}, "Economy", 0.5, 0},
		{"unparseable confidence", map[string]interface{}{"category": "Economy", "confidence": "high"}, "Economy", 0.5, 0},
		{"non-list tags", map[string]interface{}{"category": "Economy", "tags": "economy"}, "Economy", 0.5, 0},
		{"non-string tag filtered", map[string]interface{}{"category": "Economy", "tags": []interface{}{"trade", 42}}, "Economy", 0.5, 1},
		{"missing category", map[string]interface{}{"confidence": 0.9}, "Other", 0.9, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := validateResult(tt.payload, known)
			if got.Category != tt.wantCategory {
				t.Errorf("expected category %q, got %q", tt.wantCategory, got.Category)
			}
			if got.Confidence != tt.wantConfidence {
				t.Errorf("expected confidence %v, got %v", tt.wantConfidence, got.Confidence)
			}
			if len(got.Tags) != tt.wantTags {
				t.Errorf("expected %d tags, got %v", tt.wantTags, got.Tags)
			}
		})
	}
}
