package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/worldbrief/worldbrief/app/brief"
	"github.com/worldbrief/worldbrief/app/config"
	"github.com/worldbrief/worldbrief/app/llm"
)

const (
	// Total attempts per item before falling back.
	maxAttempts = 3

	// Cap on item body characters embedded in the prompt.
	maxTextChars = 1500

	// FallbackCategory absorbs items the model could not classify and
	// model outputs naming unknown categories.
	FallbackCategory = "Other"

	systemPrompt = "You are a strict JSON-only classifier."
)

var codeFencePattern = regexp.MustCompile("```(?:json)?\\s*")

// ModelClient is the slice of the model client the classifier needs.
type ModelClient interface {
	Chat(ctx context.Context, req llm.ChatRequest) (string, error)
}

// Classifier assigns a taxonomy category, confidence, and tags to each item
// through per-item model calls.
type Classifier struct {
	client ModelClient
}

// NewClassifier creates a new classifier.
func NewClassifier(client ModelClient) *Classifier {
	return &Classifier{client: client}
}

// Result is one classification outcome.
type Result struct {
	Category   string
	Confidence float64
	Tags       []string
}

// Run classifies every item in place and returns the slice. The loop is
// strictly sequential; wall-clock time scales linearly with item count.
func (c *Classifier) Run(ctx context.Context, items []brief.Item, taxonomy *config.Taxonomy) []brief.Item {
	known := make(map[string]bool)
	for _, name := range taxonomy.CategoryNames() {
		known[name] = true
	}

	for i := range items {
		slog.Info("Classifying item", "index", i+1, "total", len(items), "title", truncate(items[i].Title, 80))
		result := c.classifyItem(ctx, items[i], taxonomy, known)
		items[i].Category = result.Category
		items[i].Confidence = result.Confidence
		items[i].Tags = result.Tags
	}

	return items
}

// classifyItem runs the bounded retry loop for one item. Parse failures and
// call errors both consume attempts; exhausting the budget yields the safe
// fallback result.
func (c *Classifier) classifyItem(ctx context.Context, item brief.Item, taxonomy *config.Taxonomy, known map[string]bool) Result {
	prompt := buildPrompt(item, taxonomy)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		raw, err := c.client.Chat(ctx, llm.ChatRequest{
			Task:        llm.TaskClassify,
			System:      systemPrompt,
			Prompt:      prompt,
			Temperature: 0.1,
			MaxTokens:   200,
		})
		if err != nil {
			slog.Warn("Classification call failed", "attempt", attempt, "title", truncate(item.Title, 60), "error", err)
			continue
		}

		payload, err := ExtractJSON(raw)
		if err != nil {
			slog.Warn("Classification response not parseable", "attempt", attempt, "title", truncate(item.Title, 60), "error", err)
			continue
		}

		return validateResult(payload, known)
	}

	slog.Error("Classification failed after retries, using fallback", "title", truncate(item.Title, 60))
	return Result{Category: FallbackCategory, Confidence: 0.0, Tags: []string{}}
}

// ExtractJSON extracts the first JSON object from text, tolerating markdown
// code fences around it.
func ExtractJSON(text string) (map[string]interface{}, error) {
	text = codeFencePattern.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON object found in model response")
	}

	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(text[start:end+1]), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}

	return payload, nil
}

// validateResult coerces a parsed model payload into a well-formed result:
// unknown categories become the fallback, confidence defaults to 0.5, and
// non-list tags become empty.
func validateResult(payload map[string]interface{}, known map[string]bool) Result {
	category, _ := payload["category"].(string)
	if !known[category] {
		if category != "" {
			slog.Warn("Model returned unknown category, coercing", "category", category)
		}
		category = FallbackCategory
	}

	confidence := 0.5
	switch v := payload["confidence"].(type) {
	case float64:
		confidence = v
	case string:
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			confidence = parsed
		}
	}

	tags := []string{}
	if rawTags, ok := payload["tags"].([]interface{}); ok {
		for _, rawTag := range rawTags {
			if tag, ok := rawTag.(string); ok {
				tags = append(tags, tag)
			}
		}
	}

	return Result{Category: category, Confidence: confidence, Tags: tags}
}

const promptTemplate = `Classify the news item below into exactly one category from the taxonomy.

Taxonomy (groups, categories, and their scope):
%s

Disambiguation rules:
%s

News item:
  Source: %s
  URL: %s
  Title: %s
  Text: %s

Respond with ONLY a JSON object of the form:
{"category": "<category name>", "confidence": <0.0-1.0>, "tags": ["<tag>", ...]}`

func buildPrompt(item brief.Item, taxonomy *config.Taxonomy) string {
	return fmt.Sprintf(promptTemplate,
		renderTaxonomy(taxonomy),
		renderDisambiguation(taxonomy.Disambiguation),
		item.SourceName,
		item.URL,
		item.Title,
		truncate(item.Text, maxTextChars))
}

// renderTaxonomy renders the hierarchy into a readable text block.
func renderTaxonomy(taxonomy *config.Taxonomy) string {
	var b strings.Builder
	for _, group := range taxonomy.Groups {
		fmt.Fprintf(&b, "  [%s]\n", group.Group)
		for _, category := range group.Categories {
			fmt.Fprintf(&b, "    - %s\n", category.Name)
			if category.Scope != "" {
				fmt.Fprintf(&b, "      Scope: %s\n", category.Scope)
			}
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderDisambiguation(rules []string) string {
	if len(rules) == 0 {
		return "  (none)"
	}
	var lines []string
	for i, rule := range rules {
		lines = append(lines, fmt.Sprintf("  %d. %s", i+1, rule))
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
