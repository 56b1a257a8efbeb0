package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/worldbrief/worldbrief/app/brief"
	"github.com/worldbrief/worldbrief/app/database"
	"github.com/worldbrief/worldbrief/app/sections"
)

// Snippet context characters either side of a search match.
const snippetContext = 80

type Handler struct {
	items     database.ItemRepository
	briefings database.BriefingRepository
}

func NewHandler(items database.ItemRepository, briefings database.BriefingRepository) *Handler {
	return &Handler{items: items, briefings: briefings}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if itemCount, err := h.items.GetItemCount(); err == nil {
		health["items"] = itemCount
	}
	if briefingCount, err := h.briefings.GetBriefingCount(); err == nil {
		health["briefings"] = briefingCount
	}

	c.JSON(http.StatusOK, health)
}

// ListBriefings returns available briefing dates, newest first.
func (h *Handler) ListBriefings(c *gin.Context) {
	dates, err := h.briefings.ListDates()
	if err != nil {
		slog.Error("Database error", "operation", "list_briefings", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if dates == nil {
		dates = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"dates": dates})
}

// GetBriefing returns one briefing with its items grouped by category.
func (h *Handler) GetBriefing(c *gin.Context) {
	date := c.Param("date")

	briefing, err := h.briefings.Get(date)
	if err != nil {
		slog.Error("Database error", "operation", "get_briefing", "date", date, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if briefing == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No briefing for " + date})
		return
	}

	items, err := h.items.GetByRunDate(date)
	if err != nil {
		slog.Error("Database error", "operation", "get_briefing_items", "date", date, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	categories := make(map[string][]brief.Item)
	for _, item := range items {
		category := item.Category
		if category == "" {
			category = "Other"
		}
		categories[category] = append(categories[category], item)
	}

	c.JSON(http.StatusOK, gin.H{
		"date":       briefing.RunDate,
		"brief_text": briefing.BriefText,
		"categories": categories,
	})
}

// GetCategoryDetail returns one parsed category section plus its stored items.
func (h *Handler) GetCategoryDetail(c *gin.Context) {
	date := c.Param("date")
	category := c.Param("name")

	briefing, err := h.briefings.Get(date)
	if err != nil {
		slog.Error("Database error", "operation", "get_category", "date", date, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if briefing == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No briefing for " + date})
		return
	}

	section, ok := sections.Find(briefing.BriefText, category)
	if !ok || len(section.Bullets) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category '" + category + "' not found in " + date})
		return
	}

	items, err := h.items.GetByRunDate(date)
	if err != nil {
		slog.Error("Database error", "operation", "get_category_items", "date", date, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	sourceItems := make([]brief.Item, 0)
	for _, item := range items {
		if item.Category == category {
			sourceItems = append(sourceItems, item)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"date":         date,
		"category":     category,
		"bullets":      section.Bullets,
		"why_matters":  section.WhyItMatters,
		"links":        section.Links,
		"source_items": sourceItems,
	})
}

// Search returns briefings containing the query with a short matching snippet.
func (h *Handler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusOK, gin.H{"query": query, "results": []gin.H{}})
		return
	}

	matches, err := h.briefings.Search(query)
	if err != nil {
		slog.Error("Database error", "operation", "search", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	results := make([]gin.H, 0, len(matches))
	for _, match := range matches {
		results = append(results, gin.H{
			"date":    match.RunDate,
			"snippet": snippet(match.BriefText, query),
		})
	}

	c.JSON(http.StatusOK, gin.H{"query": query, "results": results})
}

// snippet extracts the text around the first case-insensitive match, with
// ellipses marking truncation.
func snippet(text, query string) string {
	idx := strings.Index(strings.ToLower(text), strings.ToLower(query))
	if idx < 0 {
		return ""
	}

	start := idx - snippetContext
	if start < 0 {
		start = 0
	}
	end := idx + len(query) + snippetContext
	if end > len(text) {
		end = len(text)
	}

	out := text[start:end]
	if start > 0 {
		out = "…" + out
	}
	if end < len(text) {
		out = out + "…"
	}
	return out
}
