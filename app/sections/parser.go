// Package sections parses the briefing's prose convention: one section per
// category, opened by the bare category name on its own line, with bullet
// points, a "Why it matters:" line, and trailing source URLs.
package sections

import (
	"regexp"
	"strings"
)

const maxHeaderLen = 50

var (
	headerPattern     = regexp.MustCompile(`^[A-Z][A-Za-z &\-]+$`)
	whyMattersPattern = regexp.MustCompile(`^Why it matters:\s*`)
)

// Section is one parsed category block of a briefing.
type Section struct {
	Category     string   `json:"category"`
	Bullets      []string `json:"bullets"`
	WhyItMatters string   `json:"why_matters"`
	Links        []string `json:"links"`
}

// Parse splits a briefing into its category sections, in document order.
// Text before the first recognized header is ignored.
func Parse(briefText string) []Section {
	var result []Section
	var current *Section

	for _, line := range strings.Split(briefText, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if isHeader(trimmed) {
			result = append(result, Section{Category: trimmed})
			current = &result[len(result)-1]
			continue
		}
		if current == nil {
			continue
		}

		switch {
		case strings.HasPrefix(trimmed, "Why it matters"):
			current.WhyItMatters = whyMattersPattern.ReplaceAllString(trimmed, "")
		case strings.HasPrefix(trimmed, "http"):
			current.Links = append(current.Links, trimmed)
		case strings.HasPrefix(trimmed, "•"):
			current.Bullets = append(current.Bullets, strings.TrimLeft(trimmed, "• "))
		case len(current.Bullets) > 0:
			// Continuation of a wrapped bullet.
			current.Bullets[len(current.Bullets)-1] += " " + trimmed
		}
	}

	return result
}

// Find returns the section for a category, or false when the briefing has no
// such section.
func Find(briefText, category string) (Section, bool) {
	for _, section := range Parse(briefText) {
		if section.Category == category {
			return section, true
		}
	}
	return Section{}, false
}

func isHeader(line string) bool {
	return len(line) < maxHeaderLen &&
		headerPattern.MatchString(line) &&
		!strings.HasPrefix(line, "Why it matters")
}
