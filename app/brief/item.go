package brief

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

type SourceType string

const (
	SourceRSS     SourceType = "rss"
	SourceYouTube SourceType = "youtube"
)

// Item is the canonical cross-source representation of one ingested piece
// of content. Ingestors create it, the classifier enriches it in place, and
// the summarizer and persistence layer consume it read-only.
type Item struct {
	SourceType  SourceType `json:"source_type"`
	SourceName  string     `json:"source_name"`
	ExternalID  string     `json:"external_id"`
	Title       string     `json:"title"`
	Text        string     `json:"text"`
	URL         string     `json:"url"`
	PublishedAt time.Time  `json:"published_at"`

	// Populated by classification. An empty Category means unclassified.
	Category   string   `json:"category,omitempty"`
	Confidence float64  `json:"confidence"`
	Tags       []string `json:"tags"`
}

// Fingerprint returns a sha256 hex digest over the normalized concatenation
// of title and text. Case- and surrounding-whitespace-insensitive, so the
// same story republished with cosmetic differences hashes identically.
func Fingerprint(title, text string) string {
	blob := strings.ToLower(strings.TrimSpace(title)) + "|" + strings.ToLower(strings.TrimSpace(text))
	hash := sha256.Sum256([]byte(blob))
	return hex.EncodeToString(hash[:])
}

func (i Item) Fingerprint() string {
	return Fingerprint(i.Title, i.Text)
}
