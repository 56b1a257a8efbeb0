package database

import (
	"github.com/worldbrief/worldbrief/app/brief"
)

type ItemRepository interface {
	// InsertIfAbsent stores the item and reports whether a row was written.
	// A URL or content-fingerprint collision with an existing row rejects
	// the insert without error.
	InsertIfAbsent(item brief.Item, runDate string) (bool, error)

	// UpdateClassification is a no-op when no row matches the URL.
	UpdateClassification(url, category string, confidence float64, tags []string) error

	GetByRunDate(runDate string) ([]brief.Item, error)
	GetItemCount() (int, error)
}

type BriefingRepository interface {
	// Save upserts the briefing text for a run date.
	Save(runDate, briefText string) error

	Get(runDate string) (*Briefing, error)
	ListDates() ([]string, error)

	// Search returns briefings whose text contains the query,
	// case-insensitive, newest first.
	Search(query string) ([]Briefing, error)
	GetBriefingCount() (int, error)
}
