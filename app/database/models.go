package database

import (
	"time"
)

// Briefing represents a persisted daily briefing record
type Briefing struct {
	ID        int64
	RunDate   string
	BriefText string
	CreatedAt time.Time
}
