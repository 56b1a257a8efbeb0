package database

import (
	"database/sql"
	"fmt"
	"time"
)

// BriefingRepositoryImpl handles database operations for daily briefings
type BriefingRepositoryImpl struct {
	db *DB
}

// NewBriefingRepository creates a new briefing repository
func NewBriefingRepository(db *DB) *BriefingRepositoryImpl {
	return &BriefingRepositoryImpl{db: db}
}

// Save upserts the briefing text for a run date.
func (r *BriefingRepositoryImpl) Save(runDate, briefText string) error {
	_, err := r.db.Exec(`
		INSERT INTO briefings (run_date, brief_text) VALUES (?, ?)
		ON CONFLICT (run_date) DO UPDATE SET brief_text = excluded.brief_text
	`, runDate, briefText)
	if err != nil {
		return fmt.Errorf("failed to save briefing: %w", err)
	}
	return nil
}

// Get returns the briefing for a run date, or nil when none exists.
func (r *BriefingRepositoryImpl) Get(runDate string) (*Briefing, error) {
	var b Briefing
	var createdAt string
	err := r.db.QueryRow(`
		SELECT id, run_date, brief_text, created_at
		FROM briefings WHERE run_date = ?
	`, runDate).Scan(&b.ID, &b.RunDate, &b.BriefText, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get briefing: %w", err)
	}

	b.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse briefing timestamp: %w", err)
	}

	return &b, nil
}

// ListDates returns all run dates with a stored briefing, newest first.
func (r *BriefingRepositoryImpl) ListDates() ([]string, error) {
	rows, err := r.db.Query(`SELECT run_date FROM briefings ORDER BY run_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list briefing dates: %w", err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var date string
		if err := rows.Scan(&date); err != nil {
			return nil, fmt.Errorf("failed to scan briefing date: %w", err)
		}
		dates = append(dates, date)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating briefing dates: %w", err)
	}

	return dates, nil
}

// Search returns briefings containing the query, case-insensitive, newest first.
func (r *BriefingRepositoryImpl) Search(query string) ([]Briefing, error) {
	rows, err := r.db.Query(`
		SELECT id, run_date, brief_text, created_at
		FROM briefings
		WHERE lower(brief_text) LIKE '%' || lower(?) || '%'
		ORDER BY run_date DESC
	`, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search briefings: %w", err)
	}
	defer rows.Close()

	var results []Briefing
	for rows.Next() {
		var b Briefing
		var createdAt string
		if err := rows.Scan(&b.ID, &b.RunDate, &b.BriefText, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan briefing row: %w", err)
		}
		b.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse briefing timestamp: %w", err)
		}
		results = append(results, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating briefing rows: %w", err)
	}

	return results, nil
}

// GetBriefingCount returns the total number of stored briefings
func (r *BriefingRepositoryImpl) GetBriefingCount() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM briefings`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count briefings: %w", err)
	}
	return count, nil
}
