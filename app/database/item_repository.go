package database

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/worldbrief/worldbrief/app/brief"
)

// ItemRepositoryImpl handles database operations for ingested items
type ItemRepositoryImpl struct {
	db *DB
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *DB) *ItemRepositoryImpl {
	return &ItemRepositoryImpl{db: db}
}

// InsertIfAbsent stores a new item, rejecting URL or fingerprint collisions.
func (r *ItemRepositoryImpl) InsertIfAbsent(item brief.Item, runDate string) (bool, error) {
	tags, err := json.Marshal(tagsOrEmpty(item.Tags))
	if err != nil {
		return false, fmt.Errorf("failed to encode tags: %w", err)
	}

	result, err := r.db.Exec(`
		INSERT OR IGNORE INTO items (
			source_type, source_name, external_id, title, text, url,
			published_at, category, confidence, tags, content_hash, run_date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, item.SourceType, item.SourceName, item.ExternalID, item.Title, item.Text,
		item.URL, item.PublishedAt.UTC().Format(time.RFC3339), item.Category,
		item.Confidence, string(tags), item.Fingerprint(), runDate)
	if err != nil {
		return false, fmt.Errorf("failed to insert item: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}

	return affected > 0, nil
}

// UpdateClassification writes category, confidence, and tags for the item
// with the given URL. Unknown URLs are silently ignored.
func (r *ItemRepositoryImpl) UpdateClassification(url, category string, confidence float64, tags []string) error {
	encoded, err := json.Marshal(tagsOrEmpty(tags))
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	_, err = r.db.Exec(`
		UPDATE items SET category = ?, confidence = ?, tags = ?
		WHERE url = ?
	`, category, confidence, string(encoded), url)
	if err != nil {
		return fmt.Errorf("failed to update classification: %w", err)
	}

	return nil
}

// GetByRunDate returns all items stored for a run date, newest first.
func (r *ItemRepositoryImpl) GetByRunDate(runDate string) ([]brief.Item, error) {
	rows, err := r.db.Query(`
		SELECT source_type, source_name, external_id, title, text, url,
		       published_at, category, confidence, tags
		FROM items
		WHERE run_date = ?
		ORDER BY published_at DESC
	`, runDate)
	if err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}
	defer rows.Close()

	var items []brief.Item
	for rows.Next() {
		var item brief.Item
		var publishedAt, tags string
		err := rows.Scan(
			&item.SourceType, &item.SourceName, &item.ExternalID, &item.Title,
			&item.Text, &item.URL, &publishedAt, &item.Category,
			&item.Confidence, &tags,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		item.PublishedAt, err = time.Parse(time.RFC3339, publishedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse stored timestamp: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &item.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode stored tags: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item rows: %w", err)
	}

	return items, nil
}

// GetItemCount returns the total number of stored items
func (r *ItemRepositoryImpl) GetItemCount() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return count, nil
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
