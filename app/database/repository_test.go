package database

import (
	"testing"
	"time"

	"github.com/worldbrief/worldbrief/app/brief"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewConnection(":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

func testItem(url string) brief.Item {
	return brief.Item{
		SourceType:  brief.SourceRSS,
		SourceName:  "Test Feed",
		ExternalID:  url,
		Title:       "Title for " + url,
		Text:        "Body for " + url,
		URL:         url,
		PublishedAt: time.Date(2026, 8, 30, 6, 0, 0, 0, time.UTC),
		Tags:        []string{"tag"},
	}
}

func TestInsertIfAbsent(t *testing.T) {
	repo := NewItemRepository(newTestDB(t))

	inserted, err := repo.InsertIfAbsent(testItem("https://example.com/a"), "2026-08-30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !inserted {
		t.Error("expected first insert to report true")
	}

	inserted, err = repo.InsertIfAbsent(testItem("https://example.com/a"), "2026-08-30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inserted {
		t.Error("expected duplicate URL insert to report false")
	}
}

func TestInsertIfAbsentFingerprintCollision(t *testing.T) {
	repo := NewItemRepository(newTestDB(t))

	first := testItem("https://example.com/a")
	if _, err := repo.InsertIfAbsent(first, "2026-08-30"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Different URL, same title and text.
	second := first
	second.URL = "https://mirror.example.org/a"
	second.ExternalID = second.URL

	inserted, err := repo.InsertIfAbsent(second, "2026-08-30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inserted {
		t.Error("expected content-hash collision to reject insert")
	}
}

func TestUpdateClassification(t *testing.T) {
	db := newTestDB(t)
	repo := NewItemRepository(db)

	item := testItem("https://example.com/a")
	if _, err := repo.InsertIfAbsent(item, "2026-08-30"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := repo.UpdateClassification(item.URL, "Economy", 0.85, []string{"markets", "rates"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	items, err := repo.GetByRunDate("2026-08-30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	got := items[0]
	if got.Category != "Economy" || got.Confidence != 0.85 {
		t.Errorf("classification not persisted: %+v", got)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "markets" {
		t.Errorf("tags not persisted: %v", got.Tags)
	}
}

func TestUpdateClassificationUnknownURLIsNoop(t *testing.T) {
	repo := NewItemRepository(newTestDB(t))

	if err := repo.UpdateClassification("https://example.com/missing", "Economy", 0.5, nil); err != nil {
		t.Errorf("expected no-op for unknown URL, got error: %v", err)
	}
}

func TestGetByRunDateRoundTrip(t *testing.T) {
	repo := NewItemRepository(newTestDB(t))

	item := testItem("https://example.com/a")
	if _, err := repo.InsertIfAbsent(item, "2026-08-30"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	other := testItem("https://example.com/b")
	if _, err := repo.InsertIfAbsent(other, "2026-08-29"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	items, err := repo.GetByRunDate("2026-08-30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item for run date, got %d", len(items))
	}
	got := items[0]
	if got.URL != item.URL || got.Title != item.Title || got.Text != item.Text {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if !got.PublishedAt.Equal(item.PublishedAt) {
		t.Errorf("expected published_at %v, got %v", item.PublishedAt, got.PublishedAt)
	}
}

func TestGetItemCount(t *testing.T) {
	repo := NewItemRepository(newTestDB(t))

	count, err := repo.GetItemCount()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 items, got %d", count)
	}

	repo.InsertIfAbsent(testItem("https://example.com/a"), "2026-08-30")
	repo.InsertIfAbsent(testItem("https://example.com/b"), "2026-08-30")

	count, err = repo.GetItemCount()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 items, got %d", count)
	}
}

func TestBriefingSaveAndGet(t *testing.T) {
	repo := NewBriefingRepository(newTestDB(t))

	if err := repo.Save("2026-08-30", "first version"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.Save("2026-08-30", "second version"); err != nil {
		t.Fatalf("unexpected upsert error: %v", err)
	}

	b, err := repo.Get("2026-08-30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b == nil {
		t.Fatal("expected briefing, got nil")
	}
	if b.BriefText != "second version" {
		t.Errorf("expected upserted text, got %q", b.BriefText)
	}
	if b.CreatedAt.IsZero() {
		t.Error("expected created_at to be populated")
	}
}

func TestBriefingGetMissing(t *testing.T) {
	repo := NewBriefingRepository(newTestDB(t))

	b, err := repo.Get("1999-01-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b != nil {
		t.Errorf("expected nil for missing briefing, got %+v", b)
	}
}

func TestBriefingListDates(t *testing.T) {
	repo := NewBriefingRepository(newTestDB(t))

	repo.Save("2026-08-28", "x")
	repo.Save("2026-08-30", "y")
	repo.Save("2026-08-29", "z")

	dates, err := repo.ListDates()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"2026-08-30", "2026-08-29", "2026-08-28"}
	if len(dates) != len(want) {
		t.Fatalf("expected %d dates, got %v", len(want), dates)
	}
	for i := range want {
		if dates[i] != want[i] {
			t.Errorf("date %d: expected %s, got %s", i, want[i], dates[i])
		}
	}
}

func TestBriefingSearch(t *testing.T) {
	repo := NewBriefingRepository(newTestDB(t))

	repo.Save("2026-08-29", "Markets rallied on the Rate decision.")
	repo.Save("2026-08-30", "Ceasefire talks resumed in Geneva.")

	results, err := repo.Search("rate")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].RunDate != "2026-08-29" {
		t.Errorf("unexpected search results: %+v", results)
	}

	results, err = repo.Search("nothing-matches-this")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %+v", results)
	}
}
