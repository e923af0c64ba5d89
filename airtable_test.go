package main

import (
	"errors"
	"strings"
	"testing"
)

type fakeStore struct {
	rows    []storeRow
	listErr error
	deleted [][]string
}

func (f *fakeStore) ListRows() ([]storeRow, error) {
	return f.rows, f.listErr
}

func (f *fakeStore) DeleteRows(ids []string) error {
	f.deleted = append(f.deleted, ids)
	return nil
}

func articleRow(id, url string) storeRow {
	return storeRow{
		ID: id,
		Fields: map[string]interface{}{
			"URL":          url,
			"Title":        "A Title",
			"Domain":       "example.com",
			"Date":         "2024-03-10",
			"Article text": "full article body",
		},
	}
}

func TestItemFromRow(t *testing.T) {
	item, err := itemFromRow(articleRow("rec1", "https://example.com/a"))
	if err != nil {
		t.Fatalf("itemFromRow() error = %v", err)
	}
	if item.SourceID != "rec1" || item.URL != "https://example.com/a" ||
		item.BodyText != "full article body" || item.SavedDate != "2024-03-10" {
		t.Errorf("item = %+v", item)
	}
}

func TestItemFromRowMissingFields(t *testing.T) {
	required := []string{"URL", "Title", "Domain", "Date", "Article text"}
	for _, field := range required {
		t.Run(field, func(t *testing.T) {
			row := articleRow("rec1", "https://example.com/a")
			delete(row.Fields, field)
			if _, err := itemFromRow(row); err == nil {
				t.Errorf("itemFromRow() without %s should fail", field)
			}
		})
	}
}

func TestAirtableSourceMissingConfig(t *testing.T) {
	_, err := NewAirtableSource("", "base", "table", false)
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("NewAirtableSource() error = %v, want ErrSourceUnavailable", err)
	}
}

func TestAirtableSourceOneShotConsumption(t *testing.T) {
	store := &fakeStore{rows: []storeRow{
		articleRow("rec1", "https://example.com/a"),
		articleRow("rec2", "https://example.com/b"),
		articleRow("rec3", "https://example.com/c"),
	}}
	source := &AirtableSource{store: store, retryFailed: false}

	items, err := source.Items()
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 3 {
		t.Fatalf("Items() returned %d items, want 3", len(items))
	}

	source.Ack(items[0], StatusSaved)
	source.Ack(items[1], StatusSkipped)
	source.Ack(items[2], StatusFailed) // consumed anyway: one-shot policy

	if err := source.Close(&RunReport{}); err != nil {
		t.Fatal(err)
	}
	if len(store.deleted) != 1 || len(store.deleted[0]) != 3 {
		t.Errorf("deleted = %v, want all three record ids in one batch", store.deleted)
	}
}

func TestAirtableSourceRetryKeepsFailed(t *testing.T) {
	store := &fakeStore{rows: []storeRow{
		articleRow("rec1", "https://example.com/a"),
		articleRow("rec2", "https://example.com/b"),
	}}
	source := &AirtableSource{store: store, retryFailed: true}

	items, err := source.Items()
	if err != nil {
		t.Fatal(err)
	}
	source.Ack(items[0], StatusSaved)
	source.Ack(items[1], StatusFailed)

	if err := source.Close(&RunReport{}); err != nil {
		t.Fatal(err)
	}
	if len(store.deleted) != 1 || len(store.deleted[0]) != 1 || store.deleted[0][0] != "rec1" {
		t.Errorf("deleted = %v, want only rec1", store.deleted)
	}
}

func TestAirtableSourceBadRowReported(t *testing.T) {
	bad := storeRow{ID: "rec9", Fields: map[string]interface{}{"URL": "https://example.com/x"}}
	store := &fakeStore{rows: []storeRow{bad, articleRow("rec1", "https://example.com/a")}}
	source := &AirtableSource{store: store}

	items, err := source.Items()
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("Items() returned %d items, want 1", len(items))
	}

	report := &RunReport{}
	if err := source.Close(report); err != nil {
		t.Fatal(err)
	}
	if len(report.Failed) != 1 || !strings.Contains(report.Failed[0], "rec9") {
		t.Errorf("report.Failed = %v, want the bad row", report.Failed)
	}
	if len(store.deleted) != 0 {
		t.Errorf("nothing was acked, but deleted = %v", store.deleted)
	}
}

func TestChunkIDs(t *testing.T) {
	tests := []struct {
		name      string
		count     int
		wantSizes []int
	}{
		{"empty", 0, nil},
		{"under one chunk", 7, []int{7}},
		{"exact chunk", 10, []int{10}},
		{"several chunks", 23, []int{10, 10, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := make([]string, tt.count)
			chunks := chunkIDs(ids, airtableDeleteChunk)
			if len(chunks) != len(tt.wantSizes) {
				t.Fatalf("chunkIDs() produced %d chunks, want %d", len(chunks), len(tt.wantSizes))
			}
			for i, chunk := range chunks {
				if len(chunk) != tt.wantSizes[i] {
					t.Errorf("chunk %d has %d ids, want %d", i, len(chunk), tt.wantSizes[i])
				}
			}
		})
	}
}
