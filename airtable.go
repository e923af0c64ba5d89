package main

import (
	"fmt"

	"github.com/mehanizm/airtable"
)

// airtableDeleteChunk is the Airtable API limit for one delete request.
const airtableDeleteChunk = 10

// recordStore is the slice of the record-keeping table the source needs:
// list all rows, delete rows by id.
type recordStore interface {
	ListRows() ([]storeRow, error)
	DeleteRows(ids []string) error
}

type storeRow struct {
	ID     string
	Fields map[string]interface{}
}

// airtableStore implements recordStore against the Airtable API.
type airtableStore struct {
	table *airtable.Table
}

func (a *airtableStore) ListRows() ([]storeRow, error) {
	var rows []storeRow
	offset := ""
	for {
		records, err := a.table.GetRecords().WithOffset(offset).Do()
		if err != nil {
			return nil, fmt.Errorf("listing airtable rows: %w", err)
		}
		for _, rec := range records.Records {
			rows = append(rows, storeRow{ID: rec.ID, Fields: rec.Fields})
		}
		if records.Offset == "" {
			return rows, nil
		}
		offset = records.Offset
	}
}

func (a *airtableStore) DeleteRows(ids []string) error {
	for _, chunk := range chunkIDs(ids, airtableDeleteChunk) {
		if _, err := a.table.DeleteRecords(chunk); err != nil {
			return fmt.Errorf("deleting airtable rows: %w", err)
		}
	}
	return nil
}

// chunkIDs splits ids into batches of at most size.
func chunkIDs(ids []string, size int) [][]string {
	var chunks [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

// AirtableSource pulls saved articles from an Airtable table. Rows carry
// the full article text inline, so items from this source skip the fetch
// step. Attempted rows are batch-deleted after the pass; with retryFailed
// only saved and skipped rows are deleted.
type AirtableSource struct {
	store       recordStore
	retryFailed bool

	badRows   []string
	deletable []string
}

// NewAirtableSource validates connection parameters and builds the source.
func NewAirtableSource(apiKey, base, table string, retryFailed bool) (*AirtableSource, error) {
	if apiKey == "" || base == "" || table == "" {
		return nil, fmt.Errorf("airtable connection parameters missing (AIRTABLE_API, AIRTABLE_BASE, AIRTABLE_TABLE): %w", ErrSourceUnavailable)
	}
	client := airtable.NewClient(apiKey)
	return &AirtableSource{
		store:       &airtableStore{table: client.GetTable(base, table)},
		retryFailed: retryFailed,
	}, nil
}

func (s *AirtableSource) Items() ([]WorklistItem, error) {
	rows, err := s.store.ListRows()
	if err != nil {
		return nil, err
	}

	var items []WorklistItem
	for _, row := range rows {
		item, err := itemFromRow(row)
		if err != nil {
			log.WithField("record", row.ID).Warnf("skipping row: %v", err)
			s.badRows = append(s.badRows, fmt.Sprintf("record %s: %v", row.ID, err))
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *AirtableSource) Ack(item WorklistItem, st Status) error {
	// One-shot consumption: a row is deleted even when its content failed,
	// unless the retry policy keeps it for a later run.
	if st == StatusFailed && s.retryFailed {
		return nil
	}
	s.deletable = append(s.deletable, item.SourceID)
	return nil
}

func (s *AirtableSource) Close(report *RunReport) error {
	report.Failed = append(report.Failed, s.badRows...)

	if len(s.deletable) == 0 {
		return nil
	}
	if err := s.store.DeleteRows(s.deletable); err != nil {
		return err
	}
	log.Infof("deleted %d rows from airtable", len(s.deletable))
	return nil
}

// itemFromRow maps an Airtable row to a worklist item, requiring the
// fields the archive document needs.
func itemFromRow(row storeRow) (WorklistItem, error) {
	get := func(name string) string {
		v, _ := row.Fields[name].(string)
		return v
	}

	item := WorklistItem{
		SourceID:  row.ID,
		URL:       get("URL"),
		Title:     get("Title"),
		Domain:    get("Domain"),
		SavedDate: get("Date"),
		BodyText:  get("Article text"),
	}

	switch {
	case item.URL == "":
		return WorklistItem{}, fmt.Errorf("missing URL field")
	case item.Title == "":
		return WorklistItem{}, fmt.Errorf("missing Title field")
	case item.Domain == "":
		return WorklistItem{}, fmt.Errorf("missing Domain field")
	case item.SavedDate == "":
		return WorklistItem{}, fmt.Errorf("missing Date field")
	case item.BodyText == "":
		return WorklistItem{}, fmt.Errorf("missing Article text field")
	}
	return item, nil
}
