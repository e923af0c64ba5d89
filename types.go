package main

import (
	"fmt"
	"sort"
	"strings"
)

// WorklistItem is one URL to archive, normalized from whichever source is
// configured. SourceID is the opaque handle used to acknowledge the item at
// its origin (Airtable record id, bookmark URL). BodyText is set when the
// source already carries the full article text and no fetch is needed.
type WorklistItem struct {
	URL       string
	SavedDate string // YYYY-MM-DD
	SourceID  string
	Title     string
	Domain    string
	BodyText  string
}

// ResolvedContent is the readable body and title derived for one item.
type ResolvedContent struct {
	Body  string
	Title string
}

// Enrichment is the summarization service's output for one article.
type Enrichment struct {
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
}

// Status is the outcome of processing one worklist item.
type Status string

const (
	StatusSaved   Status = "saved"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// RunReport accumulates outcomes across one run.
type RunReport struct {
	Saved   []string
	Skipped []string
	Failed  []string // "URL: error"
}

// AddSaved records a successfully archived URL.
func (r *RunReport) AddSaved(url string) {
	r.Saved = append(r.Saved, url)
}

// AddSkipped records a URL whose output path already existed.
func (r *RunReport) AddSkipped(url string) {
	r.Skipped = append(r.Skipped, url)
}

// AddFailed records a URL together with the error that stopped it.
func (r *RunReport) AddFailed(url string, err error) {
	r.Failed = append(r.Failed, fmt.Sprintf("%s: %v", url, err))
}

// Empty reports whether nothing at all was attempted.
func (r *RunReport) Empty() bool {
	return len(r.Saved) == 0 && len(r.Skipped) == 0 && len(r.Failed) == 0
}

// String renders the human-readable run report: counts followed by sorted
// URL lists, one bucket per section.
func (r *RunReport) String() string {
	var b strings.Builder
	writeBucket := func(label string, urls []string) {
		sorted := append([]string(nil), urls...)
		sort.Strings(sorted)
		fmt.Fprintf(&b, "%d articles %s:\n", len(sorted), label)
		for _, u := range sorted {
			fmt.Fprintf(&b, "%s\n", u)
		}
	}
	writeBucket("saved", r.Saved)
	b.WriteString("\n")
	writeBucket("skipped", r.Skipped)
	b.WriteString("\n")
	writeBucket("failed", r.Failed)
	return b.String()
}
