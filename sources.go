package main

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

// ErrSourceUnavailable marks a source that cannot run at all (missing file,
// missing credentials). The run ends early with an empty report; nothing
// external has been touched yet.
var ErrSourceUnavailable = errors.New("source unavailable")

// Source turns one bookmark origin into a worklist and reconciles it after
// the run. Exactly one source is active per run.
type Source interface {
	// Items returns the ordered worklist. A source that cannot start at
	// all returns an error wrapping ErrSourceUnavailable.
	Items() ([]WorklistItem, error)

	// Ack is called once per item, right after its outcome is known.
	Ack(item WorklistItem, st Status) error

	// Close reconciles the source of truth after the full pass and may
	// add source-level failures (malformed rows) to the report.
	Close(report *RunReport) error
}

// ListFileSource reads a flat text file of "URL" or "URL YYYY-MM-DD" lines.
// The whole file is consumed at the end of the pass; with retryFailed, only
// the failed lines are written back.
type ListFileSource struct {
	path        string
	defaultDate string
	retryFailed bool

	malformed      []string // "line: reason", reported at Close
	malformedLines []string // original text, kept in the file under retryFailed
	failed         []WorklistItem
	attempted      bool
}

// NewListFileSource creates a list-file source. defaultDate applies to
// lines that carry no date of their own.
func NewListFileSource(path, defaultDate string, retryFailed bool) *ListFileSource {
	return &ListFileSource{path: path, defaultDate: defaultDate, retryFailed: retryFailed}
}

func (s *ListFileSource) Items() ([]WorklistItem, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("list file %s: %w", s.path, ErrSourceUnavailable)
		}
		return nil, fmt.Errorf("opening list file %s: %w", s.path, err)
	}
	defer file.Close()

	var items []WorklistItem
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		item, err := parseListLine(line, s.defaultDate)
		if err != nil {
			// Malformed lines are skipped with a warning, not fatal.
			log.WithField("line", lineNo).Warnf("skipping malformed line: %v", err)
			s.malformed = append(s.malformed, fmt.Sprintf("%s: %v", line, err))
			s.malformedLines = append(s.malformedLines, line)
			continue
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading list file %s: %w", s.path, err)
	}

	return items, nil
}

func (s *ListFileSource) Ack(item WorklistItem, st Status) error {
	s.attempted = true
	if st == StatusFailed {
		s.failed = append(s.failed, item)
	}
	return nil
}

func (s *ListFileSource) Close(report *RunReport) error {
	report.Failed = append(report.Failed, s.malformed...)
	if !s.attempted && len(s.malformed) == 0 {
		return nil
	}

	// One-shot consumption clears the file outright. Under retryFailed the
	// failed lines survive for the next run, and malformed lines stay put
	// so the user can fix them in place.
	var keep []string
	if s.retryFailed {
		for _, item := range s.failed {
			keep = append(keep, item.URL+" "+item.SavedDate)
		}
		keep = append(keep, s.malformedLines...)
	}
	content := ""
	if len(keep) > 0 {
		content = strings.Join(keep, "\n") + "\n"
	}
	if err := os.WriteFile(s.path, []byte(content), 0644); err != nil {
		return fmt.Errorf("rewriting list file %s: %w", s.path, err)
	}
	return nil
}

// parseListLine parses "URL" or "URL YYYY-MM-DD".
func parseListLine(line, defaultDate string) (WorklistItem, error) {
	fields := strings.Fields(line)
	if len(fields) > 2 {
		return WorklistItem{}, fmt.Errorf("expected \"URL\" or \"URL YYYY-MM-DD\", got %d fields", len(fields))
	}

	rawURL := fields[0]
	if err := validateURL(rawURL); err != nil {
		return WorklistItem{}, err
	}

	savedDate := defaultDate
	if len(fields) == 2 {
		if _, err := time.Parse("2006-01-02", fields[1]); err != nil {
			return WorklistItem{}, fmt.Errorf("invalid date %q", fields[1])
		}
		savedDate = fields[1]
	}

	return WorklistItem{URL: rawURL, SavedDate: savedDate, SourceID: rawURL}, nil
}

func validateURL(rawURL string) error {
	parsed, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL %q", rawURL)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL %q has no host", rawURL)
	}
	return nil
}
