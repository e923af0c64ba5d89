package main

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// ArchiveWriter owns the archive tree: deterministic output paths, the
// existence check that doubles as the dedup key, and template rendering.
type ArchiveWriter struct {
	root      string
	partition string
	tmpl      *template.Template
}

// NewArchiveWriter parses the document template once. Missing placeholder
// values are a hard error at render time, never silently blanked.
func NewArchiveWriter(settings *Settings) (*ArchiveWriter, error) {
	text, err := settings.Template()
	if err != nil {
		return nil, err
	}
	tmpl, err := template.New("document").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parsing document template: %w", err)
	}
	return &ArchiveWriter{
		root:      settings.ArchiveRoot,
		partition: settings.Partition,
		tmpl:      tmpl,
	}, nil
}

// OutputPath computes the deterministic output path for an item. title may
// be empty before resolution; ok reports whether the path is already
// derivable. Under the domain scheme it always is, so the existence check
// can run before any fetch or enrichment work.
func (w *ArchiveWriter) OutputPath(item WorklistItem, title string) (path string, ok bool) {
	switch w.partition {
	case PartitionDate:
		if title == "" {
			title = sanitizeTitle(item.Title)
		}
		if title == "" {
			return "", false
		}
		year, month := splitDate(item.SavedDate)
		return filepath.Join(w.root, year, month, title+".md"), true
	default:
		return filepath.Join(w.root, domainOf(item), urlPathSlug(item.URL)+".md"), true
	}
}

// Exists reports whether the output path is already archived.
func (w *ArchiveWriter) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Write renders the document and creates it at path. An already existing
// path is reported as skipped, never rewritten.
func (w *ArchiveWriter) Write(path string, item WorklistItem, title string, enrichment *Enrichment, content string) (Status, error) {
	if w.Exists(path) {
		return StatusSkipped, nil
	}

	data := map[string]string{
		"title":      title,
		"url":        item.URL,
		"domain":     domainOf(item),
		"summary":    enrichment.Summary,
		"tags_yaml":  tagsYAML(enrichment.Tags),
		"saved_date": item.SavedDate,
		"content":    content,
	}

	var buf bytes.Buffer
	if err := w.tmpl.Execute(&buf, data); err != nil {
		return StatusFailed, fmt.Errorf("rendering document: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return StatusFailed, fmt.Errorf("creating archive directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return StatusFailed, fmt.Errorf("writing %s: %w", path, err)
	}

	log.WithField("path", path).Info("archived")
	return StatusSaved, nil
}

// tagsYAML renders tags as a YAML list block, each tag lowercased with
// spaces replaced by underscores.
func tagsYAML(tags []string) string {
	lines := make([]string, 0, len(tags))
	for _, tag := range tags {
		normalized := strings.ReplaceAll(strings.ToLower(tag), " ", "_")
		lines = append(lines, "  - "+normalized)
	}
	return strings.Join(lines, "\n")
}

// domainOf prefers the source-supplied domain, falling back to the URL host.
func domainOf(item WorklistItem) string {
	if item.Domain != "" {
		return item.Domain
	}
	parsed, err := url.Parse(item.URL)
	if err != nil {
		return "unknown"
	}
	host := strings.TrimPrefix(parsed.Host, "www.")
	if host == "" {
		return "unknown"
	}
	return host
}

// urlPathSlug turns the URL path into a flat filename component, slashes
// replaced by underscores. A bare domain URL becomes "index".
func urlPathSlug(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "index"
	}
	slug := strings.ReplaceAll(parsed.Path, "/", "_")
	if slug == "" || slug == "_" {
		return "index"
	}
	return slug
}

// splitDate splits YYYY-MM-DD into year and month, tolerating bad input by
// filing it under unknown.
func splitDate(date string) (year, month string) {
	parts := strings.SplitN(date, "-", 3)
	if len(parts) < 2 || len(parts[0]) != 4 {
		return "unknown", "00"
	}
	return parts[0], parts[1]
}
