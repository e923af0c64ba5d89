package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// itemResolver and itemEnricher are the pipeline's view of the content
// resolver and enrichment client.
type itemResolver interface {
	Resolve(item WorklistItem) (*ResolvedContent, error)
}

type itemEnricher interface {
	Enrich(body string) (*Enrichment, error)
}

// Pipeline drives one run: worklist in, archive documents out, source of
// truth reconciled, report delivered. Strictly sequential; one item is
// fully processed before the next begins.
type Pipeline struct {
	source   Source // nil when processing a single ad-hoc URL
	resolver itemResolver
	enricher itemEnricher
	archive  *ArchiveWriter
	notifier *Notifier

	rejectsFile string
	failedURLs  []string
}

// NewPipeline wires the pipeline from validated config plus a source
// (which may be nil for --url runs).
func NewPipeline(cfg *Config, source Source) (*Pipeline, error) {
	archive, err := NewArchiveWriter(cfg.Settings)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		source:      source,
		resolver:    NewContentResolver(cfg),
		enricher:    NewEnricher(cfg),
		archive:     archive,
		notifier:    NewNotifier(cfg.Settings.NotifyURL),
		rejectsFile: cfg.Settings.RejectsFile,
	}, nil
}

// Run processes the configured source end to end. A source that cannot
// start returns an empty report and an error wrapping ErrSourceUnavailable;
// nothing has been mutated in that case.
func (p *Pipeline) Run() (*RunReport, error) {
	report := &RunReport{}

	items, err := p.source.Items()
	if err != nil {
		if errors.Is(err, ErrSourceUnavailable) {
			log.Warnf("run aborted: %v", err)
		}
		return report, err
	}

	if len(items) == 0 {
		log.Info("nothing to archive")
	}
	for i, item := range items {
		log.Infof("[%d/%d] processing %s", i+1, len(items), item.URL)
		st := p.processItem(item, report)
		if err := p.source.Ack(item, st); err != nil {
			log.WithField("url", item.URL).Errorf("acknowledging item: %v", err)
		}
	}

	if err := p.source.Close(report); err != nil {
		return report, fmt.Errorf("reconciling source: %w", err)
	}

	p.finish(report)
	return report, nil
}

// RunSingle processes exactly one URL, bypassing the source adapter and any
// source-of-truth mutation.
func (p *Pipeline) RunSingle(item WorklistItem) (*RunReport, error) {
	report := &RunReport{}
	p.processItem(item, report)
	p.finish(report)
	return report, nil
}

// processItem runs {resolve → enrich → write} for one item inside the
// isolation boundary: any stage error lands in the failed bucket and the
// run moves on.
func (p *Pipeline) processItem(item WorklistItem, report *RunReport) Status {
	st, err := p.archiveItem(item)
	switch st {
	case StatusSaved:
		report.AddSaved(item.URL)
	case StatusSkipped:
		log.WithField("url", item.URL).Info("already archived, skipping")
		report.AddSkipped(item.URL)
	default:
		log.WithField("url", item.URL).Errorf("processing failed: %v", err)
		report.AddFailed(item.URL, err)
		p.failedURLs = append(p.failedURLs, item.URL)
	}
	return st
}

func (p *Pipeline) archiveItem(item WorklistItem) (Status, error) {
	// The output path is the dedup key. Checking it before any fetch or
	// enrichment work is a cost invariant: the summarization call is the
	// expensive step and is never spent on an already-archived item.
	path, pathKnown := p.archive.OutputPath(item, "")
	if pathKnown && p.archive.Exists(path) {
		return StatusSkipped, nil
	}

	var title, body string
	if item.BodyText != "" {
		// Table rows carry the article text inline; no fetch step.
		title = sanitizeTitle(item.Title)
		body = item.BodyText
	} else {
		content, err := p.resolver.Resolve(item)
		if err != nil {
			return StatusFailed, err
		}
		title = content.Title
		body = content.Body
	}

	if !pathKnown {
		// Date-partitioned paths need the resolved title. The existence
		// check still runs before enrichment.
		path, _ = p.archive.OutputPath(item, title)
		if p.archive.Exists(path) {
			return StatusSkipped, nil
		}
	}

	enrichment, err := p.enricher.Enrich(body)
	if err != nil {
		return StatusFailed, err
	}

	return p.archive.Write(path, item, title, enrichment, body)
}

// finish delivers the run report: stdout, log, rejects file, notification.
func (p *Pipeline) finish(report *RunReport) {
	rendered := report.String()
	fmt.Println(rendered)
	log.Infof("run complete: %d saved, %d skipped, %d failed",
		len(report.Saved), len(report.Skipped), len(report.Failed))

	if err := p.appendRejects(); err != nil {
		log.Errorf("recording rejected URLs: %v", err)
	}
	if err := p.notifier.Notify(rendered); err != nil {
		log.Errorf("sending notification: %v", err)
	}
}

// appendRejects accumulates failed URLs for manual follow-up. Append-only,
// never deduplicated, never retried automatically.
func (p *Pipeline) appendRejects() error {
	if p.rejectsFile == "" || len(p.failedURLs) == 0 {
		return nil
	}
	f, err := os.OpenFile(p.rejectsFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(strings.Join(p.failedURLs, "\n") + "\n")
	return err
}
