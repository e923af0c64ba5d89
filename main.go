package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var log = logrus.New()

var (
	configFile   string
	sourceKind   string
	singleURL    string
	dateOverride string
	debugMode    bool
)

var rootCmd = &cobra.Command{
	Use:   "squirrel",
	Short: "Archive saved bookmarks as summarized markdown documents",
	Long: `Squirrel collects saved URLs from a list file, an Airtable table, or a
browser bookmark folder, derives a readable article body (or a video
transcript), asks a language model for a short summary and topic tags, and
files the result into a dated, domain-partitioned archive.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(debugMode)

		savedDate := dateOverride
		if savedDate == "" {
			savedDate = time.Now().Format("2006-01-02")
		} else if _, err := time.Parse("2006-01-02", savedDate); err != nil {
			return fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", savedDate)
		}

		cfg, err := LoadConfig(configFile, sourceKind)
		if err != nil {
			return err
		}

		if singleURL != "" {
			return runSingle(cfg, singleURL, savedDate)
		}

		source, err := newSource(cfg, savedDate)
		if err != nil {
			if errors.Is(err, ErrSourceUnavailable) {
				log.Warnf("run aborted: %v", err)
				return nil
			}
			return err
		}

		pipeline, err := NewPipeline(cfg, source)
		if err != nil {
			return err
		}

		_, err = pipeline.Run()
		if errors.Is(err, ErrSourceUnavailable) {
			return nil
		}
		return err
	},
}

// runSingle archives exactly one URL, bypassing the source adapter and any
// source-of-truth mutation.
func runSingle(cfg *Config, rawURL, savedDate string) error {
	if err := validateURL(rawURL); err != nil {
		return err
	}
	pipeline, err := NewPipeline(cfg, nil)
	if err != nil {
		return err
	}
	_, err = pipeline.RunSingle(WorklistItem{URL: rawURL, SavedDate: savedDate})
	return err
}

// newSource builds the configured source adapter. Exactly one kind is
// active per run.
func newSource(cfg *Config, savedDate string) (Source, error) {
	s := cfg.Settings
	retry := s.RetryFailedFor(s.Source)

	switch s.Source {
	case SourceList:
		return NewListFileSource(s.ListFile, savedDate, retry), nil
	case SourceAirtable:
		return NewAirtableSource(cfg.AirtableAPIKey, s.Airtable.Base, s.Airtable.Table, retry)
	case SourceBookmarks:
		if s.Bookmarks.File == "" {
			return nil, fmt.Errorf("bookmarks.file not configured: %w", ErrSourceUnavailable)
		}
		return NewBookmarkSource(s.Bookmarks.File, s.Bookmarks.Folder, savedDate, retry), nil
	}
	return nil, fmt.Errorf("unknown source kind %q", s.Source)
}

// setupLogging sends log output to stderr and script.log.
func setupLogging(debug bool) {
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if debug {
		log.SetLevel(logrus.DebugLevel)
	}

	file, err := os.OpenFile("script.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Warnf("cannot open script.log, logging to stderr only: %v", err)
		return
	}
	log.SetOutput(io.MultiWriter(os.Stderr, file))
}

func init() {
	rootCmd.Flags().StringVar(&configFile, "config", "", "Path to settings.yaml (default .squirrel/settings.yaml)")
	rootCmd.Flags().StringVar(&sourceKind, "source", "", "Source kind: list, airtable, or bookmarks")
	rootCmd.Flags().StringVar(&singleURL, "url", "", "Process exactly this URL, bypassing the source adapter")
	rootCmd.Flags().StringVar(&dateOverride, "date", "", "Saved date applied to all items (YYYY-MM-DD, default today)")
	rootCmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
