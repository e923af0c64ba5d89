package main

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigDir = ".squirrel"

	// Source kinds selectable in settings.yaml or with --source.
	SourceList      = "list"
	SourceAirtable  = "airtable"
	SourceBookmarks = "bookmarks"

	// Archive partition schemes. Domain is canonical; date is kept for
	// archives created by older versions.
	PartitionDomain = "domain"
	PartitionDate   = "date"

	// Policies for an empty or unparseable enrichment response.
	OnEmptyFallback = "fallback"
	OnEmptyFail     = "fail"
)

// Embedded defaults, written into .squirrel/ on first run.
//
//go:embed .squirrel/template.md
var defaultTemplate string

//go:embed .squirrel/summary-schema.json
var summarySchema string

//go:embed .squirrel/settings.yaml
var defaultSettings string

// Settings is the YAML configuration for one run. Everything the pipeline
// needs is resolved here, up front; nothing reads the environment after
// construction.
type Settings struct {
	Source       string `yaml:"source"`
	ArchiveRoot  string `yaml:"archive_root"`
	Partition    string `yaml:"partition"`
	TemplatePath string `yaml:"template_path"`
	ListFile     string `yaml:"list_file"`
	RejectsFile  string `yaml:"rejects_file"`
	NotifyURL    string `yaml:"notify_url"`

	// RetryFailed controls whether items that failed stay in the source
	// for a later run. Unset means the per-source default: bookmarks keep
	// failures, list and airtable consume items one-shot.
	RetryFailed *bool `yaml:"retry_failed"`

	Bookmarks struct {
		File   string `yaml:"file"`
		Folder string `yaml:"folder"`
	} `yaml:"bookmarks"`

	Airtable struct {
		Base  string `yaml:"base"`
		Table string `yaml:"table"`
	} `yaml:"airtable"`

	Enrichment struct {
		Model            string  `yaml:"model"`
		MaxTokens        int     `yaml:"max_tokens"`
		Temperature      float64 `yaml:"temperature"`
		ContentMaxTokens int     `yaml:"content_max_tokens"`
		OnEmpty          string  `yaml:"on_empty"`
	} `yaml:"enrichment"`

	YouTube struct {
		TranscriptAPIURL string   `yaml:"transcript_api_url"`
		Languages        []string `yaml:"languages"`
	} `yaml:"youtube"`
}

// Config bundles validated settings with the secrets read once from the
// environment (.env is honored).
type Config struct {
	Settings *Settings

	AnthropicAPIKey  string
	AirtableAPIKey   string
	TranscriptAPIKey string
}

// LoadConfig reads settings from path (writing defaults on first run when
// path is empty), loads .env, and validates the pieces the configured
// source needs.
func LoadConfig(path, sourceOverride string) (*Config, error) {
	// Missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	if path == "" {
		if err := ensureConfigExists(); err != nil {
			return nil, err
		}
		path = filepath.Join(defaultConfigDir, "settings.yaml")
	}

	settings, err := loadSettings(path)
	if err != nil {
		return nil, err
	}
	if sourceOverride != "" {
		settings.Source = sourceOverride
	}

	cfg := &Config{
		Settings:         settings,
		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		AirtableAPIKey:   os.Getenv("AIRTABLE_API"),
		TranscriptAPIKey: os.Getenv("YOUTUBE_TRANSCRIPT_API_KEY"),
	}
	if settings.Airtable.Base == "" {
		settings.Airtable.Base = os.Getenv("AIRTABLE_BASE")
	}
	if settings.Airtable.Table == "" {
		settings.Airtable.Table = os.Getenv("AIRTABLE_TABLE")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading settings file %s: %w", path, err)
	}

	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parsing settings YAML: %w", err)
	}
	settings.applyDefaults()
	return &settings, nil
}

func (s *Settings) applyDefaults() {
	if s.Source == "" {
		s.Source = SourceList
	}
	if s.ArchiveRoot == "" {
		s.ArchiveRoot = "~/Documents/Squirrel Archive"
	}
	s.ArchiveRoot = expandHome(s.ArchiveRoot)
	if s.Partition == "" {
		s.Partition = PartitionDomain
	}
	if s.ListFile == "" {
		s.ListFile = "import.txt"
	}
	if s.Enrichment.Model == "" {
		s.Enrichment.Model = "claude-3-5-haiku-20241022"
	}
	if s.Enrichment.MaxTokens == 0 {
		s.Enrichment.MaxTokens = 1000
	}
	if s.Enrichment.ContentMaxTokens == 0 {
		s.Enrichment.ContentMaxTokens = 8000
	}
	if s.Enrichment.OnEmpty == "" {
		s.Enrichment.OnEmpty = OnEmptyFallback
	}
	if len(s.YouTube.Languages) == 0 {
		s.YouTube.Languages = []string{"en", "ja"}
	}
}

// validate checks everything the configured source and pipeline will need,
// so a missing credential is caught before any item is touched.
func (c *Config) validate() error {
	s := c.Settings

	switch s.Source {
	case SourceList, SourceAirtable, SourceBookmarks:
	default:
		return fmt.Errorf("unknown source kind %q", s.Source)
	}
	switch s.Partition {
	case PartitionDomain, PartitionDate:
	default:
		return fmt.Errorf("unknown partition scheme %q", s.Partition)
	}
	switch s.Enrichment.OnEmpty {
	case OnEmptyFallback, OnEmptyFail:
	default:
		return fmt.Errorf("unknown enrichment.on_empty policy %q", s.Enrichment.OnEmpty)
	}

	if c.AnthropicAPIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY not set")
	}
	return nil
}

// RetryFailedFor resolves the retry policy for a source kind: the explicit
// setting wins, otherwise bookmarks retry and everything else is one-shot.
func (s *Settings) RetryFailedFor(source string) bool {
	if s.RetryFailed != nil {
		return *s.RetryFailed
	}
	return source == SourceBookmarks
}

// Template returns the document template text, from the override path when
// configured, falling back to the embedded default.
func (s *Settings) Template() (string, error) {
	if s.TemplatePath != "" {
		data, err := os.ReadFile(s.TemplatePath)
		if err != nil {
			return "", fmt.Errorf("reading template %s: %w", s.TemplatePath, err)
		}
		return string(data), nil
	}
	return defaultTemplate, nil
}

// ensureConfigExists creates .squirrel/ and writes the default settings on
// first run so users have a file to edit.
func ensureConfigExists() error {
	if err := os.MkdirAll(defaultConfigDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	settingsPath := filepath.Join(defaultConfigDir, "settings.yaml")
	if _, err := os.Stat(settingsPath); os.IsNotExist(err) {
		if err := os.WriteFile(settingsPath, []byte(defaultSettings), 0644); err != nil {
			return fmt.Errorf("writing default settings: %w", err)
		}
	}
	return nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
