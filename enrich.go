package main

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"
)

// enrichmentSystemPrompt is the fixed instruction for the summarization
// service. The 30-word and 10-tag limits live in the schema and are a soft
// contract: instructed, never validated locally.
const enrichmentSystemPrompt = "You create brief summaries of online articles and provide tags based on the contents."

// fallbackEnrichment is used when the service returns nothing usable and
// the on_empty policy is "fallback".
var fallbackEnrichment = Enrichment{
	Summary: "Summary unavailable",
	Tags:    []string{"error"},
}

// completionClient is the summarization service boundary: a system
// instruction plus user content in, raw structured-output text back.
type completionClient interface {
	Complete(systemPrompt, userPrompt, schema string) (string, error)
}

// anthropicClient implements completionClient with llmkit.
type anthropicClient struct {
	apiKey   string
	settings types.RequestSettings
}

func (a *anthropicClient) Complete(systemPrompt, userPrompt, schema string) (string, error) {
	response, err := anthropic.PromptWithSettings(systemPrompt, userPrompt, schema, a.apiKey, a.settings)
	if err != nil {
		return "", err
	}
	if len(response.Content) == 0 {
		return "", nil
	}
	return response.Content[0].Text, nil
}

// Enricher asks the summarization service for a summary and tags.
type Enricher struct {
	client   completionClient
	onEmpty  string
	maxChars int
}

// NewEnricher builds an enricher from the validated config.
func NewEnricher(cfg *Config) *Enricher {
	return &Enricher{
		client: &anthropicClient{
			apiKey: cfg.AnthropicAPIKey,
			settings: types.RequestSettings{
				Model:       cfg.Settings.Enrichment.Model,
				MaxTokens:   cfg.Settings.Enrichment.MaxTokens,
				Temperature: cfg.Settings.Enrichment.Temperature,
			},
		},
		onEmpty:  cfg.Settings.Enrichment.OnEmpty,
		maxChars: cfg.Settings.Enrichment.ContentMaxTokens * 4, // ~4 chars per token
	}
}

// Enrich sends the body text and parses the strict JSON result. A transport
// failure is always an error; an empty or unparseable response follows the
// configured on_empty policy.
func (e *Enricher) Enrich(body string) (*Enrichment, error) {
	text, err := e.client.Complete(enrichmentSystemPrompt, e.limitContent(body), summarySchema)
	if err != nil {
		return nil, fmt.Errorf("summarization request: %w", err)
	}

	enrichment, err := parseEnrichment(text)
	if err != nil {
		if e.onEmpty == OnEmptyFallback {
			log.Warnf("unusable enrichment response, using placeholder: %v", err)
			fallback := fallbackEnrichment
			return &fallback, nil
		}
		return nil, err
	}
	return enrichment, nil
}

func parseEnrichment(text string) (*Enrichment, error) {
	if text == "" {
		return nil, fmt.Errorf("empty enrichment response")
	}
	var enrichment Enrichment
	if err := json.Unmarshal([]byte(text), &enrichment); err != nil {
		return nil, fmt.Errorf("parsing enrichment response: %w", err)
	}
	if enrichment.Summary == "" {
		return nil, fmt.Errorf("enrichment response missing summary")
	}
	return &enrichment, nil
}

// limitContent clamps the body so oversized articles do not blow the
// request budget. The cut backs up to a rune boundary so multibyte text
// is never split mid-character.
func (e *Enricher) limitContent(body string) string {
	if e.maxChars <= 0 || len(body) <= e.maxChars {
		return body
	}
	cut := e.maxChars
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut] + "..."
}
