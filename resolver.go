package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	readability "github.com/go-shiori/go-readability"
)

// ErrNoContent marks a page with nothing readable to archive.
var ErrNoContent = errors.New("no readable content")

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

// ContentHandler turns one fetched response into readable content. Handlers
// are tried in registration order; the article handler is the fallback.
type ContentHandler interface {
	CanHandle(url string, resp *http.Response) bool
	Handle(item WorklistItem, resp *http.Response) (*ResolvedContent, error)
}

// ContentResolver fetches a URL and derives (body, title) through a handler
// chain: video transcripts for known video hosts, readability extraction
// for everything else.
type ContentResolver struct {
	client   *http.Client
	handlers []ContentHandler
}

// NewContentResolver builds a resolver with the default handler chain,
// most specific first.
func NewContentResolver(cfg *Config) *ContentResolver {
	r := &ContentResolver{
		client: &http.Client{Timeout: 30 * time.Second},
	}
	r.AddHandler(&VideoHandler{
		transcripts: NewTranscriptClient(cfg.Settings.YouTube.TranscriptAPIURL, cfg.TranscriptAPIKey),
		languages:   cfg.Settings.YouTube.Languages,
	})
	r.AddHandler(&ArticleHandler{converter: md.NewConverter("", true, nil)}) // fallback
	return r
}

// AddHandler appends a handler to the chain.
func (r *ContentResolver) AddHandler(h ContentHandler) {
	r.handlers = append(r.handlers, h)
}

// Resolve fetches the item's URL and hands the response to the first
// matching handler. The returned title is filesystem-safe.
func (r *ContentResolver) Resolve(item WorklistItem) (*ResolvedContent, error) {
	resp, err := r.client.Get(item.URL)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", item.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: item.URL}
	}

	for _, h := range r.handlers {
		if h.CanHandle(item.URL, resp) {
			content, err := h.Handle(item, resp)
			if err != nil {
				return nil, err
			}
			content.Title = sanitizeTitle(content.Title)
			return content, nil
		}
	}
	return nil, fmt.Errorf("no handler found for %s", item.URL)
}

// VideoHandler fetches transcripts for video URLs with an extractable id.
type VideoHandler struct {
	transcripts *TranscriptClient
	languages   []string
}

func (h *VideoHandler) CanHandle(url string, resp *http.Response) bool {
	return extractVideoID(url) != ""
}

func (h *VideoHandler) Handle(item WorklistItem, resp *http.Response) (*ResolvedContent, error) {
	videoID := extractVideoID(item.URL)
	body, err := h.transcripts.GetTranscript(videoID, h.languages)
	if err != nil {
		return nil, fmt.Errorf("fetching transcript for %s: %w", videoID, err)
	}

	// Transcripts carry no title of their own. The bookmark name is the
	// best stand-in when the source provides one; otherwise the video id.
	title := item.Title
	if title == "" {
		title = "youtube-" + videoID
	}
	return &ResolvedContent{Body: body, Title: title}, nil
}

// ArticleHandler is the generic path: readability extraction over the
// fetched HTML, then conversion to markdown.
type ArticleHandler struct {
	converter *md.Converter
}

func (h *ArticleHandler) CanHandle(url string, resp *http.Response) bool {
	return true // fallback
}

func (h *ArticleHandler) Handle(item WorklistItem, resp *http.Response) (*ResolvedContent, error) {
	pageURL, err := url.Parse(item.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing URL %s: %w", item.URL, err)
	}

	article, err := readability.FromReader(resp.Body, pageURL)
	if err != nil {
		return nil, fmt.Errorf("extracting article from %s: %w", item.URL, err)
	}
	if article.Content == "" {
		return nil, fmt.Errorf("%s: %w", item.URL, ErrNoContent)
	}

	body, err := h.converter.ConvertString(article.Content)
	if err != nil {
		return nil, fmt.Errorf("converting %s to markdown: %w", item.URL, err)
	}

	title := article.Title
	if title == "" {
		title = item.URL
	}
	return &ResolvedContent{Body: body, Title: title}, nil
}

// sanitizeTitle replaces path separators and colons so the title is safe
// as a filename component.
func sanitizeTitle(title string) string {
	title = strings.ReplaceAll(title, "/", "-")
	title = strings.ReplaceAll(title, ":", "-")
	return strings.TrimSpace(title)
}

// extractVideoID pulls the video identifier out of a YouTube URL: the v
// query parameter on youtube.com, the path suffix on youtu.be. Returns ""
// for anything else.
func extractVideoID(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(parsed.Host, "www.")
	switch {
	case host == "youtube.com" && parsed.Path == "/watch":
		return parsed.Query().Get("v")
	case host == "youtu.be":
		return strings.TrimPrefix(parsed.Path, "/")
	}
	return ""
}
