package main

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"watch url", "https://www.youtube.com/watch?v=ABC123", "ABC123"},
		{"watch url no www", "https://youtube.com/watch?v=ABC123", "ABC123"},
		{"short url", "https://youtu.be/XYZ789", "XYZ789"},
		{"watch without id", "https://www.youtube.com/watch", ""},
		{"channel page", "https://www.youtube.com/@somechannel", ""},
		{"plain article", "https://example.com/watch?v=ABC123", ""},
		{"not a url", "://broken", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractVideoID(tt.url); got != tt.want {
				t.Errorf("extractVideoID(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"clean", "Plain Title", "Plain Title"},
		{"slashes", "Either/Or", "Either-Or"},
		{"colons", "Go: The Good Parts", "Go- The Good Parts"},
		{"both", "a/b: c", "a-b- c"},
		{"surrounding space", "  padded  ", "padded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeTitle(tt.title); got != tt.want {
				t.Errorf("sanitizeTitle(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

const testArticleHTML = `<!DOCTYPE html>
<html>
<head><title>A Test Article</title></head>
<body>
<article>
<h1>A Test Article</h1>
<p>This is the first paragraph of the article body. It is long enough for
readability to treat it as real content rather than boilerplate chrome.</p>
<p>A second paragraph keeps the extractor convinced that this block is the
main content of the page and not navigation or advertising.</p>
</article>
</body>
</html>`

func TestResolveArticle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(testArticleHTML))
	}))
	defer server.Close()

	resolver := &ContentResolver{client: server.Client()}
	resolver.AddHandler(&ArticleHandler{converter: md.NewConverter("", true, nil)})

	content, err := resolver.Resolve(WorklistItem{URL: server.URL + "/post"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if content.Title != "A Test Article" {
		t.Errorf("Title = %q, want %q", content.Title, "A Test Article")
	}
	if !strings.Contains(content.Body, "first paragraph") {
		t.Errorf("Body missing article text: %q", content.Body)
	}
	if strings.Contains(content.Body, "<p>") {
		t.Errorf("Body still contains HTML: %q", content.Body)
	}
}

func TestResolveHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	resolver := &ContentResolver{client: server.Client()}
	resolver.AddHandler(&ArticleHandler{converter: md.NewConverter("", true, nil)})

	_, err := resolver.Resolve(WorklistItem{URL: server.URL})
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("Resolve() error = %v, want HTTPError", err)
	}
	if httpErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", httpErr.StatusCode)
	}
}

func TestResolveSanitizesTitle(t *testing.T) {
	html := strings.Replace(testArticleHTML, "A Test Article", "Go: A/B Testing", 2)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(html))
	}))
	defer server.Close()

	resolver := &ContentResolver{client: server.Client()}
	resolver.AddHandler(&ArticleHandler{converter: md.NewConverter("", true, nil)})

	content, err := resolver.Resolve(WorklistItem{URL: server.URL + "/post"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if strings.ContainsAny(content.Title, "/:") {
		t.Errorf("Title %q contains filesystem-unsafe characters", content.Title)
	}
}

func TestVideoHandlerRouting(t *testing.T) {
	h := &VideoHandler{}
	if !h.CanHandle("https://www.youtube.com/watch?v=ABC123", nil) {
		t.Error("watch URL with id should route to the video handler")
	}
	if !h.CanHandle("https://youtu.be/XYZ789", nil) {
		t.Error("short URL should route to the video handler")
	}
	// No extractable id falls through to generic extraction.
	if h.CanHandle("https://www.youtube.com/watch", nil) {
		t.Error("watch URL without id should fall through")
	}
	if h.CanHandle("https://example.com/a", nil) {
		t.Error("plain article should fall through")
	}
}

func TestVideoHandlerTitleFallback(t *testing.T) {
	transcripts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"text": "hello"}, {"text": "world"}]`))
	}))
	defer transcripts.Close()

	h := &VideoHandler{
		transcripts: NewTranscriptClient(transcripts.URL, "key"),
		languages:   []string{"en"},
	}

	t.Chdir(t.TempDir()) // transcript cache writes under the working directory

	content, err := h.Handle(WorklistItem{URL: "https://www.youtube.com/watch?v=ABC123"}, nil)
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if content.Body != "hello\nworld" {
		t.Errorf("Body = %q, want caption lines joined by newlines", content.Body)
	}
	if content.Title != "youtube-ABC123" {
		t.Errorf("Title = %q, want the video id fallback", content.Title)
	}

	// A source-provided title (bookmark name) wins over the fallback.
	content, err = h.Handle(WorklistItem{URL: "https://youtu.be/ABC123", Title: "Talk Recording"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if content.Title != "Talk Recording" {
		t.Errorf("Title = %q, want the bookmark name", content.Title)
	}
}
