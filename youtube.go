package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const transcriptCacheDir = ".cache/youtube"

// caption is one line of a video transcript as returned by the transcript
// service, in order.
type caption struct {
	Text string `json:"text"`
}

// TranscriptClient talks to the transcript service. Responses are cached on
// disk per video id so reruns never hit the rate-limited API twice.
type TranscriptClient struct {
	apiURL string
	apiKey string
	client *http.Client
}

func NewTranscriptClient(apiURL, apiKey string) *TranscriptClient {
	return &TranscriptClient{
		apiURL: apiURL,
		apiKey: apiKey,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// GetTranscript fetches the transcript for a video id, preferring the given
// language codes in order, and joins the caption lines with newlines.
func (c *TranscriptClient) GetTranscript(videoID string, languages []string) (string, error) {
	if c.apiURL == "" {
		return "", fmt.Errorf("transcript API not configured: set youtube.transcript_api_url")
	}

	cachePath := filepath.Join(transcriptCacheDir, videoID)
	if content, err := os.ReadFile(cachePath); err == nil {
		return string(content), nil
	}

	transcript, err := c.fetch(videoID, languages)
	if err != nil {
		return "", err
	}

	// Best-effort cache; a failed write never fails the item.
	if err := os.MkdirAll(transcriptCacheDir, 0755); err == nil {
		_ = os.WriteFile(cachePath, []byte(transcript), 0644)
	}
	return transcript, nil
}

func (c *TranscriptClient) fetch(videoID string, languages []string) (string, error) {
	req, err := http.NewRequest("GET", c.apiURL, nil)
	if err != nil {
		return "", err
	}

	videoURL := fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID)
	q := req.URL.Query()
	q.Add("url", videoURL)
	q.Add("api_key", c.apiKey)
	q.Add("languages", strings.Join(languages, ","))
	req.URL.RawQuery = q.Encode()

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &HTTPError{StatusCode: resp.StatusCode, URL: videoURL}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var captions []caption
	if err := json.Unmarshal(body, &captions); err != nil {
		return "", fmt.Errorf("parsing transcript response: %w", err)
	}
	if len(captions) == 0 {
		return "", fmt.Errorf("empty transcript for %s", videoID)
	}

	lines := make([]string, 0, len(captions))
	for _, line := range captions {
		lines = append(lines, line.Text)
	}
	return strings.Join(lines, "\n"), nil
}
