package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Notifier posts the run report to a webhook. Fire-and-forget: the response
// code is checked for logging only.
type Notifier struct {
	url    string
	client *http.Client
}

func NewNotifier(url string) *Notifier {
	return &Notifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Notify sends the message as plain text. A nil-configured notifier is a
// no-op.
func (n *Notifier) Notify(message string) error {
	if n.url == "" {
		return nil
	}

	resp, err := n.client.Post(n.url, "text/plain", strings.NewReader(message))
	if err != nil {
		return fmt.Errorf("posting notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.Warnf("notification webhook returned %d", resp.StatusCode)
	} else {
		log.Debugf("notification delivered (%d)", resp.StatusCode)
	}
	return nil
}
