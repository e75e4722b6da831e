// Package forms submits payload copies to a Google-Forms-backed logging
// endpoint. Submissions are always fire-and-forget from the caller's
// perspective; errors returned here are only ever logged.
package forms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wb-go/wbf/retry"
)

// Client posts a single form entry field to a formResponse endpoint.
// Google Forms has no API for this; the submission is a plain
// urlencoded POST, so the client is built directly on net/http.
type Client struct {
	formURL  string
	entryID  string
	http     *http.Client
	strategy retry.Strategy
}

// NewClient creates a Client for the given formResponse URL and entry id.
func NewClient(formURL, entryID string, s retry.Strategy) *Client {
	return &Client{
		formURL:  formURL,
		entryID:  entryID,
		http:     &http.Client{Timeout: 10 * time.Second},
		strategy: s,
	}
}

// Submit posts the payload as the configured entry field. Non-string
// payloads are JSON-encoded first.
func (c *Client) Submit(ctx context.Context, payload any) error {
	text, ok := payload.(string)
	if !ok {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal form payload: %w", err)
		}
		text = string(data)
	}

	values := url.Values{}
	values.Set(c.entryID, text)
	body := values.Encode()

	err := retry.Do(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.formURL, strings.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusBadRequest {
			return fmt.Errorf("form endpoint returned status %d", resp.StatusCode)
		}

		return nil
	}, c.strategy)
	if err != nil {
		return fmt.Errorf("failed to submit form data: %w", err)
	}

	return nil
}
