// Package draftsink forwards extraction bundles to the downstream
// draft-document service, which turns them into editable campaign drafts.
package draftsink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/dgallion1/storysignals/internal/extract"
)

// Client communicates with the draft service HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Draft is the body for PUT /drafts/{key}.
type Draft struct {
	Source     string         `json:"source"`
	BatchID    string         `json:"batch_id,omitempty"`
	Bundle     extract.Bundle `json:"bundle"`
	ReceivedAt string         `json:"received_at"`
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// PutDraft stores or replaces the draft at key. 429 and 5xx responses come
// back as *RetryableError.
func (c *Client) PutDraft(ctx context.Context, key string, d Draft) error {
	body, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/drafts/"+key, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("put draft: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return &RetryableError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	return fmt.Errorf("put draft %s: status %d: %s", key, resp.StatusCode, truncate(string(respBody), 200))
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

var (
	slugInvalidRe = regexp.MustCompile(`[^a-z0-9-]`)
	slugDashesRe  = regexp.MustCompile(`-+`)
)

// Slugify lower-cases s and reduces it to a path-safe key segment of at
// most 50 bytes.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugInvalidRe.ReplaceAllString(s, "-")
	s = slugDashesRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 50 {
		s = strings.TrimRight(s[:50], "-")
	}
	return s
}

// Key builds the draft path for one file of a batch.
func Key(batchID, filename string) string {
	slug := Slugify(filename)
	if slug == "" {
		slug = "narrative"
	}
	if batchID == "" {
		return slug
	}
	return batchID + "/" + slug
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
