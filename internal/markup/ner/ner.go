// Package ner provides an Annotator that calls an NER sidecar over HTTP.
// The sidecar reports offsets alongside each entity, but they are computed on
// its own tokenisation and are not trusted; only the label and surface text
// are kept and markup.Reconcile locates the phrases itself.
package ner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gonkalabs/neam-go/internal/markup"
)

// Client calls the sidecar's /classify endpoint. With more than one base URL
// requests are spread across them round-robin.
type Client struct {
	urls    []string
	counter atomic.Uint64
	http    *http.Client
}

var _ markup.Annotator = (*Client)(nil)

// New creates a NER Client for the given base URLs
// (e.g. "http://ner:8001"). At least one URL is required.
func New(baseURLs ...string) *Client {
	urls := make([]string, 0, len(baseURLs))
	for _, u := range baseURLs {
		u = strings.TrimRight(strings.TrimSpace(u), "/")
		if u != "" {
			urls = append(urls, u+"/classify")
		}
	}
	return &Client{
		urls: urls,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type classifyRequest struct {
	Text string `json:"text"`
}

type classifyResponse struct {
	Spans []nerSpan `json:"spans"`
}

type nerSpan struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Label string `json:"label"`
	Text  string `json:"text"`
}

// next returns the endpoint for the next request.
func (c *Client) next() string {
	idx := c.counter.Add(1) - 1
	return c.urls[idx%uint64(len(c.urls))]
}

// Annotate sends text to the sidecar and returns its mentions in the order
// the sidecar reported them. It is safe for concurrent use.
func (c *Client) Annotate(ctx context.Context, text string) ([]markup.Mention, error) {
	if len(c.urls) == 0 {
		return nil, fmt.Errorf("ner: no sidecar URL configured")
	}

	body, err := json.Marshal(classifyRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("ner: marshal: %w", err)
	}

	url := c.next()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ner: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ner: sidecar unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errBody [512]byte
		n, _ := io.ReadFull(resp.Body, errBody[:])
		slog.Warn("ner: unexpected status", "url", url, "code", resp.StatusCode)
		return nil, fmt.Errorf("ner: sidecar returned %d: %s", resp.StatusCode, strings.TrimSpace(string(errBody[:n])))
	}

	var result classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("ner: decode: %w", err)
	}

	mentions := make([]markup.Mention, 0, len(result.Spans))
	for _, s := range result.Spans {
		if s.Text == "" {
			continue
		}
		mentions = append(mentions, markup.Mention{
			Tag:    s.Label,
			Phrase: s.Text,
		})
	}
	slog.Debug("ner: annotated", "url", url, "mentions", len(mentions))
	return mentions, nil
}
