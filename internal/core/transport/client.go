package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultURL is the registry "create document" endpoint.
const DefaultURL = "https://ismp.crpt.ru/api/v3/lk/documents/create"

const (
	maxErrorBody = 4096

	// MaxResponseBody caps how much of a registry response is read. The
	// registry answers with a short JSON value; anything beyond is dropped.
	MaxResponseBody = 1 << 20
)

// Result describes a successful delivery.
type Result struct {
	StatusCode int
	Body       []byte
	Duration   time.Duration
}

// Client posts JSON payloads to the registry. A single Client, and its
// http.Client, is meant to be reused for every submission.
type Client struct {
	URL        string
	Token      string
	UserAgent  string
	HTTPClient *http.Client
	Timeout    time.Duration
	Clock      func() time.Time
}

// NewClient returns a client with defaults applied.
func NewClient(url, token string) *Client {
	target := strings.TrimSpace(url)
	if target == "" {
		target = DefaultURL
	}

	return &Client{
		URL:        target,
		Token:      strings.TrimSpace(token),
		HTTPClient: &http.Client{},
	}
}

// Send posts payload to the registry.
func (c *Client) Send(ctx context.Context, payload []byte) (*Result, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: client not configured", ErrTransport)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, cancel := withTimeout(ctx, c.Timeout)
	if cancel != nil {
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	start := c.now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %w", ErrTransport, err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBody))
	duration := c.now().Sub(start)
	if err != nil {
		return &Result{StatusCode: resp.StatusCode, Duration: duration}, fmt.Errorf("%w: read response: %w", ErrTransport, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		message := Truncate(strings.TrimSpace(string(body)), maxErrorBody)
		return &Result{StatusCode: resp.StatusCode, Duration: duration}, &StatusError{
			StatusCode: resp.StatusCode,
			Message:    message,
			RetryAfter: retryAfterHeader(resp),
			Body:       body,
		}
	}

	return &Result{StatusCode: resp.StatusCode, Body: body, Duration: duration}, nil
}

// Truncate shortens s to at most limit bytes without splitting a UTF-8
// sequence.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func (c *Client) now() time.Time {
	if c.Clock != nil {
		return c.Clock()
	}
	return time.Now()
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, nil
	}
	return context.WithTimeout(ctx, timeout)
}

func retryAfterHeader(resp *http.Response) time.Duration {
	if resp == nil || resp.Header == nil {
		return 0
	}

	retry := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if retry == "" {
		return 0
	}

	if seconds, err := time.ParseDuration(retry + "s"); err == nil {
		return seconds
	}
	if parsed, err := http.ParseTime(retry); err == nil {
		if wait := time.Until(parsed); wait > 0 {
			return wait
		}
	}
	return 0
}
