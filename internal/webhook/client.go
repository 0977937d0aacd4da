// Package webhook delivers debug bundles to an external HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Client posts JSON payloads to a single URL.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
	sleep      func(context.Context, time.Duration) error
}

func NewClient(url string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With("component", "webhook"),
		sleep:  sleepCtx,
	}
}

// Send posts payload once. 429 and 5xx responses come back as
// *RetryableError.
func (c *Client) Send(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &RetryableError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("post webhook: status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// Deliver sends payload up to MaxAttempts times, retrying transient
// failures with Backoff between attempts.
func (c *Client) Deliver(ctx context.Context, payload any) error {
	var err error
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		if attempt > 0 {
			wait := Backoff(attempt - 1)
			c.logger.Warn("retrying webhook", "attempt", attempt, "backoff", wait, "error", err)
			if serr := c.sleep(ctx, wait); serr != nil {
				return serr
			}
		}
		err = c.Send(ctx, payload)
		if err == nil || !IsRetryable(err) {
			return err
		}
	}
	return fmt.Errorf("webhook failed after %d attempts: %w", MaxAttempts, err)
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
