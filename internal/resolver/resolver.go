// Package resolver wraps the parser microservice that normalizes a URL into
// the legacy resolved content id and its top-level domain.
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/ifuryst/feedsync/internal/config"
)

// ResolvedURL is the normalized metadata for one URL.
type ResolvedURL struct {
	ResolvedID int64  `json:"resolvedId"`
	Domain     string `json:"domain"`
}

type Client struct {
	baseURL     string
	maxAttempts int
	logger      *zap.Logger
	client      *http.Client
}

func NewClient(cfg *config.ResolverConfig, logger *zap.Logger) (*Client, error) {
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid resolver timeout %q: %w", cfg.Timeout, err)
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	return &Client{
		baseURL:     cfg.BaseURL,
		maxAttempts: maxAttempts,
		logger:      logger,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Resolve looks up a URL, retrying transient failures with exponential
// backoff. After the attempt budget is exhausted the last error surfaces as a
// fatal error for the event.
func (c *Client) Resolve(ctx context.Context, rawURL string) (*ResolvedURL, error) {
	var resolved *ResolvedURL

	attempt := 0
	operation := func() error {
		attempt++
		r, err := c.fetch(ctx, rawURL)
		if err != nil {
			c.logger.Warn("Resolver request failed",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return err
		}
		resolved = r
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.maxAttempts-1))
	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return nil, fmt.Errorf("resolver failed after %d attempts for %s: %w", attempt, rawURL, err)
	}

	return resolved, nil
}

func (c *Client) fetch(ctx context.Context, rawURL string) (*ResolvedURL, error) {
	endpoint := fmt.Sprintf("%s/resolve?url=%s", c.baseURL, url.QueryEscape(rawURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("resolver returned status %d: %s", resp.StatusCode, string(body))
	}

	var resolved ResolvedURL
	if err := json.NewDecoder(resp.Body).Decode(&resolved); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &resolved, nil
}
