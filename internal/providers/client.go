package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/XiaoConstantine/dspy-go/pkg/logging"
	"github.com/dshills/patchpilot/internal/cache"
)

const (
	defaultMaxTokens = 4096
	requestTimeout   = 120 * time.Second
)

// Client is the resilient completion client. It is safe to reuse across
// calls; each call owns its own retry state.
type Client struct {
	backend     backend
	model       string
	temperature float64
	httpCli     *http.Client
	backoff     Backoff
	cache       *cache.Cache
}

func newClient(b backend, model string, opts Options) *Client {
	httpCli := opts.HTTPClient
	if httpCli == nil {
		httpCli = &http.Client{Timeout: requestTimeout}
	}
	backoff := opts.Backoff
	if backoff.Sleep == nil && backoff.Jitter == nil && backoff.MaxAttempts == 0 {
		backoff = DefaultBackoff()
	}
	return &Client{
		backend:     b,
		model:       model,
		temperature: opts.Temperature,
		httpCli:     httpCli,
		backoff:     backoff,
		cache:       opts.Cache,
	}
}

func (c *Client) Name() string { return c.backend.name() }

// Model returns the model name sent with every request.
func (c *Client) Model() string { return c.model }

// Complete sends messages in strict JSON mode and returns the generated text
// unmodified. The error, if any, is one of the classified types in this package.
func (c *Client) Complete(ctx context.Context, messages []Message, maxOutputTokens int) (string, error) {
	if maxOutputTokens <= 0 {
		maxOutputTokens = defaultMaxTokens
	}
	req := Request{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   maxOutputTokens,
		Temperature: c.temperature,
		JSONMode:    true,
	}

	key := c.cacheKey(req)
	if key != "" {
		if text, ok := c.cache.Get(key); ok {
			logging.GetLogger().Debug(ctx, "Completion cache hit for %s/%s", c.Name(), c.model)
			return text, nil
		}
	}

	text, err := c.backoff.Do(ctx, func(ctx context.Context) (string, error) {
		return c.attempt(ctx, req)
	})
	if err != nil {
		return "", err
	}

	if key != "" {
		if err := c.cache.Put(key, text); err != nil {
			logging.GetLogger().Warn(ctx, "Could not write completion cache: %v", err)
		}
	}
	return text, nil
}

func (c *Client) attempt(ctx context.Context, req Request) (string, error) {
	httpReq, err := c.backend.newRequest(ctx, req)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	httpResp, err := c.httpCli.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &RetryableError{Err: fmt.Errorf("sending request: %w", err)}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", &RetryableError{
			StatusCode: httpResp.StatusCode,
			Header:     httpResp.Header,
			Err:        fmt.Errorf("reading response: %w", err),
		}
	}

	if err := classify(c.backend, httpResp.StatusCode, httpResp.Header, respBody); err != nil {
		return "", err
	}
	return c.backend.decode(respBody)
}

func classify(b backend, status int, header http.Header, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case b.quotaExhausted(body):
		return &FatalQuotaError{StatusCode: status, Body: string(body)}
	case status == http.StatusTooManyRequests || status >= 500:
		return &RetryableError{StatusCode: status, Header: header, Body: string(body)}
	default:
		return &FatalAPIError{StatusCode: status, Body: string(body)}
	}
}

func (c *Client) cacheKey(req Request) string {
	if c.cache == nil || !c.cache.Enabled() {
		return ""
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return ""
	}
	return cache.BuildCacheKey(c.Name(), c.model, string(payload))
}
