package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultConnectTimeout = 60 * time.Second
	DefaultIdleTimeout    = 60 * time.Second
	DefaultMaxRetries     = 2

	defaultBaseBackoff = 500 * time.Millisecond
	defaultMaxBackoff  = 8 * time.Second

	// maxErrorBody bounds how much of a failed response is kept in APIError.
	maxErrorBody = 64 << 10

	tracerName = "github.com/deepchat/server/upstream"
)

// HTTPClient talks to an OpenAI-compatible /chat/completions endpoint.
type HTTPClient struct {
	httpClient  *http.Client
	tracer      trace.Tracer
	maxRetries  int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	idleTimeout time.Duration
}

type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying client. Its Timeout must be zero or
// long streams will be cut off.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.httpClient = hc }
}

func WithTracer(t trace.Tracer) Option {
	return func(c *HTTPClient) { c.tracer = t }
}

func WithMaxRetries(n int) Option {
	return func(c *HTTPClient) { c.maxRetries = n }
}

func WithBackoff(base, maxWait time.Duration) Option {
	return func(c *HTTPClient) {
		c.baseBackoff = base
		c.maxBackoff = maxWait
	}
}

func WithIdleTimeout(d time.Duration) Option {
	return func(c *HTTPClient) { c.idleTimeout = d }
}

func NewHTTPClient(opts ...Option) *HTTPClient {
	c := &HTTPClient{
		httpClient:  &http.Client{Transport: newTransport(DefaultConnectTimeout)},
		maxRetries:  DefaultMaxRetries,
		baseBackoff: defaultBaseBackoff,
		maxBackoff:  defaultMaxBackoff,
		idleTimeout: DefaultIdleTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	return c
}

// newTransport bounds connection setup only. The body of a streaming
// response is governed by the idle timeout instead.
func newTransport(timeout time.Duration) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.DialContext = (&net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	t.TLSHandshakeTimeout = timeout
	t.ResponseHeaderTimeout = timeout
	return t
}

// Open sends the completion request and returns the response as a Stream.
// Connection failures and retryable statuses are retried with exponential
// backoff; nothing is retried once the stream is returned.
func (c *HTTPClient) Open(ctx context.Context, req Request) (Stream, error) {
	body, err := json.Marshal(completionRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	endpoint := strings.TrimRight(req.BaseURL, "/") + "/chat/completions"

	ctx, span := c.tracer.Start(ctx, "upstream.chat_completion", trace.WithAttributes(
		attribute.String("llm.model", req.Model),
		attribute.Int("llm.messages", len(req.Messages)),
		attribute.Int("llm.max_tokens", req.MaxTokens),
	))
	streamCtx, cancel := context.WithCancel(ctx)

	var resp *http.Response
	for attempt := 0; ; attempt++ {
		resp, err = c.do(streamCtx, endpoint, req.APIKey, body)
		if err == nil {
			span.SetAttributes(attribute.Int("upstream.attempts", attempt+1))
			break
		}
		if attempt >= c.maxRetries || !retryable(err) || ctx.Err() != nil {
			cancel()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			return nil, err
		}

		wait := c.backoff(attempt)
		slog.Warn("upstream connection failed, retrying",
			"attempt", attempt+1, "wait", wait, "model", req.Model, "error", err)
		select {
		case <-ctx.Done():
			cancel()
			span.End()
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}

	return newSSEStream(resp.Body, cancel, span, c.idleTimeout), nil
}

func (c *HTTPClient) do(ctx context.Context, endpoint, apiKey string, body []byte) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return resp, nil
}

func (c *HTTPClient) backoff(attempt int) time.Duration {
	d := c.baseBackoff << attempt
	if d > c.maxBackoff || d <= 0 {
		d = c.maxBackoff
	}
	return d
}

func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
