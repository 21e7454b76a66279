// Package egress performs the outbound JSON HTTP calls made by webhook steps.
package egress

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultTimeout = 30 * time.Second

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 10 << 20
)

var (
	ErrUnexpectedStatus = errors.New("unexpected response status")
	ErrInvalidResponse  = errors.New("webhook response is not valid JSON")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook responded with status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger.With("module", "egress"),
	}
}

// Request sends body as JSON and decodes the JSON response.
//
// A string body that already holds a JSON document is sent as is. Any other
// string is sent as a JSON string and a nil body sends nothing. An empty
// response decodes to nil and a non-JSON response fails with ErrInvalidResponse.
func (c *Client) Request(ctx context.Context, url, method string, headers map[string]string, body any) (any, error) {
	payload, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, url, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	started := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.DebugContext(ctx, "Webhook call finished",
		"method", method,
		"url", url,
		"status", resp.StatusCode,
		"duration", time.Since(started),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(responseBody), 512)}
	}

	return decodeBody(responseBody)
}

func encodeBody(body any) (io.Reader, error) {
	switch b := body.(type) {
	case nil:
		return http.NoBody, nil
	case string:
		return encodeText([]byte(b))
	case []byte:
		return encodeText(b)
	default:
		encoded, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}

		return bytes.NewReader(encoded), nil
	}
}

func encodeText(text []byte) (io.Reader, error) {
	if json.Valid(text) {
		return bytes.NewReader(text), nil
	}

	encoded, err := json.Marshal(string(text))
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}

	return bytes.NewReader(encoded), nil
}

func decodeBody(body []byte) (any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidResponse, truncate(string(body), 512))
	}

	return decoded, nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}

	return s[:limit] + "..."
}
