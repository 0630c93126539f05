// Package network delivers batches of events to an HTTP collector.
package network

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/crimson-sun/timber/internal/model"
	"github.com/crimson-sun/timber/internal/output"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 512
)

// InstanceHeader carries the per-process instance ID.
const InstanceHeader = "X-Instance-ID"

// Compression schemes for request bodies.
const (
	CompressionNone = ""
	CompressionGzip = "gzip"
	CompressionZstd = "zstd"
)

// The encoder is safe for concurrent EncodeAll calls.
var zstdEncoder = sync.OnceValues(func() (*zstd.Encoder, error) {
	return zstd.NewWriter(nil)
})

// Option configures a network Transport.
type Option func(*Transport)

// WithHeaders sets custom HTTP headers sent with every POST.
func WithHeaders(h map[string]string) Option {
	return func(t *Transport) { t.headers = h }
}

// WithTimeout sets the HTTP client timeout, whatever the option order.
// Default: 10s, or the timeout of a client passed to WithClient.
func WithTimeout(d time.Duration) Option {
	return func(t *Transport) { t.timeout = d }
}

// WithClient replaces the HTTP client. The client is copied, never
// modified.
func WithClient(c *http.Client) Option {
	return func(t *Transport) { t.client = c }
}

// WithCompression compresses request bodies with gzip or zstd and sets
// Content-Encoding accordingly. Default: none.
func WithCompression(scheme string) Option {
	return func(t *Transport) { t.compression = scheme }
}

// WithInstanceID overrides the generated instance ID.
func WithInstanceID(id string) Option {
	return func(t *Transport) { t.instanceID = id }
}

// StatusError represents a non-2xx HTTP response.
type StatusError struct {
	StatusCode int
	Body       string // first 512 bytes
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("network: HTTP %d: %s", e.StatusCode, e.Body)
}

// Transport POSTs batches of events to an HTTP endpoint as a JSON array of
// envelopes. Each batch is attempted once; the request is bound to the
// caller's context so cancelling it aborts the delivery.
type Transport struct {
	client      *http.Client
	timeout     time.Duration
	url         string
	headers     map[string]string
	instanceID  string
	compression string
}

// New creates a transport targeting the given URL.
func New(url string, opts ...Option) *Transport {
	t := &Transport{
		client:     &http.Client{Timeout: defaultTimeout},
		url:        url,
		instanceID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.timeout > 0 {
		c := *t.client
		c.Timeout = t.timeout
		t.client = &c
	}
	return t
}

// InstanceID returns the ID sent with every batch.
func (t *Transport) InstanceID() string { return t.instanceID }

// DeliverBatch sends events in one POST.
func (t *Transport) DeliverBatch(ctx context.Context, events []model.LogEvent) error {
	if len(events) == 0 {
		return nil
	}
	body, err := json.Marshal(output.FormatBatch(events))
	if err != nil {
		return fmt.Errorf("network: marshal: %w", err)
	}

	body, err = compress(t.compression, body)
	if err != nil {
		return fmt.Errorf("network: compress: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("network: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.compression != CompressionNone {
		req.Header.Set("Content-Encoding", t.compression)
	}
	req.Header.Set(InstanceHeader, t.instanceID)
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("network: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{StatusCode: resp.StatusCode, Body: string(snippet)}
}

func compress(scheme string, body []byte) ([]byte, error) {
	switch scheme {
	case CompressionNone:
		return body, nil
	case CompressionZstd:
		enc, err := zstdEncoder()
		if err != nil {
			return nil, err
		}
		return enc.EncodeAll(body, make([]byte, 0, len(body)/2)), nil
	case CompressionGzip:
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(body); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown scheme %q", scheme)
	}
}
