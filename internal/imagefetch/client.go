// Package imagefetch downloads product images over HTTP.
package imagefetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"
)

// Sentinel errors for image download failures.
var (
	ErrUnreachable = errors.New("image host unreachable")
	ErrTimeout     = errors.New("image download timeout")
	ErrHTTPStatus  = errors.New("image download failed")
	ErrNotImage    = errors.New("downloaded content is not an image")
	ErrTooLarge    = errors.New("image exceeds download size limit")
)

// DefaultTimeout bounds every download.
const DefaultTimeout = 30 * time.Second

// maxImageBytes caps a single download at 50 MiB.
const maxImageBytes = 50 << 20

// Fetcher retrieves image bytes and their MIME type.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}

// HTTPClient implements Fetcher over plain HTTP(S).
type HTTPClient struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

// NewHTTPClient creates a fetcher with the given per-request timeout.
// A zero timeout uses DefaultTimeout.
func NewHTTPClient(timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPClient{
		client:    &http.Client{Timeout: timeout},
		userAgent: "scenegen/1.0",
		maxBytes:  maxImageBytes,
	}
}

// Fetch downloads url. The MIME type comes from Content-Type and is sniffed
// from the payload when the header is missing or generic.
func (c *HTTPClient) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "image/*")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("%w: status %d", ErrHTTPStatus, resp.StatusCode)
	}

	if resp.ContentLength > c.maxBytes {
		return nil, "", fmt.Errorf("%w: %d bytes declared, limit %d", ErrTooLarge, resp.ContentLength, c.maxBytes)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, "", classifyError(err)
	}
	if int64(len(data)) > c.maxBytes {
		return nil, "", fmt.Errorf("%w: limit %d bytes", ErrTooLarge, c.maxBytes)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty body", ErrNotImage)
	}

	mimeType := mediaType(resp.Header.Get("Content-Type"))
	if mimeType == "" || mimeType == "application/octet-stream" || mimeType == "binary/octet-stream" {
		mimeType = mediaType(http.DetectContentType(data))
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, "", fmt.Errorf("%w: %s", ErrNotImage, mimeType)
	}

	return data, mimeType, nil
}

func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.ToLower(mt)
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}

// Compile-time check that HTTPClient implements Fetcher.
var _ Fetcher = (*HTTPClient)(nil)
