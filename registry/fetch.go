package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Fetcher configuration defaults.
//
// Archives can be hundreds of megabytes, so there is no default limit on a
// whole download; only the wait for the response headers is bounded.
const (
	DefaultMaxIdleConns          = 10
	DefaultMaxIdleConnsPerHost   = 5
	DefaultIdleConnTimeout       = 90 * time.Second
	DefaultResponseHeaderTimeout = 30 * time.Second
)

// Fetcher downloads source archives and patches. It understands http(s)://
// and file:// URLs.
type Fetcher struct {
	client  *http.Client
	timeout time.Duration
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithTimeout bounds each download, body included. Zero or negative values
// leave downloads unbounded apart from the response header timeout.
func WithTimeout(timeout time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.timeout = max(timeout, 0)
	}
}

// NewFetcher creates a Fetcher with a pooled HTTP transport.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          DefaultMaxIdleConns,
		MaxIdleConnsPerHost:   DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:       DefaultIdleConnTimeout,
		ResponseHeaderTimeout: DefaultResponseHeaderTimeout,
	}

	f := &Fetcher{
		client: &http.Client{Transport: transport},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Open returns a reader for the content at url. The caller closes it.
func (f *Fetcher) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	if isFileURL(url) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path, err := parseFileURL(url)
		if err != nil {
			return nil, err
		}
		return os.Open(path)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, url)
	}
	return resp.Body, nil
}

// Fetch returns the content at url.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := f.withTimeout(ctx)
	defer cancel()

	body, err := f.Open(ctx, url)
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }()
	return io.ReadAll(body)
}

// Integrity downloads url and returns its SRI hash. The content is streamed
// through the hash and never held in memory.
func (f *Fetcher) Integrity(ctx context.Context, url string) (string, error) {
	ctx, cancel := f.withTimeout(ctx)
	defer cancel()

	body, err := f.Open(ctx, url)
	if err != nil {
		return "", err
	}
	defer func() { _ = body.Close() }()

	sum, err := IntegrityOf(body)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", url, err)
	}
	return sum, nil
}

func (f *Fetcher) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if f.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, f.timeout)
}

// isFileURL checks if a URL is a file:// URL.
func isFileURL(url string) bool {
	return strings.HasPrefix(url, "file://")
}

// parseFileURL extracts the path from a file:// URL.
// Handles both Unix (file:///path) and Windows (file:///C:/path) formats.
func parseFileURL(url string) (string, error) {
	if !isFileURL(url) {
		return "", fmt.Errorf("not a file:// URL: %s", url)
	}
	path := strings.TrimPrefix(url, "file://")

	// file:///C:/path -> C:/path
	if len(path) >= 3 && path[0] == '/' && isWindowsDriveLetter(path[1]) && path[2] == ':' {
		path = path[1:]
	}
	return filepath.Clean(path), nil
}

func isWindowsDriveLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

// FileURL converts a native path to a file:// URL.
func FileURL(path string) string {
	urlPath := filepath.ToSlash(path)
	if len(urlPath) >= 2 && isWindowsDriveLetter(urlPath[0]) && urlPath[1] == ':' {
		urlPath = "/" + urlPath
	}
	return "file://" + urlPath
}
