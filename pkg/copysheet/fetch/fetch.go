// Package fetch downloads package archives over HTTP.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrHTTPStatus indicates the server answered with a non-2xx status.
var ErrHTTPStatus = errors.New("unexpected HTTP status")

// Options configures a Downloader.
type Options struct {
	// Timeout bounds each request. Zero means no timeout.
	Timeout time.Duration
	// Rate limits requests per second. Zero means unlimited.
	Rate float64
	// Client overrides the HTTP client. Redirects follow the client's policy.
	Client *http.Client
}

// Downloader fetches URLs to local files, one request at a time.
type Downloader struct {
	client  *http.Client
	limiter *rate.Limiter
}

// New creates a Downloader.
func New(opts Options) *Downloader {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	limit := rate.Inf
	if opts.Rate > 0 {
		limit = rate.Limit(opts.Rate)
	}

	return &Downloader{
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Download fetches rawURL and writes the response body to path, replacing any existing file.
// It returns the number of bytes written.
func (d *Downloader) Download(ctx context.Context, rawURL, path string) (int64, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("get %s: %w: %s", rawURL, ErrHTTPStatus, resp.Status)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return 0, err
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		return n, fmt.Errorf("read body: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return n, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return n, err
	}

	return n, nil
}

// Filename returns the part of rawURL after the final "/".
// Query strings and fragments are dropped when rawURL parses as a URL.
// It returns "" when that part cannot name a file inside a directory:
// empty, ".", ".." or containing a path separator.
func Filename(rawURL string) string {
	s := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		s = u.Path
	}
	name := s[strings.LastIndex(s, "/")+1:]
	if name == "." || name == ".." || filepath.Base(name) != name {
		return ""
	}
	return name
}
