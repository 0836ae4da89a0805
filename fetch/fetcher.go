// Package fetch retrieves manifest and item content documents from store
// hosting, with bounded retry, DNS caching, and per-host circuit breaking.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/dnscache"

	"github.com/rapp-store/federation/internal/core"
)

// maxDocumentSize caps a single fetched document. Manifests and skill
// documents are text; anything larger is a misconfigured store.
const maxDocumentSize = 10 << 20

// Fetcher downloads documents from a store's raw content hosting. It
// surfaces transport failures as core.NetworkError, deadline expiry as
// core.TimeoutError, and non-200 statuses as core.HTTPError. Retry is
// bounded and internal; callers decide any further policy.
type Fetcher struct {
	client     *http.Client
	userAgent  string
	maxRetries int
	baseDelay  time.Duration
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithMaxRetries sets the maximum retry attempts for 5xx and 429 responses.
func WithMaxRetries(n int) Option {
	return func(f *Fetcher) {
		f.maxRetries = n
	}
}

// WithBaseDelay sets the base delay for exponential backoff between retries.
func WithBaseDelay(d time.Duration) Option {
	return func(f *Fetcher) {
		f.baseDelay = d
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.client.Timeout = d
	}
}

// NewFetcher creates a Fetcher with DNS-cached dialing and sensible
// defaults: 30s timeout, 3 retries with exponential backoff and jitter.
func NewFetcher(opts ...Option) *Fetcher {
	resolver := &dnscache.Resolver{}
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			resolver.Refresh(true)
		}
	}()

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	f := &Fetcher{
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
					host, port, err := net.SplitHostPort(addr)
					if err != nil {
						return nil, err
					}
					ips, err := resolver.LookupHost(ctx, host)
					if err != nil {
						return nil, err
					}
					for _, ip := range ips {
						conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
						if err == nil {
							return conn, nil
						}
					}
					return nil, fmt.Errorf("failed to dial any resolved IP")
				},
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		userAgent:  "rapp-federation/1.0",
		maxRetries: 3,
		baseDelay:  500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads a document from the given URL.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff with 10% jitter to avoid synchronized
			// retries against the same host.
			delay := f.baseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
			delay += time.Duration(float64(delay) * (rand.Float64() * 0.1))

			select {
			case <-ctx.Done():
				return nil, f.wrapContextErr(ctx, url)
			case <-time.After(delay):
			}
		}

		data, err := f.doFetch(ctx, url)
		if err == nil {
			return data, nil
		}
		lastErr = err

		if !retryable(err) {
			return nil, err
		}
	}

	return nil, lastErr
}

// retryable reports whether another attempt can help: server errors and
// rate limiting, nothing else.
func retryable(err error) bool {
	var httpErr *core.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 500 || httpErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}

func (f *Fetcher) doFetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &core.NetworkError{URL: url, Err: err}
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := f.client.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, &core.TimeoutError{URL: url, After: f.client.Timeout}
		}
		return nil, &core.NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return nil, &core.HTTPError{StatusCode: resp.StatusCode, URL: url}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize+1))
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, &core.TimeoutError{URL: url, After: f.client.Timeout}
		}
		return nil, &core.NetworkError{URL: url, Err: err}
	}
	if len(data) > maxDocumentSize {
		return nil, &core.NetworkError{URL: url, Err: fmt.Errorf("document exceeds %d bytes", maxDocumentSize)}
	}

	return data, nil
}

// Head checks whether a document exists and returns its size without
// downloading it. Size is -1 when the server does not report it.
func (f *Fetcher) Head(ctx context.Context, url string) (size int64, contentType string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, "", &core.NetworkError{URL: url, Err: err}
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return 0, "", &core.TimeoutError{URL: url, After: f.client.Timeout}
		}
		return 0, "", &core.NetworkError{URL: url, Err: err}
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, "", &core.HTTPError{StatusCode: resp.StatusCode, URL: url}
	}

	size = -1
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil {
			size = n
		}
	}

	return size, resp.Header.Get("Content-Type"), nil
}

func (f *Fetcher) wrapContextErr(ctx context.Context, url string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &core.TimeoutError{URL: url}
	}
	return ctx.Err()
}

// isTimeout distinguishes deadline expiry from other transport failures.
func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
