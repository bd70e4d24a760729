// Package fetcher retrieves listing pages over HTTP with a fixed-delay retry.
//
// Every failure is treated the same: transport errors, timeouts and non-2xx
// statuses all count as a failed attempt. After the last attempt the error is
// returned as a *FetchError.
package fetcher

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the default Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Config configures the fetcher.
type Config struct {
	Retries   int           // Attempts per URL. Default: 3.
	Delay     time.Duration // Wait between attempts. Default: 5s.
	Timeout   time.Duration // Per-attempt HTTP timeout. Default: 30s.
	MaxBytes  int64         // Max decoded body size. Default: 10MB.
	UserAgent string
	// Proxy is used for both http and https targets when set.
	Proxy string
	// RequestsPerSecond throttles outgoing requests. Zero disables it.
	RequestsPerSecond float64
	Sleep             Sleeper
}

func (c *Config) defaults() {
	if c.Retries <= 0 {
		c.Retries = 3
	}
	if c.Delay <= 0 {
		c.Delay = 5 * time.Second
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10 * 1024 * 1024
	}
	if c.Sleep == nil {
		c.Sleep = Sleep
	}
}

// Page is a successfully fetched document, decoded to UTF-8.
type Page struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
	Attempts    int
}

// StatusError reports a non-2xx response.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %s", e.Status)
}

// FetchError is returned once every attempt for URL has failed.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher performs GET requests with retry.
type Fetcher struct {
	client *resty.Client
	config Config
}

// New creates a Fetcher.
func New(cfg Config) *Fetcher {
	cfg.defaults()

	client := resty.New()
	client.SetTimeout(cfg.Timeout)
	client.SetHeader("Accept-Encoding", "br, gzip")
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}
	if cfg.Proxy != "" {
		client.SetProxy(cfg.Proxy)
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return limiter.Wait(req.Context())
		})
	}

	return &Fetcher{client: client, config: cfg}
}

// Fetch retrieves url, retrying up to the configured number of attempts.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	var lastErr error
	for attempt := 1; attempt <= f.config.Retries; attempt++ {
		page, err := f.get(ctx, url)
		if err == nil {
			page.Attempts = attempt
			return page, nil
		}
		lastErr = err
		log.Printf("Attempt %d failed for %s: %v", attempt, url, err)

		if ctx.Err() != nil {
			return nil, &FetchError{URL: url, Attempts: attempt, Err: lastErr}
		}
		if attempt < f.config.Retries {
			if err := f.config.Sleep(ctx, f.config.Delay); err != nil {
				return nil, &FetchError{URL: url, Attempts: attempt, Err: errors.Join(lastErr, err)}
			}
		}
	}
	return nil, &FetchError{URL: url, Attempts: f.config.Retries, Err: lastErr}
}

func (f *Fetcher) get(ctx context.Context, url string) (*Page, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	raw := resp.RawBody()
	defer raw.Close()

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(raw, 64*1024))
		return nil, &StatusError{StatusCode: resp.StatusCode(), Status: resp.Status()}
	}

	contentType := resp.Header().Get("Content-Type")
	body, err := decodeBody(raw, resp.Header().Get("Content-Encoding"), contentType, f.config.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Page{
		URL:         url,
		StatusCode:  resp.StatusCode(),
		ContentType: contentType,
		Body:        body,
	}, nil
}

// decodeBody undoes Content-Encoding and converts the document to UTF-8.
func decodeBody(r io.Reader, encoding, contentType string, maxBytes int64) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
	case "br":
		r = brotli.NewReader(r)
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer gz.Close()
		r = gz
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}

	utf8Reader, err := charset.NewReader(r, contentType)
	if err != nil {
		return nil, fmt.Errorf("charset: %w", err)
	}

	body, err := io.ReadAll(io.LimitReader(utf8Reader, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > maxBytes {
		return nil, fmt.Errorf("body exceeds %d bytes", maxBytes)
	}
	return body, nil
}
