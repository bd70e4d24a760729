// Package images downloads product images into a local directory.
//
// Image failures never propagate: every call ends in a Result whose Outcome
// says whether a file was written. Downloads are not retried.
package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ShopScraper/utils"

	"github.com/go-resty/resty/v2"
)

// Outcome is how an acquisition ended.
type Outcome int

const (
	Downloaded Outcome = iota
	Skipped
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Downloaded:
		return "downloaded"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result is returned by Acquire. Path is set only when Outcome is Downloaded.
type Result struct {
	Path    *string
	Outcome Outcome
	Err     error
}

// ImageError describes a failed download.
type ImageError struct {
	URL        string
	Title      string
	StatusCode int
	Err        error
}

func (e *ImageError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("image for %q from %s: status %d", e.Title, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("image for %q from %s: %v", e.Title, e.URL, e.Err)
}

func (e *ImageError) Unwrap() error { return e.Err }

// ErrInlineImage marks data: URIs, which are never downloaded.
var ErrInlineImage = errors.New("inline data URI")

// Config configures the Acquirer.
type Config struct {
	Dir       string        // Default: "images".
	Timeout   time.Duration // Default: 10s.
	ChunkSize int           // Default: 1024.
	UserAgent string
}

func (c *Config) defaults() {
	if c.Dir == "" {
		c.Dir = "images"
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = 1024
	}
}

// Acquirer downloads images to Config.Dir.
type Acquirer struct {
	client *resty.Client
	config Config
}

// New creates an Acquirer.
func New(cfg Config) *Acquirer {
	cfg.defaults()
	client := resty.New()
	client.SetTimeout(cfg.Timeout)
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}
	return &Acquirer{client: client, config: cfg}
}

// IsInline reports whether url is an inline data image rather than a fetchable one.
func IsInline(url string) bool {
	return strings.HasPrefix(url, "data:image")
}

// Acquire downloads imageURL and stores it under a name derived from title.
// Existing files with the same name are overwritten.
func (a *Acquirer) Acquire(ctx context.Context, imageURL *string, title string) Result {
	if imageURL == nil || *imageURL == "" {
		log.Printf("Skipping image for %s: no image URL", title)
		return Result{Outcome: Skipped}
	}
	url := *imageURL
	if IsInline(url) {
		log.Printf("Skipping invalid image URL for %s: %.40s", title, url)
		return Result{Outcome: Skipped, Err: ErrInlineImage}
	}

	filePath := filepath.Join(a.config.Dir, utils.SanitizeFilename(title))
	if err := a.download(ctx, url, filePath); err != nil {
		imgErr := &ImageError{URL: url, Title: title}
		var statusErr *statusError
		if errors.As(err, &statusErr) {
			imgErr.StatusCode = statusErr.code
		}
		imgErr.Err = err
		log.Printf("Error downloading image: %v", imgErr)
		return Result{Outcome: Failed, Err: imgErr}
	}

	log.Printf("Downloaded image for %s to %s", title, filePath)
	return Result{Path: &filePath, Outcome: Downloaded}
}

type statusError struct{ code int }

func (e *statusError) Error() string { return fmt.Sprintf("status %d", e.code) }

func (a *Acquirer) download(ctx context.Context, url, filePath string) error {
	resp, err := a.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return fmt.Errorf("http get: %w", err)
	}
	raw := resp.RawBody()
	defer raw.Close()

	if resp.StatusCode() != http.StatusOK {
		return &statusError{code: resp.StatusCode()}
	}

	if err := os.MkdirAll(a.config.Dir, 0o755); err != nil {
		return fmt.Errorf("create images dir: %w", err)
	}
	return a.writeChunked(raw, filePath)
}

// writeChunked streams r into a temp file next to filePath and renames it
// into place, so concurrent writers to the same name leave one whole file.
func (a *Acquirer) writeChunked(r io.Reader, filePath string) (err error) {
	tmp, err := os.CreateTemp(a.config.Dir, ".download-*.part")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	buf := make([]byte, a.config.ChunkSize)
	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			if _, err = tmp.Write(buf[:n]); err != nil {
				return fmt.Errorf("write chunk: %w", err)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("read body: %w", readErr)
		}
	}

	if err = tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), filePath); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
