package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/auticare/clipscore/pkg/metrics"
)

// Fetch defaults.
const (
	defaultTimeout = 30 * time.Second

	// tempPattern names spooled downloads so stray files are attributable.
	tempPattern = "clipscore-*.mp4"
)

// Downloader spools remote clips to local temp files. It is safe for
// concurrent use.
type Downloader struct {
	client   *http.Client
	maxBytes int64
	tempDir  string
}

// NewDownloader creates a downloader with the given options applied.
func NewDownloader(opts ...Option) *Downloader {
	d := &Downloader{
		client: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Fetch downloads rawURL into a temp file and returns its path together with
// a cleanup that removes the file. The cleanup is non-nil whenever the error
// is nil and is safe to call more than once.
func (d *Downloader) Fetch(ctx context.Context, rawURL string) (string, func(), error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBadURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", nil, fmt.Errorf("%w: scheme %q", ErrBadURL, u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBadURL, err)
	}

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("%w: unexpected status %d", ErrFetch, resp.StatusCode)
	}
	// Reject oversized clips before spooling when the origin declares a length.
	if d.maxBytes > 0 && resp.ContentLength > d.maxBytes {
		return "", nil, fmt.Errorf("%w: %d bytes declared, limit %d",
			ErrTooLarge, resp.ContentLength, d.maxBytes)
	}

	tmp, err := os.CreateTemp(d.tempDir, tempPattern)
	if err != nil {
		return "", nil, fmt.Errorf("%w: temp file: %w", ErrFetch, err)
	}

	written, err := d.spool(tmp, resp.Body)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", nil, err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("%w: flush: %w", ErrFetch, err)
	}

	metrics.RecordFetchLatency(float64(time.Since(start).Milliseconds()))
	metrics.RecordFetchBytes(written)

	path := tmp.Name()
	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			_ = os.Remove(path)
		})
	}
	return path, cleanup, nil
}

// spool copies the body to dst, enforcing the byte cap when one is set. It
// reads one byte past the cap so truncated-at-exactly-the-limit bodies pass.
func (d *Downloader) spool(dst io.Writer, src io.Reader) (int64, error) {
	if d.maxBytes <= 0 {
		n, err := io.Copy(dst, src)
		if err != nil {
			return n, fmt.Errorf("%w: %w", ErrFetch, err)
		}
		return n, nil
	}

	n, err := io.Copy(dst, io.LimitReader(src, d.maxBytes+1))
	if err != nil {
		return n, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if n > d.maxBytes {
		return n, fmt.Errorf("%w: body exceeds %d bytes", ErrTooLarge, d.maxBytes)
	}
	return n, nil
}
