// Package fetch downloads remote clips into temp files the decoder can open.
package fetch

import (
	"net/http"
	"time"
)

// Option applies a configuration option to the Downloader.
type Option func(*Downloader)

// WithTimeout bounds a whole download, connection setup included.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Downloader) {
		if timeout > 0 {
			d.client.Timeout = timeout
		}
	}
}

// WithMaxBytes caps how much body the downloader will spool to disk.
// Zero or negative disables the cap.
func WithMaxBytes(limit int64) Option {
	return func(d *Downloader) {
		d.maxBytes = limit
	}
}

// WithTempDir sets where downloads are spooled. Empty means the OS default.
func WithTempDir(dir string) Option {
	return func(d *Downloader) {
		d.tempDir = dir
	}
}

// WithHTTPClient swaps the underlying client, for tests or custom transports.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Downloader) {
		if client != nil {
			d.client = client
		}
	}
}
