// Package attachments materializes file attachments referenced by an
// OpenAI-compatible chat message (image_url parts, file parts with a
// file_id, or inline base64 file_data) onto disk inside the request's
// workspace so the child process can read them by path.
package attachments

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/digitallysavvy/claude-code-gateway/internal/gwerrors"
)

// DefaultMaxDownloadSize caps a single remote attachment at 64 MiB. The
// child program only ever needs to read source files and small images; a
// multi-gigabyte cap (as a generic HTTP client library would default to)
// would let a single request exhaust the gateway's memory.
const DefaultMaxDownloadSize = 64 * 1024 * 1024

// DownloadOptions configures a remote attachment fetch.
type DownloadOptions struct {
	Timeout time.Duration
	MaxSize int64
}

// DefaultDownloadOptions returns the options used unless the caller
// overrides them.
func DefaultDownloadOptions() DownloadOptions {
	return DownloadOptions{
		Timeout: 30 * time.Second,
		MaxSize: DefaultMaxDownloadSize,
	}
}

// Download fetches url and returns its body, enforcing opts.MaxSize so a
// malicious or misconfigured image_url cannot be used to exhaust memory.
func Download(ctx context.Context, url string, opts DownloadOptions) ([]byte, error) {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxSize == 0 {
		opts.MaxSize = DefaultMaxDownloadSize
	}

	client := &http.Client{Timeout: opts.Timeout}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, gwerrors.NewDownloadError(url, 0, "", "", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, gwerrors.NewDownloadError(url, 0, "", "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, gwerrors.NewDownloadError(url, resp.StatusCode, resp.Status, "", nil)
	}

	if resp.ContentLength > 0 && resp.ContentLength > opts.MaxSize {
		return nil, gwerrors.NewDownloadError(url, 0, "", fmt.Sprintf(
			"attachment exceeded maximum size of %d bytes (Content-Length: %d)", opts.MaxSize, resp.ContentLength), nil)
	}

	limited := io.LimitReader(resp.Body, opts.MaxSize+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, gwerrors.NewDownloadError(url, 0, "", "", err)
	}
	if int64(len(data)) > opts.MaxSize {
		return nil, gwerrors.NewDownloadError(url, 0, "", fmt.Sprintf(
			"attachment exceeded maximum size of %d bytes", opts.MaxSize), nil)
	}

	return data, nil
}
