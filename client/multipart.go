package client

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/vendormesh/wabridge/vendors"
)

// SendMultipart uploads a file to the endpoint as a multipart body. Retry
// and classification semantics match Send; the per-attempt timeout is
// doubled. Fails fast with FileNotFoundError before any network activity if
// the file does not exist.
func (c *Client) SendMultipart(ctx context.Context, identity vendors.Identity, vendor *vendors.VendorInfo, endpoint, filePath, filename string) (map[string]any, error) {
	info, err := os.Stat(filePath)
	if err != nil || info.IsDir() {
		return nil, &FileNotFoundError{Path: filePath}
	}
	if filename == "" {
		filename = filepath.Base(filePath)
	}

	credential, err := c.issuer.IssueCredential(identity, vendor)
	if err != nil {
		return nil, &AuthenticationError{Err: err}
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, &FileNotFoundError{Path: filePath}
	}

	// The retry loop lives here rather than in resty: the multipart body is
	// rebuilt from a fresh reader on every attempt, so a retried upload
	// carries the full file contents.
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries+1; attempt++ {
		if attempt > 1 {
			if c.debug {
				c.logger.Debug().
					Str("endpoint", endpoint).
					Err(lastErr).
					Msg("retrying upload after transient failure")
			}
			select {
			case <-ctx.Done():
				return nil, &TransientError{Attempts: attempt - 1, Err: ctx.Err()}
			case <-time.After(retryBackoff):
			}
		}

		resp, err := c.uploadRest.R().
			SetContext(ctx).
			SetAuthToken(credential).
			SetFileReader("file", filename, bytes.NewReader(data)).
			Post(endpoint)
		if err != nil {
			lastErr = err
			continue
		}
		return c.classify(resp)
	}
	return nil, &TransientError{Attempts: c.maxRetries + 1, Err: lastErr}
}
