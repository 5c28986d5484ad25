package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"reelflow/internal/services"
)

type countingReader struct {
	r       io.Reader
	written int64
	report  func(written int64)
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.written += int64(n)
		if c.report != nil {
			c.report(c.written)
		}
	}
	return n, err
}

// UploadFile streams one file's bytes to the asset's pre-allocated upload URL
// via HTTP PUT. onProgress, when non-nil, receives the cumulative byte count
// as the body is consumed.
func (c *Client) UploadFile(ctx context.Context, asset Asset, body io.Reader, size int64, onProgress func(written int64)) error {
	if asset.UploadURL == "" {
		return services.Wrap(services.ErrValidation, "upload", "upload file", fmt.Sprintf("asset %s has no upload url", asset.AssetID), nil)
	}

	reader := &countingReader{r: body, report: onProgress}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, asset.UploadURL, reader)
	if err != nil {
		return services.Wrap(services.ErrUpload, "upload", "upload file", "build request", err)
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrUpload, "upload", "upload file", fmt.Sprintf("put asset %s", asset.AssetID), err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusMultipleChoices {
		return services.Wrap(
			services.ErrUpload,
			"upload",
			"upload file",
			fmt.Sprintf("asset %s upload returned %d", asset.AssetID, resp.StatusCode),
			nil,
		)
	}
	return nil
}
