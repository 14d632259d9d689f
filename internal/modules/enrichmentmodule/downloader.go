package enrichmentmodule

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ImageDownloader fetches a chosen image option from its provider URL.
// Downloads are size-capped so a misbehaving provider cannot fill the disk.
type ImageDownloader struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
}

// NewImageDownloader creates a downloader with the given size cap
func NewImageDownloader(userAgent string, timeout time.Duration, maxBytes int64) *ImageDownloader {
	return &ImageDownloader{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		maxBytes:   maxBytes,
	}
}

// Download fetches the image and returns its bytes and MIME type
func (d *ImageDownloader) Download(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("image download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("image download failed: status %d from %s", resp.StatusCode, imageURL)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > d.maxBytes {
		return nil, "", fmt.Errorf("image exceeds size limit of %d bytes", d.maxBytes)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("empty image response from %s", imageURL)
	}

	mimeType := resp.Header.Get("Content-Type")
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = mimeType[:idx]
	}
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" || !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(data)
	}
	return data, mimeType, nil
}
