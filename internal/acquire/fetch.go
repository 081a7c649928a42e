// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const (
	acmPDFMarker  = "dl.acm.org/doi/pdf"
	acmDownloadQS = "?download=true"
)

// Fetcher performs single GET requests through a shared client. The client
// carries the cookie jar, TLS settings and User-Agent.
type Fetcher struct {
	Client *http.Client
	Logger *slog.Logger
}

// NewFetcher returns a Fetcher using client.
func NewFetcher(client *http.Client, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{Client: client, Logger: logger}
}

// Fetch returns the body and Content-Type of rawURL. Transport errors and
// non-2xx statuses are returned as errors.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	resp, err := f.get(ctx, rawURL, "")
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", rawURL, err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// Download fetches rawURL, after RewriteURL, and writes the body verbatim to
// destPath through a temporary file in the same directory.
func (f *Fetcher) Download(ctx context.Context, rawURL, destPath string) error {
	target := RewriteURL(rawURL)
	resp, err := f.get(ctx, target, "application/pdf,*/*")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".download-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, copyErr := io.Copy(tmpFile, resp.Body)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	f.Logger.Debug("downloaded", "url", target, "path", destPath)
	return nil
}

func (f *Fetcher) get(ctx context.Context, rawURL, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, rawURL)
	}
	return resp, nil
}

// RewriteURL applies per-publisher fixes. ACM PDF links need
// ?download=true to serve the file rather than a viewer page.
func RewriteURL(rawURL string) string {
	if strings.Contains(rawURL, acmPDFMarker) && !strings.HasSuffix(rawURL, acmDownloadQS) {
		return rawURL + acmDownloadQS
	}
	return rawURL
}

// PaperFilename returns the on-disk name for a paper: the title with every
// character outside [A-Za-z0-9 ] removed, plus ".pdf".
func PaperFilename(title string) string {
	var b strings.Builder
	for _, r := range title {
		if r == ' ' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String() + ".pdf"
}
