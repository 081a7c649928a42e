// Package acquire fetches conference pages and downloads paper PDFs.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pdiddy/paper-downloader/pkg/types"
)

var errNoCandidates = errors.New("no candidate links")

// Downloader writes the resource at a URL to a local path.
type Downloader interface {
	Download(ctx context.Context, rawURL, destPath string) error
}

// BatchResult holds the outcome of a batch download run.
type BatchResult struct {
	Downloaded int
	Skipped    int
	Failed     int

	// FailedTitles names the papers no candidate could be downloaded for.
	FailedTitles []string
}

// Total returns the total number of papers processed.
func (r BatchResult) Total() int {
	return r.Downloaded + r.Skipped + r.Failed
}

// HasFailures reports whether any papers failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// DownloadPaper stores one paper in dir. If the file already exists the
// download is skipped. Otherwise candidates are tried in order until one
// succeeds; a paper without candidates or whose every candidate fails
// returns an error.
func DownloadPaper(ctx context.Context, d Downloader, paper types.PaperLinks, dir string, w io.Writer) (skipped bool, err error) {
	name := PaperFilename(paper.Title)
	path := filepath.Join(dir, name)

	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(w, "skipped: %s (already exists)\n", paper.Title)
		return true, nil
	}

	var lastErr error
	tried := 0
	for _, c := range paper.Links {
		if c.PDFURL == nil || *c.PDFURL == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return false, err
		}
		tried++
		if err := d.Download(ctx, *c.PDFURL, path); err != nil {
			lastErr = err
			continue
		}
		fmt.Fprintf(w, "downloaded: %s\n", paper.Title)
		return false, nil
	}

	if tried == 0 {
		return false, errNoCandidates
	}
	return false, fmt.Errorf("all %d candidates failed, last: %w", tried, lastErr)
}

// DownloadBatch stores every paper in dir, printing per-item status and a
// summary to w. It continues after individual failures and stops early
// only when ctx is cancelled.
func DownloadBatch(ctx context.Context, d Downloader, papers []types.PaperLinks, dir string, w io.Writer) (BatchResult, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return BatchResult{}, fmt.Errorf("creating directory %s: %w", dir, err)
	}

	var result BatchResult
	for _, p := range papers {
		wasSkipped, err := DownloadPaper(ctx, d, p, dir, w)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			fmt.Fprintf(w, "failed:  %s (%v)\n", p.Title, err)
			result.Failed++
			result.FailedTitles = append(result.FailedTitles, p.Title)
			continue
		}
		if wasSkipped {
			result.Skipped++
		} else {
			result.Downloaded++
		}
	}
	fmt.Fprintf(w, "\nBatch summary: %d downloaded, %d skipped, %d failed (total: %d)\n",
		result.Downloaded, result.Skipped, result.Failed, result.Total())
	return result, nil
}
