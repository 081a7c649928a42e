// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-downloader/pkg/types"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingTransport answers every request with a fixed PDF body and
// remembers the URLs it saw.
type recordingTransport struct {
	urls []string
}

func (rt *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.urls = append(rt.urls, req.URL.String())
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/pdf"}},
		Body:       io.NopCloser(strings.NewReader("%PDF-1.4 fake")),
		Request:    req,
	}, nil
}

func TestRewriteURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://dl.acm.org/doi/pdf/10.1145/3422622", "https://dl.acm.org/doi/pdf/10.1145/3422622?download=true"},
		{"https://dl.acm.org/doi/pdf/10.1145/3422622?download=true", "https://dl.acm.org/doi/pdf/10.1145/3422622?download=true"},
		{"https://dl.acm.org/doi/10.1145/3422622", "https://dl.acm.org/doi/10.1145/3422622"},
		{"https://arxiv.org/pdf/1706.03762", "https://arxiv.org/pdf/1706.03762"},
	}
	for _, tt := range tests {
		if got := RewriteURL(tt.in); got != tt.want {
			t.Errorf("RewriteURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDownloadRewritesACMLinks(t *testing.T) {
	rt := &recordingTransport{}
	f := NewFetcher(&http.Client{Transport: rt}, quietLogger())
	dest := filepath.Join(t.TempDir(), "paper.pdf")

	require.NoError(t, f.Download(context.Background(), "https://dl.acm.org/doi/pdf/10.1145/3422622", dest))

	require.Len(t, rt.urls, 1)
	assert.Equal(t, "https://dl.acm.org/doi/pdf/10.1145/3422622?download=true", rt.urls[0])
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 fake", string(data))
}

func TestPaperFilename(t *testing.T) {
	tests := []struct {
		title, want string
	}{
		{"Attention Is All You Need", "Attention Is All You Need.pdf"},
		{"BERT: Pre-training of Deep Bidirectional Transformers", "BERT Pretraining of Deep Bidirectional Transformers.pdf"},
		{"GPT-4 (Technical) Report / 2023", "GPT4 Technical Report  2023.pdf"},
		{"Über Lernen", "ber Lernen.pdf"},
		{"", ".pdf"},
	}
	for _, tt := range tests {
		if got := PaperFilename(tt.title); got != tt.want {
			t.Errorf("PaperFilename(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
			w.Write([]byte("<html></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), quietLogger())
	body, ct, err := f.Fetch(context.Background(), srv.URL+"/ok")
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(body))
	assert.Equal(t, "text/html; charset=iso-8859-1", ct)

	_, _, err = f.Fetch(context.Background(), srv.URL+"/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")
}

func TestDownloadFailureLeavesNoFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "paper.pdf")
	f := NewFetcher(srv.Client(), quietLogger())
	require.Error(t, f.Download(context.Background(), srv.URL+"/paper.pdf", dest))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// scriptedDownloader fails for URLs listed in fail and writes a stub file
// for every other URL.
type scriptedDownloader struct {
	fail  map[string]bool
	calls []string
}

func (s *scriptedDownloader) Download(_ context.Context, rawURL, dest string) error {
	s.calls = append(s.calls, rawURL)
	if s.fail[rawURL] {
		return errors.New("HTTP 503")
	}
	return os.WriteFile(dest, []byte(rawURL), 0o644)
}

func links(title string, urls ...string) types.PaperLinks {
	p := types.PaperLinks{Title: title, Links: []types.Candidate{}}
	for _, u := range urls {
		p.Links = append(p.Links, types.Candidate{Title: title, PDFURL: types.StringPtr(u)})
	}
	return p
}

func TestDownloadBatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Already Here.pdf"), []byte("x"), 0o644))

	d := &scriptedDownloader{fail: map[string]bool{"https://a/1": true, "https://c/1": true}}
	papers := []types.PaperLinks{
		links("First Paper", "https://a/1", "https://a/2"),
		links("Already Here", "https://b/1"),
		links("Hopeless: Paper", "https://c/1"),
		links("No Links"),
	}

	var buf bytes.Buffer
	res, err := DownloadBatch(context.Background(), d, papers, dir, &buf)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Downloaded)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, 4, res.Total())
	assert.True(t, res.HasFailures())
	assert.Equal(t, []string{"Hopeless: Paper", "No Links"}, res.FailedTitles)
	assert.Equal(t, []string{"https://a/1", "https://a/2", "https://c/1"}, d.calls)

	data, err := os.ReadFile(filepath.Join(dir, "First Paper.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "https://a/2", string(data))

	out := buf.String()
	assert.Contains(t, out, "skipped: Already Here (already exists)")
	assert.Contains(t, out, "downloaded: First Paper")
	assert.Contains(t, out, "failed:  No Links (no candidate links)")
	assert.Contains(t, out, "Batch summary: 1 downloaded, 1 skipped, 2 failed (total: 4)")
}

func TestDownloadBatchStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := &scriptedDownloader{}
	_, err := DownloadBatch(ctx, d, []types.PaperLinks{links("P", "https://x/1")}, t.TempDir(), io.Discard)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, d.calls)
}
