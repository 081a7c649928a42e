// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-downloader/internal/merge"
	"github.com/pdiddy/paper-downloader/pkg/types"
)

const confURL = "https://conf.example.org/accepted"

var paperTitles = []string{
	"Scaling Laws for Sparse Mixture of Experts Models",
	"Provably Efficient Exploration in Linear Markov Decision Processes",
	"Learning Robust Representations from Noisy Web Scale Data",
	"A Unified View of Contrastive and Generative Pretraining Objectives",
}

func conferencePage() string {
	var b strings.Builder
	b.WriteString("<html><head><title>Accepted Papers</title></head><body><h1>Program</h1><ul>\n")
	for _, t := range paperTitles {
		fmt.Fprintf(&b, "<li class=\"paper\"><strong>%s</strong><em>Some Author</em></li>\n", t)
	}
	b.WriteString("</ul><p>Workshop session location: Hall B</p></body></html>")
	return b.String()
}

// fakeFetcher serves pages from a map and writes the URL as file content
// on download.
type fakeFetcher struct {
	pages     map[string]string
	failURLs  map[string]bool
	fetches   int
	downloads int
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string) ([]byte, string, error) {
	f.fetches++
	page, ok := f.pages[rawURL]
	if !ok {
		return nil, "", errors.New("HTTP 404")
	}
	return []byte(page), "text/html; charset=utf-8", nil
}

func (f *fakeFetcher) Download(_ context.Context, rawURL, dest string) error {
	f.downloads++
	if f.failURLs[rawURL] {
		return errors.New("HTTP 403")
	}
	return os.WriteFile(dest, []byte(rawURL), 0o644)
}

func (f *fakeFetcher) networkCalls() int {
	return f.fetches + f.downloads
}

// fakeResolver returns one candidate per title unless the title is listed
// in empty or fail.
type fakeResolver struct {
	empty map[string]bool
	fail  map[string]bool
	calls []string
}

func (r *fakeResolver) Resolve(_ context.Context, title string) ([]types.Candidate, error) {
	r.calls = append(r.calls, title)
	if r.fail[title] {
		return nil, errors.New("blocked")
	}
	if r.empty[title] {
		return []types.Candidate{}, nil
	}
	url := "https://pdfs.example.org/" + strings.ReplaceAll(title, " ", "_") + ".pdf"
	return []types.Candidate{{Title: title, PDFURL: types.StringPtr(url)}}, nil
}

type fakeCache struct {
	entries map[string][]types.Candidate
	puts    int
}

func (c *fakeCache) Get(_ context.Context, title string) ([]types.Candidate, bool, error) {
	links, ok := c.entries[title]
	return links, ok, nil
}

func (c *fakeCache) Put(_ context.Context, title string, links []types.Candidate) error {
	if c.entries == nil {
		c.entries = make(map[string][]types.Candidate)
	}
	c.entries[title] = links
	c.puts++
	return nil
}

type fakeMerger struct {
	inputs []merge.Input
	pages  []int
	out    string
}

func (m *fakeMerger) Merge(_ context.Context, inputs []merge.Input, pages []int, out string, _ io.Writer) (merge.Result, error) {
	m.inputs, m.pages, m.out = inputs, pages, out
	if len(pages) == 0 {
		return merge.Result{}, merge.ErrNoPages
	}
	return merge.Result{Output: out, Papers: len(inputs), Pages: len(inputs) * len(pages)}, nil
}

type harness struct {
	cfg      types.PipelineConfig
	fetcher  *fakeFetcher
	resolver *fakeResolver
	merger   *fakeMerger
	cache    *fakeCache
	sleeps   []time.Duration
	out      bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	root := t.TempDir()
	return &harness{
		cfg: types.PipelineConfig{
			URL:        confURL,
			Conference: "icml",
			PDFDir:     filepath.Join(root, "pdf"),
			URLDir:     filepath.Join(root, "conf_url"),
			TempDir:    filepath.Join(root, "temp"),
			DebugFile:  filepath.Join(root, "debug.txt"),
		},
		fetcher:  &fakeFetcher{pages: map[string]string{confURL: conferencePage()}},
		resolver: &fakeResolver{},
		merger:   &fakeMerger{},
	}
}

func (h *harness) pipeline() *Pipeline {
	p := New(h.cfg, h.fetcher, h.resolver, h.merger, slog.New(slog.NewTextHandler(io.Discard, nil)), &h.out)
	if h.cache != nil {
		p.Cache = h.cache
	}
	p.sleep = func(_ context.Context, d time.Duration) error {
		h.sleeps = append(h.sleeps, d)
		return nil
	}
	return p
}

func TestRunBuildsEveryArtifact(t *testing.T) {
	h := newHarness(t)
	h.cfg.Store = true

	p := h.pipeline()
	report, err := p.Run(context.Background())
	require.NoError(t, err)

	l := p.Layout()
	manifest, err := ReadManifest(l.ManifestPath())
	require.NoError(t, err)
	assert.Equal(t, "icml", manifest.Name)
	assert.Equal(t, confURL, manifest.SourceURL)
	require.Len(t, manifest.SelectedPaths, 1)
	assert.Equal(t, "strong", manifest.SelectedPaths[0][len(manifest.SelectedPaths[0])-1].Tag)
	assert.NotNil(t, manifest.PathAttributes)

	list, err := ReadPaperList(l.PaperListPath())
	require.NoError(t, err)
	assert.Equal(t, paperTitles, list)

	links, err := ReadLinkList(l.LinkListPath())
	require.NoError(t, err)
	require.Len(t, links, len(paperTitles))
	for i, pl := range links {
		assert.Equal(t, paperTitles[i], pl.Title)
		require.Len(t, pl.Links, 1)
	}

	for _, title := range paperTitles {
		assert.FileExists(t, l.PaperPath(title))
	}

	assert.Equal(t, []string{StageManifest, StagePaperList, StageLinks, StageDownload}, report.Stages)
	assert.Equal(t, 4, report.Resolved)
	require.NotNil(t, report.Download)
	assert.Equal(t, 4, report.Download.Downloaded)

	// The conference page is fetched once for the manifest and the paper list.
	assert.Equal(t, 1, h.fetcher.fetches)
	assert.Len(t, h.resolver.calls, 4)

	data, err := os.ReadFile(l.ReportPath())
	require.NoError(t, err)
	var saved Report
	require.NoError(t, yaml.Unmarshal(data, &saved))
	assert.Equal(t, "icml", saved.Conference)
	assert.Equal(t, 4, saved.Papers)

	assert.NoDirExists(t, h.cfg.TempDir)
}

func TestRunIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.cfg.Store = true

	_, err := h.pipeline().Run(context.Background())
	require.NoError(t, err)
	firstNetwork := h.fetcher.networkCalls()
	firstResolves := len(h.resolver.calls)

	report, err := h.pipeline().Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, firstNetwork, h.fetcher.networkCalls(), "second run made network calls")
	assert.Equal(t, firstResolves, len(h.resolver.calls), "second run queried the index")
	assert.Equal(t, []string{StageDownload}, report.Stages)
	assert.Equal(t, 4, report.Download.Skipped)
}

func TestRunRequiresURLBeforeAnyIO(t *testing.T) {
	h := newHarness(t)
	h.cfg.URL = ""

	_, err := h.pipeline().Run(context.Background())
	require.ErrorIs(t, err, ErrMissingURL)
	assert.Zero(t, h.fetcher.networkCalls())
	assert.NoDirExists(t, h.cfg.URLDir)
}

func TestRunRequiresMergePages(t *testing.T) {
	h := newHarness(t)
	h.cfg.MergePages = []int{}

	_, err := h.pipeline().Run(context.Background())
	require.ErrorIs(t, err, ErrMissingMerge)
	assert.Zero(t, h.fetcher.networkCalls())
}

func TestRunMerge(t *testing.T) {
	h := newHarness(t)
	h.cfg.MergePages = []int{1, 2}

	p := h.pipeline()
	report, err := p.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, h.merger.inputs, 4)
	assert.Equal(t, paperTitles[0], h.merger.inputs[0].Title)
	assert.Equal(t, filepath.Join(h.cfg.TempDir, paperTitles[0]+".pdf"), h.merger.inputs[0].Path)
	assert.Equal(t, []int{1, 2}, h.merger.pages)
	assert.Equal(t, filepath.Join(h.cfg.PDFDir, DefaultMergeFile), h.merger.out)
	require.NotNil(t, report.Merge)
	assert.Equal(t, 8, report.Merge.Pages)
	assert.Contains(t, report.Stages, StageDownload)
}

func TestRunReportsUnresolvedPapers(t *testing.T) {
	h := newHarness(t)
	h.cfg.Store = true
	h.resolver.empty = map[string]bool{paperTitles[1]: true}
	h.resolver.fail = map[string]bool{paperTitles[2]: true}

	report, err := h.pipeline().Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{paperTitles[1], paperTitles[2]}, report.Unresolved)
	assert.Equal(t, 2, report.Resolved)
	assert.Equal(t, []string{paperTitles[1], paperTitles[2]}, report.Download.Failures)
	assert.Contains(t, h.out.String(), "Unresolved papers (2):")
}

func TestRunDelaysBetweenQueries(t *testing.T) {
	h := newHarness(t)
	h.cfg.Delay = 3 * time.Second

	_, err := h.pipeline().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{3 * time.Second, 3 * time.Second, 3 * time.Second}, h.sleeps)
}

func TestRunFixLinksRequeriesOnlyEmpty(t *testing.T) {
	h := newHarness(t)
	h.resolver.empty = map[string]bool{paperTitles[3]: true}
	_, err := h.pipeline().Run(context.Background())
	require.NoError(t, err)

	h.resolver.empty = nil
	h.resolver.calls = nil
	h.cfg.FixLinks = true
	report, err := h.pipeline().Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{paperTitles[3]}, h.resolver.calls)
	assert.Equal(t, []string{StageLinks}, report.Stages)
	assert.Empty(t, report.Unresolved)
}

func TestRunUsesLinkCache(t *testing.T) {
	h := newHarness(t)
	cached := []types.Candidate{{Title: paperTitles[0], PDFURL: types.StringPtr("https://cache.example/p.pdf")}}
	h.cache = &fakeCache{entries: map[string][]types.Candidate{paperTitles[0]: cached}}

	report, err := h.pipeline().Run(context.Background())
	require.NoError(t, err)

	assert.NotContains(t, h.resolver.calls, paperTitles[0])
	assert.Len(t, h.resolver.calls, 3)
	assert.Equal(t, 1, report.CacheHits)
	assert.Equal(t, 3, h.cache.puts)
}

func TestRunWithoutConferenceUsesTempFolder(t *testing.T) {
	h := newHarness(t)
	h.cfg.Conference = ""

	p := h.pipeline()
	assert.Equal(t, filepath.Join(h.cfg.TempDir, "None_conf_url.json"), p.Layout().ManifestPath())

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "None", report.Conference)
	assert.NoDirExists(t, h.cfg.TempDir)

	entries, err := os.ReadDir(h.cfg.URLDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunWritesDebugReport(t *testing.T) {
	h := newHarness(t)
	h.cfg.Debug = true

	_, err := h.pipeline().Run(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(h.cfg.DebugFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to selected_element_paths in")
	assert.Contains(t, string(data), "1: "+paperTitles[0])
}

func TestRunFetchFailureIsFatalForManifest(t *testing.T) {
	h := newHarness(t)
	h.cfg.URL = "https://conf.example.org/missing"

	_, err := h.pipeline().Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetching conference page")
}

func TestReadMissingArtifact(t *testing.T) {
	_, err := ReadLinkList(filepath.Join(t.TempDir(), "nope_pdf_url.json"))
	assert.ErrorIs(t, err, ErrMissingArtifact)
}

func TestCleanTempRefusesOverlap(t *testing.T) {
	root := t.TempDir()
	p := New(types.PipelineConfig{
		TempDir: root,
		PDFDir:  filepath.Join(root, "pdf"),
		URLDir:  filepath.Join(root, "conf_url"),
	}, nil, nil, nil, nil, nil)

	require.Error(t, p.cleanTemp())
	assert.DirExists(t, root)
}
