// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline drives a conference from its web page to downloaded and
// merged papers. Each stage runs only when the artifact it produces is
// missing, so an interrupted run resumes where it stopped and a complete
// run repeats without network traffic.
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
	"slices"
	"strings"
	"time"

	"github.com/pdiddy/paper-downloader/internal/acquire"
	"github.com/pdiddy/paper-downloader/internal/merge"
	"github.com/pdiddy/paper-downloader/internal/titles"
	"github.com/pdiddy/paper-downloader/pkg/types"
)

var (
	// ErrMissingURL is returned when the manifest must be built but no
	// source URL was given.
	ErrMissingURL = errors.New("conference URL required to build the manifest")

	// ErrMissingMerge is returned when a merge is requested without pages.
	ErrMissingMerge = errors.New("merge requested without page numbers")

	// ErrMissingArtifact is returned when a stage needs an artifact that
	// does not exist.
	ErrMissingArtifact = errors.New("required artifact missing")
)

// Fetcher retrieves pages and downloads files.
type Fetcher interface {
	acquire.Downloader
	Fetch(ctx context.Context, rawURL string) ([]byte, string, error)
}

// Resolver maps a title to candidate links.
type Resolver interface {
	Resolve(ctx context.Context, title string) ([]types.Candidate, error)
}

// LinkCache remembers resolved links across runs.
type LinkCache interface {
	Get(ctx context.Context, title string) ([]types.Candidate, bool, error)
	Put(ctx context.Context, title string, links []types.Candidate) error
}

// Merger splices pages of downloaded papers into one file.
type Merger interface {
	Merge(ctx context.Context, inputs []merge.Input, pages []int, out string, w io.Writer) (merge.Result, error)
}

// Pipeline runs the stages for one conference.
type Pipeline struct {
	Config   types.PipelineConfig
	Fetcher  Fetcher
	Resolver Resolver
	Merger   Merger

	// Cache is optional.
	Cache LinkCache

	// Policy overrides the default title policy for auto-selection.
	Policy *titles.Policy

	Logger *slog.Logger

	// Out receives per-item progress lines.
	Out io.Writer

	layout Layout

	// page is the conference page fetched by the manifest stage, reused by
	// the paper list stage of the same run.
	page *titles.Buckets

	sleep func(ctx context.Context, d time.Duration) error
}

// New returns a Pipeline for cfg. Folder and file names left empty in cfg
// take their defaults.
func New(cfg types.PipelineConfig, f Fetcher, r Resolver, m Merger, logger *slog.Logger, out io.Writer) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if out == nil {
		out = io.Discard
	}
	cfg = withDefaults(cfg)
	return &Pipeline{
		Config:   cfg,
		Fetcher:  f,
		Resolver: r,
		Merger:   m,
		Logger:   logger,
		Out:      out,
		layout:   NewLayout(cfg),
		sleep:    sleepContext,
	}
}

// Layout returns the artifact locations of the run.
func (p *Pipeline) Layout() Layout {
	return p.layout
}

// Run executes every stage whose artifact is missing and returns the run
// report. The temp folder is removed after a successful run.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	l := p.layout
	report := &Report{Conference: l.Name(), StartedAt: time.Now().UTC(), SourceURL: p.Config.URL}

	needManifest := !exists(l.ManifestPath()) && !exists(l.PaperListPath()) && !exists(l.LinkListPath())
	if needManifest && p.Config.URL == "" {
		return nil, ErrMissingURL
	}
	if p.Config.MergeRequested() && len(p.Config.MergePages) == 0 {
		return nil, ErrMissingMerge
	}

	for _, dir := range l.Dirs() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	if needManifest {
		if err := p.buildManifest(ctx); err != nil {
			return nil, err
		}
		report.ran(StageManifest)
	}

	if !exists(l.PaperListPath()) && !exists(l.LinkListPath()) {
		if err := p.buildPaperList(ctx, report); err != nil {
			return nil, err
		}
		report.ran(StagePaperList)
	}

	if !exists(l.LinkListPath()) || p.Config.FixLinks {
		if err := p.resolveLinks(ctx, report); err != nil {
			return nil, err
		}
		report.ran(StageLinks)
	}

	if p.Config.Store || p.Config.MergeRequested() {
		if err := p.download(ctx, report); err != nil {
			return nil, err
		}
		report.ran(StageDownload)
	}

	if p.Config.MergeRequested() {
		if err := p.merge(ctx, report); err != nil {
			return nil, err
		}
		report.ran(StageMerge)
	}

	report.FinishedAt = time.Now().UTC()
	if p.Config.Conference != "" {
		if err := writeYAML(l.ReportPath(), report); err != nil {
			return report, err
		}
	}

	if err := p.cleanTemp(); err != nil {
		p.Logger.Warn("temp folder not removed", "path", p.Config.TempDir, "error", err)
	}
	return report, nil
}

// buildManifest fetches the conference page, selects the title buckets and
// records them in the manifest.
func (p *Pipeline) buildManifest(ctx context.Context) error {
	fmt.Fprintf(p.Out, "Parsing conference page %s\n", p.Config.URL)

	buckets, err := p.fetchBuckets(ctx, p.Config.URL, p.Config.Attrs)
	if err != nil {
		return err
	}
	p.page = buckets

	res := titles.FromBuckets(buckets, titles.Options{
		Paths:  p.explicitPaths(),
		Attrs:  p.Config.Attrs,
		Policy: p.Policy,
	})

	attrs := p.Config.Attrs
	if attrs == nil {
		attrs = []string{}
	}
	paths := res.Paths
	if paths == nil {
		paths = []types.StructuralPath{}
	}
	manifest := types.Manifest{
		Name:           p.layout.Name(),
		SourceURL:      p.Config.URL,
		SelectedPaths:  paths,
		PathAttributes: attrs,
	}
	if len(paths) == 0 {
		p.Logger.Warn("no title buckets selected; rerun with --debug and pick paths by hand", "url", p.Config.URL)
	}

	path := p.layout.ManifestPath()
	if err := writeJSON(path, manifest); err != nil {
		return err
	}
	fmt.Fprintf(p.Out, "Conference page parsing results saved to: %s\n", path)

	if p.Config.Debug {
		var buf bytes.Buffer
		if err := titles.WriteReport(&buf, buckets, path); err != nil {
			return err
		}
		if err := writeFileAtomic(p.layout.DebugPath(), buf.Bytes()); err != nil {
			return fmt.Errorf("writing debug report: %w", err)
		}
		p.Logger.Info("bucket report written", "path", p.layout.DebugPath(), "buckets", buckets.Len())
	}
	return nil
}

// explicitPaths returns the configured paths, or nil to auto-select.
func (p *Pipeline) explicitPaths() []types.StructuralPath {
	if len(p.Config.Paths) == 0 {
		return nil
	}
	return p.Config.Paths
}

// buildPaperList extracts the titles named by the manifest.
func (p *Pipeline) buildPaperList(ctx context.Context, report *Report) error {
	path := p.layout.ManifestPath()
	manifest, err := ReadManifest(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(p.Out, "Using %s\n", path)
	if report.SourceURL == "" {
		report.SourceURL = manifest.SourceURL
	}

	buckets := p.page
	if buckets == nil || !slices.Equal(manifest.PathAttributes, p.Config.Attrs) {
		if manifest.SourceURL == "" {
			return fmt.Errorf("%s: %w", path, ErrMissingURL)
		}
		buckets, err = p.fetchBuckets(ctx, manifest.SourceURL, manifest.PathAttributes)
		if err != nil {
			return err
		}
	}

	selected := manifest.SelectedPaths
	if selected == nil {
		selected = []types.StructuralPath{}
	}
	res := titles.FromBuckets(buckets, titles.Options{Paths: selected, Attrs: manifest.PathAttributes})
	fmt.Fprintf(p.Out, "Found %d papers\n", len(res.Titles))

	listPath := p.layout.PaperListPath()
	if err := writeJSON(listPath, res.Titles); err != nil {
		return err
	}
	fmt.Fprintf(p.Out, "Paper list saved to: %s\n", listPath)
	return nil
}

func (p *Pipeline) fetchBuckets(ctx context.Context, url string, attrs []string) (*titles.Buckets, error) {
	body, contentType, err := p.Fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetching conference page: %w", err)
	}
	buckets, err := titles.Parse(bytes.NewReader(body), contentType, attrs)
	if err != nil {
		return nil, fmt.Errorf("parsing conference page: %w", err)
	}
	return buckets, nil
}

// resolveLinks finds candidate links for every title and writes the link list.
func (p *Pipeline) resolveLinks(ctx context.Context, report *Report) error {
	var (
		titleList []string
		previous  map[string][]types.Candidate
	)

	linkPath := p.layout.LinkListPath()
	if p.Config.FixLinks && exists(linkPath) {
		old, err := ReadLinkList(linkPath)
		if err != nil {
			return err
		}
		fmt.Fprintf(p.Out, "Found %s\n", linkPath)
		previous = make(map[string][]types.Candidate, len(old))
		for _, pl := range old {
			titleList = append(titleList, pl.Title)
			if _, dup := previous[pl.Title]; !dup {
				previous[pl.Title] = pl.Links
			}
		}
	} else {
		list, err := ReadPaperList(p.layout.PaperListPath())
		if err != nil {
			return err
		}
		fmt.Fprintf(p.Out, "Using %s\n", p.layout.PaperListPath())
		titleList = list
	}

	result := make([]types.PaperLinks, 0, len(titleList))
	queried := 0
	for _, title := range titleList {
		if err := ctx.Err(); err != nil {
			return err
		}

		links := previous[title]
		if len(links) == 0 {
			links = p.cached(ctx, title, report)
		}
		if links == nil {
			if queried > 0 && p.Config.Delay > 0 {
				if err := p.sleep(ctx, p.Config.Delay); err != nil {
					return err
				}
			}
			queried++
			links = p.query(ctx, title)
		}
		if links == nil {
			links = []types.Candidate{}
		}
		if len(links) == 0 {
			report.Unresolved = append(report.Unresolved, title)
		} else {
			report.Resolved++
		}
		result = append(result, types.PaperLinks{Title: title, Links: links})
	}
	report.Papers = len(result)
	report.Queried = queried

	if err := writeJSON(linkPath, result); err != nil {
		return err
	}
	fmt.Fprintf(p.Out, "PDF links saved to: %s\n", linkPath)
	if len(report.Unresolved) > 0 {
		fmt.Fprintf(p.Out, "Unresolved papers (%d):\n", len(report.Unresolved))
		for _, t := range report.Unresolved {
			fmt.Fprintf(p.Out, "  %s\n", t)
		}
	}
	return nil
}

// cached returns the cached links for title, or nil when the cache has no
// usable entry. Cached empty results are retried when fixing links.
func (p *Pipeline) cached(ctx context.Context, title string, report *Report) []types.Candidate {
	if p.Cache == nil {
		return nil
	}
	links, ok, err := p.Cache.Get(ctx, title)
	if err != nil {
		p.Logger.Warn("link cache read failed", "title", title, "error", err)
		return nil
	}
	if !ok || (len(links) == 0 && p.Config.FixLinks) {
		return nil
	}
	report.CacheHits++
	return links
}

// query resolves title. A resolver failure leaves the paper unresolved.
func (p *Pipeline) query(ctx context.Context, title string) []types.Candidate {
	links, err := p.Resolver.Resolve(ctx, title)
	if err != nil {
		p.Logger.Warn("resolving failed", "title", title, "error", err)
		return []types.Candidate{}
	}
	p.Logger.Debug("resolved", "title", title, "candidates", len(links))
	if p.Cache != nil {
		if err := p.Cache.Put(ctx, title, links); err != nil {
			p.Logger.Warn("link cache write failed", "title", title, "error", err)
		}
	}
	return links
}

// download fetches every paper of the link list that is not yet on disk.
func (p *Pipeline) download(ctx context.Context, report *Report) error {
	papers, err := ReadLinkList(p.layout.LinkListPath())
	if err != nil {
		return err
	}
	fmt.Fprintf(p.Out, "Downloading papers to %s\n", p.layout.PaperDir())

	res, err := acquire.DownloadBatch(ctx, p.Fetcher, papers, p.layout.PaperDir(), p.Out)
	if err != nil {
		return err
	}
	report.Download = &DownloadReport{
		Downloaded: res.Downloaded,
		Skipped:    res.Skipped,
		Failed:     res.Failed,
		Failures:   res.FailedTitles,
	}
	if res.HasFailures() {
		fmt.Fprintf(p.Out, "Failed to download (%d):\n", res.Failed)
		for _, t := range res.FailedTitles {
			fmt.Fprintf(p.Out, "  %s\n", t)
		}
	}
	return nil
}

// merge splices the requested pages of every downloaded paper.
func (p *Pipeline) merge(ctx context.Context, report *Report) error {
	papers, err := ReadLinkList(p.layout.LinkListPath())
	if err != nil {
		return err
	}

	inputs := make([]merge.Input, 0, len(papers))
	for _, pl := range papers {
		inputs = append(inputs, merge.Input{Title: pl.Title, Path: p.layout.PaperPath(pl.Title)})
	}

	res, err := p.Merger.Merge(ctx, inputs, p.Config.MergePages, p.layout.MergedPath(), p.Out)
	if err != nil {
		if errors.Is(err, merge.ErrNoPages) {
			return ErrMissingMerge
		}
		return err
	}
	report.Merge = &MergeReport{
		Output:       res.Output,
		Papers:       res.Papers,
		Pages:        res.Pages,
		Missing:      res.Missing,
		SkippedPages: res.Skipped,
	}
	if res.Output != "" {
		fmt.Fprintf(p.Out, "Merged PDF saved to: %s\n", res.Output)
	}
	return nil
}

// cleanTemp removes the temp folder unless it contains or equals one of the
// folders holding results, or the working directory.
func (p *Pipeline) cleanTemp() error {
	temp, err := filepath.Abs(p.Config.TempDir)
	if err != nil {
		return err
	}
	keep := []string{p.Config.PDFDir, p.Config.URLDir, "."}
	for _, k := range keep {
		abs, err := filepath.Abs(k)
		if err != nil {
			return err
		}
		if abs == temp || strings.HasPrefix(abs, temp+string(filepath.Separator)) {
			return fmt.Errorf("temp folder %s overlaps %s", p.Config.TempDir, k)
		}
	}
	return os.RemoveAll(temp)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
