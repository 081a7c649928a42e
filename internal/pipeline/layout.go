// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"path/filepath"

	"github.com/pdiddy/paper-downloader/internal/acquire"
	"github.com/pdiddy/paper-downloader/pkg/types"
)

// Artifact name suffixes.
const (
	ManifestSuffix  = "_conf_url.json"
	PaperListSuffix = "_paper_list.json"
	LinkListSuffix  = "_pdf_url.json"
	ReportSuffix    = "_report.yaml"

	// anonymousName is used when no conference name is given.
	anonymousName = "None"
)

// Default folders and file names.
const (
	DefaultPDFDir    = "pdf"
	DefaultURLDir    = "conf_url"
	DefaultTempDir   = "temp"
	DefaultMergeFile = "merged.pdf"
	DefaultDebugFile = "debug.txt"
)

// Layout maps a run configuration to artifact locations.
type Layout struct {
	cfg types.PipelineConfig
}

// NewLayout returns the layout for cfg, filling in default folders.
func NewLayout(cfg types.PipelineConfig) Layout {
	return Layout{cfg: withDefaults(cfg)}
}

func withDefaults(cfg types.PipelineConfig) types.PipelineConfig {
	if cfg.PDFDir == "" {
		cfg.PDFDir = DefaultPDFDir
	}
	if cfg.URLDir == "" {
		cfg.URLDir = DefaultURLDir
	}
	if cfg.TempDir == "" {
		cfg.TempDir = DefaultTempDir
	}
	if cfg.MergeFile == "" {
		cfg.MergeFile = DefaultMergeFile
	}
	if cfg.DebugFile == "" {
		cfg.DebugFile = DefaultDebugFile
	}
	return cfg
}

// Name is the conference identifier used in artifact names.
func (l Layout) Name() string {
	if l.cfg.Conference == "" {
		return anonymousName
	}
	return l.cfg.Conference
}

// ArtifactDir holds the manifest, paper list and link list. Runs without a
// conference name keep them in the temp folder.
func (l Layout) ArtifactDir() string {
	if l.cfg.Conference == "" {
		return l.cfg.TempDir
	}
	return l.cfg.URLDir
}

func (l Layout) ManifestPath() string  { return filepath.Join(l.ArtifactDir(), l.Name()+ManifestSuffix) }
func (l Layout) PaperListPath() string { return filepath.Join(l.ArtifactDir(), l.Name()+PaperListSuffix) }
func (l Layout) LinkListPath() string  { return filepath.Join(l.ArtifactDir(), l.Name()+LinkListSuffix) }
func (l Layout) ReportPath() string    { return filepath.Join(l.ArtifactDir(), l.Name()+ReportSuffix) }

// PaperDir is where downloaded papers go: the PDF folder when papers are
// stored, the temp folder otherwise.
func (l Layout) PaperDir() string {
	if l.cfg.Store {
		return l.cfg.PDFDir
	}
	return l.cfg.TempDir
}

// PaperPath is the download location of the paper with the given title.
func (l Layout) PaperPath(title string) string {
	return filepath.Join(l.PaperDir(), acquire.PaperFilename(title))
}

// MergedPath is the merged output file.
func (l Layout) MergedPath() string {
	return filepath.Join(l.cfg.PDFDir, l.cfg.MergeFile)
}

// DebugPath is the bucket report file.
func (l Layout) DebugPath() string {
	return l.cfg.DebugFile
}

// Dirs lists the folders a run creates.
func (l Layout) Dirs() []string {
	return []string{l.cfg.TempDir, l.cfg.URLDir, l.cfg.PDFDir}
}
