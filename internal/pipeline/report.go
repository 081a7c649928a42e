// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"time"

	"github.com/pdiddy/paper-downloader/internal/merge"
)

// Stage names recorded in Report.Stages.
const (
	StageManifest  = "manifest"
	StagePaperList = "paper_list"
	StageLinks     = "links"
	StageDownload  = "download"
	StageMerge     = "merge"
)

// Report summarizes one run. It is written next to the other artifacts of a
// named conference.
type Report struct {
	Conference string    `yaml:"conference"`
	SourceURL  string    `yaml:"source_url,omitempty"`
	StartedAt  time.Time `yaml:"started_at"`
	FinishedAt time.Time `yaml:"finished_at"`
	Stages     []string  `yaml:"stages"`

	Papers     int      `yaml:"papers"`
	Resolved   int      `yaml:"resolved"`
	Queried    int      `yaml:"queried"`
	CacheHits  int      `yaml:"cache_hits"`
	Unresolved []string `yaml:"unresolved,omitempty"`

	Download *DownloadReport `yaml:"download,omitempty"`
	Merge    *MergeReport    `yaml:"merge,omitempty"`
}

// DownloadReport is the download stage section of a Report.
type DownloadReport struct {
	Downloaded int      `yaml:"downloaded"`
	Skipped    int      `yaml:"skipped"`
	Failed     int      `yaml:"failed"`
	Failures   []string `yaml:"failures,omitempty"`
}

// MergeReport is the merge stage section of a Report.
type MergeReport struct {
	Output       string              `yaml:"output,omitempty"`
	Papers       int                 `yaml:"papers"`
	Pages        int                 `yaml:"pages"`
	Missing      []string            `yaml:"missing,omitempty"`
	SkippedPages []merge.SkippedPage `yaml:"skipped_pages,omitempty"`
}

func (r *Report) ran(stage string) {
	r.Stages = append(r.Stages, stage)
}
