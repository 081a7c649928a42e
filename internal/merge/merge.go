// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package merge splices selected pages of many papers into one PDF.
package merge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrNoPages is returned when a merge is requested without any page numbers.
var ErrNoPages = errors.New("no merge pages given")

func init() {
	// pdfcpu would otherwise create a config directory under the user's home.
	api.DisableConfigDir()
}

// Input is one paper to take pages from.
type Input struct {
	Title string
	Path  string
}

// SkippedPage records a requested page a paper does not have.
type SkippedPage struct {
	Title string `yaml:"title"`
	Page  int    `yaml:"page"`
}

// Result describes a merge run.
type Result struct {
	// Output is the merged file; empty when nothing was written.
	Output string

	// Papers is the number of papers that contributed at least one page.
	Papers int

	// Pages is the total number of pages in Output.
	Pages int

	// Missing names inputs whose file does not exist or cannot be read.
	Missing []string

	// Skipped lists requested pages that were out of range.
	Skipped []SkippedPage
}

// Merger builds merged PDFs. ScratchDir holds the per-paper page selections
// and must be writable.
type Merger struct {
	ScratchDir string
	Logger     *slog.Logger
}

// New returns a Merger working in scratchDir.
func New(scratchDir string, logger *slog.Logger) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{ScratchDir: scratchDir, Logger: logger}
}

// Merge writes the given 1-indexed pages of every input, in input order and
// then page order, to out. Pages beyond a paper's length are skipped with a
// warning; missing files are reported. When no page qualifies nothing is
// written and Result.Output is empty.
func (m *Merger) Merge(ctx context.Context, inputs []Input, pages []int, out string, w io.Writer) (Result, error) {
	var res Result
	if len(pages) == 0 {
		return res, ErrNoPages
	}

	if limit, err := RaiseFileLimit(uint64(len(inputs) + 10)); err != nil {
		m.Logger.Warn("could not raise open file limit", "error", err)
	} else {
		m.Logger.Debug("open file limit", "soft", limit)
	}

	scratch, err := os.MkdirTemp(m.ScratchDir, "merge-*")
	if err != nil {
		return res, fmt.Errorf("creating scratch directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	conf := newConfig()
	var parts []string
	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if _, err := os.Stat(in.Path); err != nil {
			fmt.Fprintf(w, "missing: %s\n", in.Title)
			res.Missing = append(res.Missing, in.Title)
			continue
		}
		n, err := PageCount(in.Path)
		if err != nil {
			m.Logger.Warn("unreadable PDF", "title", in.Title, "path", in.Path, "error", err)
			fmt.Fprintf(w, "missing: %s (unreadable)\n", in.Title)
			res.Missing = append(res.Missing, in.Title)
			continue
		}

		var selected []string
		for _, p := range pages {
			if p < 1 || p > n {
				fmt.Fprintf(w, "skip: page %d of %s\n", p, in.Title)
				res.Skipped = append(res.Skipped, SkippedPage{Title: in.Title, Page: p})
				continue
			}
			selected = append(selected, strconv.Itoa(p))
		}
		if len(selected) == 0 {
			continue
		}

		part := filepath.Join(scratch, fmt.Sprintf("part-%05d.pdf", i))
		if err := api.CollectFile(in.Path, part, selected, conf); err != nil {
			m.Logger.Warn("collecting pages failed", "title", in.Title, "error", err)
			fmt.Fprintf(w, "missing: %s (%v)\n", in.Title, err)
			res.Missing = append(res.Missing, in.Title)
			continue
		}
		parts = append(parts, part)
		res.Papers++
		res.Pages += len(selected)
	}

	if len(parts) == 0 {
		m.Logger.Warn("nothing to merge", "output", out)
		return res, nil
	}

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return res, fmt.Errorf("creating directory for %s: %w", out, err)
	}
	if err := api.MergeCreateFile(parts, out, false, conf); err != nil {
		return res, fmt.Errorf("merging into %s: %w", out, err)
	}
	res.Output = out
	return res, nil
}

func newConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// PageCount returns the number of pages in the PDF at path.
func PageCount(path string) (int, error) {
	n, err := countWithReader(path)
	if err == nil {
		return n, nil
	}
	// Some files ledongthuc/pdf rejects are still readable by pdfcpu.
	n, cpuErr := api.PageCountFile(path)
	if cpuErr != nil {
		return 0, fmt.Errorf("counting pages of %s: %w", path, errors.Join(err, cpuErr))
	}
	return n, nil
}

// countWithReader uses ledongthuc/pdf, which panics on some malformed files.
func countWithReader(path string) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader: %v", r)
		}
	}()
	f, r, err := pdflib.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return r.NumPage(), nil
}
