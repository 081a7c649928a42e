// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package titles

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pdiddy/paper-downloader/pkg/types"
)

// Options controls a title extraction.
type Options struct {
	// Paths are the buckets to take titles from. nil auto-selects buckets
	// with Policy; an empty non-nil slice selects nothing.
	Paths []types.StructuralPath

	// Attrs are the attribute names included in each path step.
	Attrs []string

	// Policy overrides DefaultPolicy for auto-selection.
	Policy *Policy
}

// Result is the outcome of an extraction.
type Result struct {
	// Titles are the entries of the selected buckets, bucket after bucket.
	Titles []string

	// Paths are the selected bucket paths.
	Paths []types.StructuralPath

	// Buckets holds every bucket of the page, for diagnostics and manual
	// path selection.
	Buckets *Buckets
}

// Extract parses an HTML document and returns its paper titles.
func Extract(r io.Reader, contentType string, opts Options) (Result, error) {
	buckets, err := Parse(r, contentType, opts.Attrs)
	if err != nil {
		return Result{}, err
	}
	return FromBuckets(buckets, opts), nil
}

// FromBuckets selects titles from already parsed buckets. Explicit paths that
// name no bucket contribute no titles.
func FromBuckets(b *Buckets, opts Options) Result {
	paths := opts.Paths
	if paths == nil {
		policy := DefaultPolicy()
		if opts.Policy != nil {
			policy = *opts.Policy
		}
		paths = policy.Select(b)
	}

	res := Result{Paths: paths, Buckets: b, Titles: []string{}}
	for _, p := range paths {
		if bk, ok := b.Get(p); ok {
			res.Titles = append(res.Titles, bk.Texts...)
		}
	}
	return res
}

// WriteReport writes every bucket with its numbered entries so a user can
// pick title paths by hand and add them to the manifest at manifestPath.
func WriteReport(w io.Writer, b *Buckets, manifestPath string) error {
	for _, bk := range b.All() {
		key, err := json.MarshalIndent(bk.Path, "", "    ")
		if err != nil {
			return fmt.Errorf("encoding path: %w", err)
		}
		fmt.Fprintln(w, "---")
		fmt.Fprintf(w, "If following strings are paper titles, add\n%s\nto selected_element_paths in %s\n\n", key, manifestPath)
		for i, t := range bk.Texts {
			fmt.Fprintf(w, "%d: %s\n", i+1, t)
		}
		if _, err := fmt.Fprintln(w, "---"); err != nil {
			return err
		}
	}
	return nil
}
