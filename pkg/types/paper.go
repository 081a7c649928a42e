// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ScholarRecord is one result row returned by the scholarly search index.
// A nil field was absent from the index response; that is distinct from an
// empty string.
type ScholarRecord struct {
	// Title is the record title as shown by the index.
	Title *string `json:"title" yaml:"title"`

	// PDFURL is the direct full-text link, when the index offers one.
	PDFURL *string `json:"pdf_url" yaml:"pdf_url"`

	// ClusterID groups records the index believes describe the same work.
	ClusterID *string `json:"cluster_id" yaml:"cluster_id"`
}

// Candidate is a possible source for a paper.
type Candidate struct {
	// Title is the title as returned by the search index, which may differ
	// from the conference title.
	Title string `json:"title" yaml:"title"`

	// PDFURL is the download link. nil means no known source.
	PDFURL *string `json:"pdf_url" yaml:"pdf_url"`
}

// PaperLinks holds the candidate sources resolved for one paper. Papers are
// identified by exact title text.
type PaperLinks struct {
	Title string      `json:"title" yaml:"title"`
	Links []Candidate `json:"links" yaml:"links"`
}

// Manifest records which structural paths hold the paper titles of a
// conference page, so the page can be re-scraped deterministically.
type Manifest struct {
	// Name is the conference identifier.
	Name string `json:"name" yaml:"name"`

	// SourceURL is the conference page that lists the papers.
	SourceURL string `json:"source_url" yaml:"source_url"`

	// SelectedPaths are the structural paths accepted as title sources.
	SelectedPaths []StructuralPath `json:"selected_element_paths" yaml:"selected_element_paths"`

	// PathAttributes are the attribute names that were part of each path step.
	PathAttributes []string `json:"path_attributes" yaml:"path_attributes"`
}

// StringPtr returns a pointer to a copy of s.
func StringPtr(s string) *string {
	return &s
}
