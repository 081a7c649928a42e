package types

import "time"

// HTTPConfig holds shared HTTP settings used by every stage that touches
// the network.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// CookieFile is a Netscape/Mozilla cookies.txt file replayed on every
	// request. A missing or unreadable file yields an empty jar.
	CookieFile string `json:"cookie_file" yaml:"cookie_file"`
}

// ScholarConfig holds settings for the Google Scholar client.
type ScholarConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxResults is the number of results requested per query page (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// ClusterCacheSize bounds the number of cluster expansions kept in memory
	// for the lifetime of the process (default 256).
	ClusterCacheSize int `json:"cluster_cache_size" yaml:"cluster_cache_size"`
}

// MatchMode selects how the resolver picks the records whose clusters it expands.
type MatchMode string

const (
	// MatchTieBand keeps every record within Eps of the best score.
	MatchTieBand MatchMode = "tie-band"

	// MatchPerRecord keeps every record whose own score reaches MinScore.
	MatchPerRecord MatchMode = "per-record"
)

// ResolverConfig holds settings for title-to-candidate resolution.
type ResolverConfig struct {
	// Eps is the tie band around the best similarity score (default 1e-6).
	Eps float64 `json:"eps" yaml:"eps"`

	// Mode selects tie-band (default) or per-record selection.
	Mode MatchMode `json:"mode" yaml:"mode"`

	// MinScore is the per-record acceptance floor used by MatchPerRecord.
	MinScore float64 `json:"min_score" yaml:"min_score"`

	// IncludeWords also issues a bag-of-words query and unions its results.
	IncludeWords bool `json:"include_words" yaml:"include_words"`
}

// PipelineConfig holds settings for a full run over one conference.
type PipelineConfig struct {
	// URL is the conference page listing the papers. Required only when the
	// manifest has to be built.
	URL string `json:"url" yaml:"url"`

	// Paths are explicit structural paths that hold paper titles. When empty
	// the title extractor auto-selects buckets.
	Paths []StructuralPath `json:"paths" yaml:"paths"`

	// Attrs are attribute names included in each structural path step.
	Attrs []string `json:"attrs" yaml:"attrs"`

	// Conference names the artifact set. Empty means a throwaway run whose
	// artifacts live in TempDir.
	Conference string `json:"conference" yaml:"conference"`

	// Store keeps downloaded papers in PDFDir.
	Store bool `json:"store" yaml:"store"`

	// MergePages are 1-indexed page numbers to splice from every paper.
	// A non-nil slice requests a merge.
	MergePages []int `json:"merge_pages" yaml:"merge_pages"`

	// MergeFile is the merged output filename inside PDFDir.
	MergeFile string `json:"merge_file" yaml:"merge_file"`

	// Delay is the pause between consecutive resolver queries.
	Delay time.Duration `json:"delay" yaml:"delay"`

	// PDFDir stores downloaded and merged PDFs.
	PDFDir string `json:"pdf_dir" yaml:"pdf_dir"`

	// URLDir stores manifests, paper lists and link lists.
	URLDir string `json:"url_dir" yaml:"url_dir"`

	// TempDir holds scratch artifacts and is removed at the end of a run.
	TempDir string `json:"temp_dir" yaml:"temp_dir"`

	// Debug writes the bucket report to DebugFile when the manifest is built.
	Debug bool `json:"debug" yaml:"debug"`

	// DebugFile is the bucket report path.
	DebugFile string `json:"debug_file" yaml:"debug_file"`

	// FixLinks re-resolves papers whose stored link list is empty.
	FixLinks bool `json:"fix_links" yaml:"fix_links"`

	// CacheDB is an optional SQLite database of resolved links shared across
	// conferences. Empty disables the cache.
	CacheDB string `json:"cache_db" yaml:"cache_db"`
}

// MergeRequested reports whether a merge stage was asked for.
func (c PipelineConfig) MergeRequested() bool {
	return c.MergePages != nil
}
