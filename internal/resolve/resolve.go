// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolve turns a paper title into candidate PDF links by ranking
// search-index records against the title and expanding the clusters of the
// best matches.
package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/antzucaro/matchr"

	"github.com/pdiddy/paper-downloader/pkg/types"
)

// DefaultEps is the tie band used when the configuration leaves it unset.
const DefaultEps = 1e-6

// Index is the search capability the resolver depends on.
type Index interface {
	// SearchPhrase returns records matching phrase exactly.
	SearchPhrase(ctx context.Context, phrase string) ([]types.ScholarRecord, error)

	// SearchWords returns records matching the words of query in any order.
	SearchWords(ctx context.Context, query string) ([]types.ScholarRecord, error)

	// Cluster returns every record grouped under clusterID.
	Cluster(ctx context.Context, clusterID string) ([]types.ScholarRecord, error)
}

// Resolver maps titles to candidate links.
type Resolver struct {
	Index  Index
	Config types.ResolverConfig
	Logger *slog.Logger
}

// New returns a Resolver backed by idx.
func New(idx Index, cfg types.ResolverConfig, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{Index: idx, Config: cfg, Logger: logger}
}

// Similarity is the longest-common-subsequence length of the case-folded
// strings divided by the longer rune length. It is symmetric, lies in [0,1],
// and is 1 exactly when the strings are equal after case folding.
func Similarity(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	n := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if n == 0 {
		return 1
	}
	return float64(matchr.LongestCommonSubsequence(a, b)) / float64(n)
}

// scored is a usable record with its similarity to the query.
type scored struct {
	title     string
	pdfURL    *string
	clusterID string
	score     float64
}

// Resolve returns the candidates for title: direct matches with a PDF link
// in score order, then the linked records of each selected cluster. No usable
// record yields an empty slice. An error from the primary search is returned;
// a failed cluster query is logged and skipped.
func (r *Resolver) Resolve(ctx context.Context, title string) ([]types.Candidate, error) {
	records, err := r.Index.SearchPhrase(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", title, err)
	}
	if r.Config.IncludeWords {
		more, err := r.Index.SearchWords(ctx, title)
		if err != nil {
			return nil, fmt.Errorf("searching words of %q: %w", title, err)
		}
		records = append(records, more...)
	}

	ranked := rank(title, records)
	selected := r.selectRecords(ranked)
	r.Logger.Debug("resolved records", "title", title, "usable", len(ranked), "selected", len(selected))

	candidates := []types.Candidate{}
	for _, s := range selected {
		if s.pdfURL != nil {
			candidates = append(candidates, types.Candidate{Title: s.title, PDFURL: s.pdfURL})
		}
	}

	expanded := make(map[string]bool)
	for _, s := range selected {
		if expanded[s.clusterID] {
			continue
		}
		expanded[s.clusterID] = true

		members, err := r.Index.Cluster(ctx, s.clusterID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.Logger.Warn("cluster query failed", "title", title, "cluster", s.clusterID, "error", err)
			continue
		}
		for _, m := range members {
			if m.Title == nil || m.PDFURL == nil {
				continue
			}
			candidates = append(candidates, types.Candidate{Title: *m.Title, PDFURL: m.PDFURL})
		}
	}
	return candidates, nil
}

// rank drops records without a title or cluster id and sorts the rest by
// similarity to query, best first. Equal scores keep index order.
func rank(query string, records []types.ScholarRecord) []scored {
	var out []scored
	for _, rec := range records {
		if rec.Title == nil || rec.ClusterID == nil {
			continue
		}
		out = append(out, scored{
			title:     *rec.Title,
			pdfURL:    rec.PDFURL,
			clusterID: *rec.ClusterID,
			score:     Similarity(query, *rec.Title),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].score > out[j].score
	})
	return out
}

// selectRecords keeps the ranked records the configured mode accepts.
func (r *Resolver) selectRecords(ranked []scored) []scored {
	if len(ranked) == 0 {
		return nil
	}
	if r.Config.Mode == types.MatchPerRecord {
		var out []scored
		for _, s := range ranked {
			if s.score >= r.Config.MinScore {
				out = append(out, s)
			}
		}
		return out
	}

	eps := r.Config.Eps
	if eps <= 0 {
		eps = DefaultEps
	}
	best := ranked[0].score
	var out []scored
	for _, s := range ranked {
		if best-s.score > eps {
			break
		}
		out = append(out, s)
	}
	return out
}
