// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package titles

import (
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/paper-downloader/pkg/types"
)

// Policy decides whether a bucket holds paper titles. A bucket passes only
// when every threshold holds.
type Policy struct {
	// MinWords and MaxWords bound the mean number of words per entry.
	MinWords float64 `json:"min_words" yaml:"min_words"`
	MaxWords float64 `json:"max_words" yaml:"max_words"`

	// MinAlphaRatio is the floor for the mean share of [A-Za-z ] characters.
	MinAlphaRatio float64 `json:"min_alpha_ratio" yaml:"min_alpha_ratio"`

	// StopWords mark entries that are schedule items rather than titles.
	StopWords []string `json:"stop_words" yaml:"stop_words"`

	// MaxStopFraction is the largest share of entries allowed to contain a stop word.
	MaxStopFraction float64 `json:"max_stop_fraction" yaml:"max_stop_fraction"`

	// MinBucketSize is the smallest number of entries a title bucket may have.
	MinBucketSize int `json:"min_bucket_size" yaml:"min_bucket_size"`

	// CheckPunctuation enables the MaxPunctuation ceiling.
	CheckPunctuation bool `json:"check_punctuation" yaml:"check_punctuation"`

	// MaxPunctuation is the ceiling for the mean count of ()[];, per entry.
	MaxPunctuation float64 `json:"max_punctuation" yaml:"max_punctuation"`
}

// DefaultPolicy returns the thresholds used when none are configured.
func DefaultPolicy() Policy {
	return Policy{
		MinWords:         6,
		MaxWords:         30,
		MinAlphaRatio:    0.90,
		StopWords:        []string{"workshop", "tutorials", "session", "location"},
		MaxStopFraction:  0.10,
		MinBucketSize:    3,
		CheckPunctuation: true,
		MaxPunctuation:   3,
	}
}

// Stats summarizes one bucket for the policy.
type Stats struct {
	Size            int
	MeanWords       float64
	MeanAlphaRatio  float64
	StopFraction    float64
	MeanPunctuation float64
}

const punctuation = "()[];,"

// Evaluate computes the bucket statistics the policy thresholds apply to.
func (p Policy) Evaluate(texts []string) Stats {
	s := Stats{Size: len(texts)}
	if len(texts) == 0 {
		return s
	}

	var words, alpha, stops, punct float64
	for _, t := range texts {
		words += float64(len(strings.Fields(t)))

		var letters, marks int
		for _, r := range t {
			if r == ' ' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				letters++
			}
			if strings.ContainsRune(punctuation, r) {
				marks++
			}
		}
		alpha += float64(letters) / float64(max(1, utf8.RuneCountInString(t)))
		punct += float64(marks)

		lower := strings.ToLower(t)
		for _, kw := range p.StopWords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				stops++
				break
			}
		}
	}

	n := float64(len(texts))
	s.MeanWords = words / n
	s.MeanAlphaRatio = alpha / n
	s.StopFraction = stops / n
	s.MeanPunctuation = punct / n
	return s
}

// Passes reports whether the statistics satisfy every threshold.
func (p Policy) Passes(s Stats) bool {
	if s.Size == 0 || s.Size < p.MinBucketSize {
		return false
	}
	if s.MeanWords < p.MinWords || s.MeanWords > p.MaxWords {
		return false
	}
	if s.MeanAlphaRatio < p.MinAlphaRatio {
		return false
	}
	if s.StopFraction > p.MaxStopFraction {
		return false
	}
	if p.CheckPunctuation && s.MeanPunctuation > p.MaxPunctuation {
		return false
	}
	return true
}

// Accept reports whether texts look like a list of paper titles.
func (p Policy) Accept(texts []string) bool {
	return p.Passes(p.Evaluate(texts))
}

// Select returns the paths of every bucket the policy accepts, in bucket order.
func (p Policy) Select(b *Buckets) []types.StructuralPath {
	var paths []types.StructuralPath
	for _, bk := range b.All() {
		if p.Accept(bk.Texts) {
			paths = append(paths, bk.Path)
		}
	}
	return paths
}
