// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package titles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var goodTitles = []string{
	"Scaling Laws for Sparse Mixture of Experts Models",
	"Provably Efficient Exploration in Linear Markov Decision Processes",
	"Learning Robust Representations from Noisy Web Scale Data",
}

func TestPolicyEvaluate(t *testing.T) {
	p := DefaultPolicy()
	s := p.Evaluate([]string{"one two three", "a (b) [c];", "Workshop on graphs"})

	assert.Equal(t, 3, s.Size)
	assert.InDelta(t, 3.0, s.MeanWords, 1e-9)
	assert.InDelta(t, 5.0/3.0, s.MeanPunctuation, 1e-9)
	assert.InDelta(t, 1.0/3.0, s.StopFraction, 1e-9)
	// "a (b) [c];" has 10 characters, 5 of them letters or spaces.
	assert.InDelta(t, (1.0+0.5+1.0)/3.0, s.MeanAlphaRatio, 1e-9)
}

func TestPolicyEvaluateEmpty(t *testing.T) {
	p := DefaultPolicy()
	s := p.Evaluate(nil)
	assert.Equal(t, Stats{}, s)
	assert.False(t, p.Passes(s))
}

func TestPolicyAccept(t *testing.T) {
	tests := []struct {
		name   string
		policy func() Policy
		texts  []string
		want   bool
	}{
		{
			name:   "real titles pass",
			policy: DefaultPolicy,
			texts:  goodTitles,
			want:   true,
		},
		{
			name:   "mean word count three is rejected",
			policy: DefaultPolicy,
			texts:  []string{"Graph Neural Nets", "Sparse Attention Rules", "Robust Policy Search"},
			want:   false,
		},
		{
			name: "mean word count three passes when the floor is three",
			policy: func() Policy {
				p := DefaultPolicy()
				p.MinWords = 3
				return p
			},
			texts: []string{"Graph Neural Nets", "Sparse Attention Rules", "Robust Policy Search"},
			want:  true,
		},
		{
			name:   "too few entries",
			policy: DefaultPolicy,
			texts:  goodTitles[:2],
			want:   false,
		},
		{
			name:   "too many words",
			policy: DefaultPolicy,
			texts: []string{
				"one two three four five six seven eight nine ten eleven twelve thirteen fourteen fifteen sixteen seventeen eighteen nineteen twenty twentyone twentytwo twentythree twentyfour twentyfive twentysix twentyseven twentyeight twentynine thirty thirtyone",
				"one two three four five six seven eight nine ten eleven twelve thirteen fourteen fifteen sixteen seventeen eighteen nineteen twenty twentyone twentytwo twentythree twentyfour twentyfive twentysix twentyseven twentyeight twentynine thirty thirtyone",
				"one two three four five six seven eight nine ten eleven twelve thirteen fourteen fifteen sixteen seventeen eighteen nineteen twenty twentyone twentytwo twentythree twentyfour twentyfive twentysix twentyseven twentyeight twentynine thirty thirtyone",
			},
			want: false,
		},
		{
			name:   "mostly digits",
			policy: DefaultPolicy,
			texts:  []string{"09:00 10:30 12:00 13:30 15:00 16:30", "09:00 10:30 12:00 13:30 15:00 16:30", "09:00 10:30 12:00 13:30 15:00 16:30"},
			want:   false,
		},
		{
			name:   "schedule entries with stop words",
			policy: DefaultPolicy,
			texts: append([]string{
				"Poster Session on Reinforcement Learning and Control",
			}, goodTitles...),
			want: false,
		},
		{
			name:   "punctuation heavy author lists",
			policy: DefaultPolicy,
			texts: []string{
				"Smith, Jones, Brown, Lee (MIT), Kim (CMU) and Park",
				"Smith, Jones, Brown, Lee (MIT), Kim (CMU) and Park",
				"Smith, Jones, Brown, Lee (MIT), Kim (CMU) and Park",
			},
			want: false,
		},
		{
			name: "punctuation check disabled",
			policy: func() Policy {
				p := DefaultPolicy()
				p.CheckPunctuation = false
				p.MinAlphaRatio = 0.8
				return p
			},
			texts: []string{
				"Smith, Jones, Brown, Lee (MIT), Kim (CMU) and Park",
				"Smith, Jones, Brown, Lee (MIT), Kim (CMU) and Park",
				"Smith, Jones, Brown, Lee (MIT), Kim (CMU) and Park",
			},
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy().Accept(tt.texts))
		})
	}
}

func TestPolicyBoundaries(t *testing.T) {
	six := []string{"a b c d e f", "a b c d e f", "a b c d e f"}
	p := DefaultPolicy()
	assert.True(t, p.Accept(six), "mean of exactly MinWords passes")

	p.MinBucketSize = 4
	assert.False(t, p.Accept(six))

	p = DefaultPolicy()
	p.MaxStopFraction = 0
	withStop := append([]string{"a b c d e session"}, six...)
	assert.False(t, p.Accept(withStop))
	p.MaxStopFraction = 0.25
	assert.True(t, p.Accept(withStop))
}

func TestPolicySelectKeepsBucketOrder(t *testing.T) {
	b := newBuckets()
	first := path("html", "body", "ul", "li")
	second := path("html", "body", "table", "td")
	noise := path("html", "body", "p")
	for _, title := range goodTitles {
		b.add(first, title)
	}
	b.add(noise, "Copyright 2026")
	for _, title := range goodTitles {
		b.add(second, title)
	}

	got := DefaultPolicy().Select(b)
	require.Len(t, got, 2)
	assert.Equal(t, first.Key(), got[0].Key())
	assert.Equal(t, second.Key(), got[1].Key())
}
