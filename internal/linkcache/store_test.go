// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package linkcache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-downloader/pkg/types"
)

func openStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache", "links.db")
	s, err := NewStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestStoreGetMissing(t *testing.T) {
	s, _ := openStore(t)
	links, ok, err := s.Get(context.Background(), "Unknown Paper")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, links)
}

func TestStorePutGet(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()

	want := []types.Candidate{
		{Title: "Attention Is All You Need", PDFURL: types.StringPtr("https://arxiv.org/pdf/1706.03762")},
		{Title: "Attention is all you need", PDFURL: nil},
	}
	require.NoError(t, s.Put(ctx, "Attention Is All You Need", want))

	got, ok, err := s.Get(ctx, "Attention Is All You Need")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	// Titles match exactly, including case.
	_, ok, err = s.Get(ctx, "attention is all you need")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStorePutReplacesAndKeepsEmpty(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "P", nil))
	got, ok, err := s.Get(ctx, "P")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []types.Candidate{}, got)

	require.NoError(t, s.Put(ctx, "P", []types.Candidate{{Title: "P", PDFURL: types.StringPtr("https://x/p.pdf")}}))
	got, _, err = s.Get(ctx, "P")
	require.NoError(t, err)
	require.Len(t, got, 1)

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStorePersistsAcrossOpens(t *testing.T) {
	s, path := openStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "Kept", []types.Candidate{{Title: "Kept", PDFURL: types.StringPtr("https://k/p.pdf")}}))
	require.NoError(t, s.Close())

	again, err := NewStore(path)
	require.NoError(t, err)
	defer again.Close()

	got, ok, err := again.Get(ctx, "Kept")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "https://k/p.pdf", *got[0].PDFURL)
}
