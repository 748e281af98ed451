package store

import (
	"context"
	"path/filepath"
	"testing"

	"mangascout/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "data", "mangascout.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestEnsureTitle_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	id, err := s.EnsureTitle(ctx, "Берсерк", "https://readmanga.test/berserk")
	require.NoError(t, err)

	again, err := s.EnsureTitle(ctx, "Berserk", "https://readmanga.test/berserk")
	require.NoError(t, err)
	assert.Equal(t, id, again)

	other, err := s.EnsureTitle(ctx, "Ванпанчмен", "https://readmanga.test/one_punch_man")
	require.NoError(t, err)
	assert.NotEqual(t, id, other)
}

func TestChapterLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	titleID, err := s.EnsureTitle(ctx, "Берсерк", "https://readmanga.test/berserk")
	require.NoError(t, err)

	chapterURL := "https://readmanga.test/berserk/vol1/1"
	chapterID, err := s.EnsureChapter(ctx, titleID, "Том 1 Глава 1", chapterURL)
	require.NoError(t, err)

	again, err := s.EnsureChapter(ctx, titleID, "Том 1 Глава 1", chapterURL)
	require.NoError(t, err)
	assert.Equal(t, chapterID, again)

	saved, err := s.ChapterSaved(ctx, chapterURL)
	require.NoError(t, err)
	assert.False(t, saved)

	require.NoError(t, s.RecordPage(ctx, chapterID, 2, "https://img.test/2.jpg", "/tmp/002.jpg"))
	require.NoError(t, s.RecordPage(ctx, chapterID, 1, "https://img.test/1.jpg", "/tmp/old.jpg"))
	require.NoError(t, s.RecordPage(ctx, chapterID, 1, "https://img.test/1.jpg", "/tmp/001.jpg"))
	require.NoError(t, s.MarkChapterSaved(ctx, chapterID))

	saved, err = s.ChapterSaved(ctx, chapterURL)
	require.NoError(t, err)
	assert.True(t, saved)

	pages, err := s.Pages(ctx, chapterID)
	require.NoError(t, err)
	assert.Equal(t, []Page{
		{Index: 1, URL: "https://img.test/1.jpg", LocalPath: "/tmp/001.jpg"},
		{Index: 2, URL: "https://img.test/2.jpg", LocalPath: "/tmp/002.jpg"},
	}, pages)
}

func TestMarkChapterSaved_Unknown(t *testing.T) {
	s := openStore(t)

	err := s.MarkChapterSaved(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChapterSaved_Unknown(t *testing.T) {
	s := openStore(t)

	saved, err := s.ChapterSaved(context.Background(), "https://nowhere.test/1")
	require.NoError(t, err)
	assert.False(t, saved)
}
