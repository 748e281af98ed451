package files

import (
	"archive/zip"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mangascout/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeImage(t *testing.T, dir string, index, width, height int, asJPEG bool) domain.SavedFile {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		img.Set(x, x%height, color.RGBA{R: 200, A: 255})
	}

	ext := ".png"
	if asJPEG {
		ext = ".jpg"
	}
	path := filepath.Join(dir, fmt.Sprintf("%03d%s", index, ext))

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	if asJPEG {
		require.NoError(t, jpeg.Encode(f, img, nil))
	} else {
		require.NoError(t, png.Encode(f, img))
	}

	return domain.SavedFile{Index: index, SourceURL: fmt.Sprintf("https://img.test/%d", index), LocalPath: path}
}

func chapterPages(t *testing.T) []domain.SavedFile {
	dir := t.TempDir()
	return []domain.SavedFile{
		writeImage(t, dir, 2, 100, 160, false),
		writeImage(t, dir, 1, 100, 150, false),
		{Index: 3, SourceURL: "https://img.test/3", Err: errors.New("500")},
		writeImage(t, dir, 4, 600, 80, false),
		writeImage(t, dir, 5, 104, 150, true),
	}
}

func zipNames(t *testing.T, path string) []string {
	t.Helper()

	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	return names
}

func TestCreateCbzArchive(t *testing.T) {
	pages := chapterPages(t)
	out := filepath.Join(t.TempDir(), "series", "chapter.cbz")

	require.NoError(t, CreateCbzArchive(pages, out, false))
	assert.Equal(t, []string{"001.png", "002.png", "004.png", "005.jpg"}, zipNames(t, out))
}

func TestCreateCbzArchive_DropOutliers(t *testing.T) {
	pages := chapterPages(t)
	out := filepath.Join(t.TempDir(), "chapter.cbz")

	require.NoError(t, CreateCbzArchive(pages, out, true))
	assert.Equal(t, []string{"001.png", "002.png", "005.jpg"}, zipNames(t, out))
}

func TestCreateCbzArchive_NothingSaved(t *testing.T) {
	err := CreateCbzArchive([]domain.SavedFile{{Index: 1, Err: errors.New("x")}}, filepath.Join(t.TempDir(), "a.cbz"), false)
	assert.Error(t, err)
}

func TestCreatePDF(t *testing.T) {
	pages := chapterPages(t)
	out := filepath.Join(t.TempDir(), "pdf", "chapter.pdf")

	require.NoError(t, CreatePDF(pages, out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestManifest(t *testing.T) {
	dir := t.TempDir()
	pages := []domain.SavedFile{
		{Index: 1, SourceURL: "https://img.test/1.jpg", LocalPath: filepath.Join(dir, "001.jpg")},
		{Index: 2, SourceURL: "https://img.test/2.jpg", Err: errors.New("http status 500")},
	}

	path, err := WriteManifest(dir, Manifest{
		Source:     "readmanga",
		Title:      "Берсерк",
		Chapter:    "Том 1 Глава 1",
		ChapterURL: "https://readmanga.test/berserk/vol1/1",
		Pages:      pages,
		CreatedAt:  time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ManifestName), path)

	s, err := ReadManifest(path)
	require.NoError(t, err)

	m := s.AsMap()
	assert.Equal(t, "Берсерк", m["title"])
	assert.Equal(t, "2024-05-01T10:00:00Z", m["createdAt"])
	assert.Equal(t, float64(1), m["saved"])
	assert.Equal(t, float64(1), m["failed"])

	entries := m["pages"].([]any)
	require.Len(t, entries, 2)
	assert.Equal(t, "001.jpg", entries[0].(map[string]any)["file"])
	assert.Equal(t, "http status 500", entries[1].(map[string]any)["error"])
}

func TestComplete(t *testing.T) {
	dir := t.TempDir()

	complete, err := Complete(dir)
	require.NoError(t, err)
	assert.False(t, complete, "no manifest yet")

	ok := domain.SavedFile{Index: 1, SourceURL: "https://img.test/1.jpg", LocalPath: filepath.Join(dir, "001.jpg")}
	failed := domain.SavedFile{Index: 2, SourceURL: "https://img.test/2.jpg", Err: errors.New("http status 502")}

	_, err = WriteManifest(dir, Manifest{Pages: []domain.SavedFile{ok, failed}})
	require.NoError(t, err)

	complete, err = Complete(dir)
	require.NoError(t, err)
	assert.False(t, complete, "one page failed")

	ok2 := domain.SavedFile{Index: 2, SourceURL: "https://img.test/2.jpg", LocalPath: filepath.Join(dir, "002.jpg")}
	_, err = WriteManifest(dir, Manifest{Pages: []domain.SavedFile{ok, ok2}})
	require.NoError(t, err)

	complete, err = Complete(dir)
	require.NoError(t, err)
	assert.True(t, complete)
}

func TestComplete_Corrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestName), []byte("{not json"), 0o644))

	complete, err := Complete(dir)
	assert.Error(t, err)
	assert.False(t, complete)
}
