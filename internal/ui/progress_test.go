package ui

import (
	"bytes"
	"testing"

	"mangascout/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgress(t *testing.T) {
	var out bytes.Buffer
	p := NewProgress(&out)

	p.Chapter("https://readmanga.live/berserk/vol1/1", "Глава 1")

	fn := p.Track("https://readmanga.live/berserk/vol1/1", 2)
	require.NotNil(t, fn)
	fn(domain.SavedFile{Index: 1, LocalPath: "/tmp/001.jpg"})
	fn(domain.SavedFile{Index: 2, Err: domain.ErrHTTPStatus})

	cb := p.bars["https://readmanga.live/berserk/vol1/1"]
	assert.Equal(t, int64(1), cb.failed.Load())
	assert.Equal(t, int64(2), cb.bar.Current())

	p.Done("https://readmanga.live/berserk/vol1/1")
	p.Wait()
	assert.True(t, cb.bar.Completed())
}

func TestProgress_ChapterRegisteredOnce(t *testing.T) {
	p := NewProgress(&bytes.Buffer{})

	p.Chapter("https://readmanga.live/berserk/vol1/1", "Глава 1")
	first := p.bars["https://readmanga.live/berserk/vol1/1"]
	p.Chapter("https://readmanga.live/berserk/vol1/1", "Глава 1")

	assert.Same(t, first, p.bars["https://readmanga.live/berserk/vol1/1"])
	assert.Len(t, p.bars, 1)

	p.Done("https://readmanga.live/berserk/vol1/1")
	p.Wait()
}

func TestProgress_UnknownChapter(t *testing.T) {
	p := NewProgress(&bytes.Buffer{})

	assert.Nil(t, p.Track("https://readmanga.live/unknown", 3))
	p.Done("https://readmanga.live/unknown")
	p.Wait()
}
