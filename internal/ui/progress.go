// Package ui draws terminal progress for chapter downloads.
package ui

import (
	"io"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"mangascout/internal/domain"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// Progress shows one bar per chapter.
type Progress struct {
	p *mpb.Progress

	mu   sync.Mutex
	bars map[string]*chapterBar
}

type chapterBar struct {
	bar    *mpb.Bar
	failed atomic.Int64
}

func NewProgress(out io.Writer) *Progress {
	return &Progress{
		p: mpb.New(
			mpb.WithWidth(52),
			mpb.WithOutput(out),
			mpb.WithRefreshRate(120*time.Millisecond),
		),
		bars: make(map[string]*chapterBar),
	}
}

// Chapter registers a bar for chapterURL labelled with name.
func (pr *Progress) Chapter(chapterURL, name string) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	if _, ok := pr.bars[chapterURL]; ok {
		return
	}

	cb := &chapterBar{}
	cb.bar = pr.p.New(
		0,
		mpb.BarStyle().Rbound("]"),
		mpb.PrependDecorators(
			decor.Name(name+"  "),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WCSyncWidth),
			decor.CountersNoUnit(" | %d/%d pages", decor.WCSyncWidth),
			decor.Any(func(_ decor.Statistics) string {
				if n := cb.failed.Load(); n > 0 {
					return " | failed: " + strconv.FormatInt(n, 10)
				}
				return ""
			}),
		),
	)
	pr.bars[chapterURL] = cb
}

// Track has the signature of engine.ProgressFunc. It sets the bar total and
// returns the per-image callback.
func (pr *Progress) Track(chapterURL string, total int) func(domain.SavedFile) {
	pr.mu.Lock()
	cb, ok := pr.bars[chapterURL]
	pr.mu.Unlock()
	if !ok {
		return nil
	}

	cb.bar.SetTotal(int64(total), false)
	return func(f domain.SavedFile) {
		if !f.OK() {
			cb.failed.Add(1)
		}
		cb.bar.Increment()
	}
}

// Done completes the bar for chapterURL, also when it stopped early.
func (pr *Progress) Done(chapterURL string) {
	pr.mu.Lock()
	cb, ok := pr.bars[chapterURL]
	pr.mu.Unlock()
	if !ok {
		return
	}
	cb.bar.SetTotal(-1, true)
}

// Wait blocks until every bar is rendered for the last time.
func (pr *Progress) Wait() {
	pr.p.Wait()
}
