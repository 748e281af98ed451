// Package engine is the caller-facing entry point: it resolves sources, runs
// searches and extraction, and saves chapters to disk.
package engine

import (
	"context"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"time"

	"mangascout/internal/aggregate"
	"mangascout/internal/domain"
	"mangascout/internal/download"
	"mangascout/internal/files"
	"mangascout/internal/metrics"
	"mangascout/internal/registry"
	"mangascout/internal/sanitize"
	"mangascout/internal/templater"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// AllSources selects every enabled source in Search.
const AllSources = "all"

const (
	ArchiveNone = "none"
	ArchiveCBZ  = "cbz"
	ArchivePDF  = "pdf"
)

// ProgressFunc is called once a chapter's images are known. The returned
// function, if not nil, receives every finished image of that chapter.
type ProgressFunc func(chapterURL string, total int) func(domain.SavedFile)

type Options struct {
	SearchPages    int
	NamingTemplate string
	ArchiveFormat  string
	Progress       ProgressFunc
}

// Report summarizes one chapter download.
type Report struct {
	ChapterURL  string
	Dir         string
	Files       []domain.SavedFile
	Saved       int
	Failed      int
	ArchivePath string
}

type Engine struct {
	registry   *registry.Registry
	aggregator *aggregate.Aggregator
	downloader *download.Downloader
	store      domain.Store
	opts       Options
	log        zerolog.Logger
}

// New wires an engine. store may be nil, in which case nothing is recorded.
func New(reg *registry.Registry, dl *download.Downloader, store domain.Store, log zerolog.Logger, opts Options) *Engine {
	if opts.SearchPages <= 0 {
		opts.SearchPages = 1
	}
	if opts.ArchiveFormat == "" {
		opts.ArchiveFormat = ArchiveNone
	}

	return &Engine{
		registry:   reg,
		aggregator: aggregate.New(log),
		downloader: dl,
		store:      store,
		opts:       opts,
		log:        log,
	}
}

func (e *Engine) Sources() []string {
	return e.registry.Names()
}

// Search asks one source, or every source when source is AllSources or empty.
// Per-source failures come back next to the merged results.
func (e *Engine) Search(ctx context.Context, query, source string) ([]domain.Result, []aggregate.SourceError, error) {
	var (
		adapters []domain.Adapter
		openErrs []aggregate.SourceError
	)
	if source == "" || source == AllSources {
		var failed map[string]error
		adapters, failed = e.registry.OpenAll()
		for _, name := range slices.Sorted(maps.Keys(failed)) {
			openErrs = append(openErrs, aggregate.SourceError{Source: name, Err: failed[name]})
		}
	} else {
		a, err := e.registry.Open(source)
		if err != nil {
			return nil, nil, err
		}
		adapters = []domain.Adapter{a}
	}
	defer closeAll(e.log, adapters)

	if len(adapters) == 0 {
		if len(openErrs) > 0 {
			return nil, openErrs, nil
		}
		return nil, nil, domain.NewError(domain.KindInvalidConfig, "search", "", fmt.Errorf("no sources enabled"))
	}

	results, errs := e.aggregator.SearchAll(ctx, query, adapters, domain.SearchOptions{MaxPages: e.opts.SearchPages})
	return results, append(openErrs, errs...), nil
}

// open finds the source for rawURL by host.
func (e *Engine) open(op, rawURL string) (domain.Adapter, error) {
	name, ok := e.registry.ForURL(rawURL)
	if !ok {
		return nil, domain.NewError(domain.KindInvalidConfig, op, rawURL, fmt.Errorf("no source serves this host"))
	}
	return e.registry.Open(name)
}

func (e *Engine) GetDetails(ctx context.Context, titleURL string) (domain.Title, error) {
	a, err := e.open("fetch details", titleURL)
	if err != nil {
		return domain.Title{}, err
	}
	defer closeAll(e.log, []domain.Adapter{a})

	return a.FetchDetails(ctx, titleURL)
}

func (e *Engine) GetChapterImages(ctx context.Context, chapterURL string) ([]string, error) {
	a, err := e.open("fetch chapter images", chapterURL)
	if err != nil {
		return nil, err
	}
	defer closeAll(e.log, []domain.Adapter{a})

	images, err := a.FetchChapterImages(ctx, chapterURL)
	metrics.ExtractionsTotal.WithLabelValues(a.Name(), metrics.Outcome(err)).Inc()
	return images, err
}

// DownloadChapter extracts the chapter images and saves them into destDir.
// Failed pages are listed in the report, they do not fail the call.
func (e *Engine) DownloadChapter(ctx context.Context, chapterURL, destDir string) (Report, error) {
	images, err := e.GetChapterImages(ctx, chapterURL)
	if err != nil {
		return Report{ChapterURL: chapterURL, Dir: destDir}, err
	}

	dl := e.downloader.WithReferer(chapterURL)
	if e.opts.Progress != nil {
		if fn := e.opts.Progress(chapterURL, len(images)); fn != nil {
			dl = dl.Reporting(fn)
		}
	}
	out := dl.Chapter(ctx, images, destDir)

	r := Report{ChapterURL: chapterURL, Dir: destDir, Files: out}
	for _, f := range out {
		if f.OK() {
			r.Saved++
		} else {
			r.Failed++
		}
	}

	e.log.Info().Str("chapter", chapterURL).Int("saved", r.Saved).Int("failed", r.Failed).Msg("chapter downloaded")
	return r, nil
}

// ChapterDir is the folder a chapter of title is saved to below root.
func (e *Engine) ChapterDir(root string, title domain.Title, chapter domain.ChapterRef) string {
	name := templater.New(title, chapter).ExecTemplate(e.opts.NamingTemplate)
	return filepath.Join(root, sanitize.Filename(title.Title), name)
}

// SaveChapter downloads a chapter of title below root and writes its manifest.
// Only a chapter without failed pages is packed in the configured archive
// format and marked saved in the store.
func (e *Engine) SaveChapter(ctx context.Context, title domain.Title, chapter domain.ChapterRef, root string) (Report, error) {
	dir := e.ChapterDir(root, title, chapter)

	r, err := e.DownloadChapter(ctx, chapter.URL, dir)
	if err != nil {
		return r, err
	}

	if _, err := files.WriteManifest(dir, files.Manifest{
		Source:     title.Source,
		Title:      title.Title,
		Chapter:    chapter.Title,
		ChapterURL: chapter.URL,
		Pages:      r.Files,
		CreatedAt:  time.Now(),
	}); err != nil {
		return r, err
	}

	if r.Failed == 0 && r.Saved > 0 {
		switch e.opts.ArchiveFormat {
		case ArchiveCBZ:
			r.ArchivePath = dir + ".cbz"
			err = files.CreateCbzArchive(r.Files, r.ArchivePath, false)
		case ArchivePDF:
			r.ArchivePath = dir + ".pdf"
			err = files.CreatePDF(r.Files, r.ArchivePath)
		}
		if err != nil {
			return r, errors.Wrapf(err, "could not pack %s", chapter.URL)
		}
	}

	if err := e.record(ctx, title, chapter, r); err != nil {
		return r, err
	}
	return r, nil
}

func (e *Engine) record(ctx context.Context, title domain.Title, chapter domain.ChapterRef, r Report) error {
	if e.store == nil {
		return nil
	}

	titleID, err := e.store.EnsureTitle(ctx, title.Title, title.URL)
	if err != nil {
		return err
	}
	chapterID, err := e.store.EnsureChapter(ctx, titleID, chapter.Title, chapter.URL)
	if err != nil {
		return err
	}

	for _, f := range r.Files {
		if !f.OK() {
			continue
		}
		if err := e.store.RecordPage(ctx, chapterID, f.Index, f.SourceURL, f.LocalPath); err != nil {
			return err
		}
	}

	if r.Failed > 0 {
		e.log.Warn().Str("chapter", chapter.URL).Int("failed", r.Failed).Msg("chapter incomplete, not marking as saved")
		return nil
	}
	return e.store.MarkChapterSaved(ctx, chapterID)
}

func closeAll(log zerolog.Logger, adapters []domain.Adapter) {
	for _, a := range adapters {
		if err := a.Close(); err != nil {
			log.Debug().Err(err).Str("source", a.Name()).Msg("could not close source")
		}
	}
}
