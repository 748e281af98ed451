package download

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"mangascout/internal/domain"
	"mangascout/internal/extract"
	"mangascout/internal/metrics"
	"mangascout/internal/sharedhttp"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const DefaultWorkers = 4

// Downloader saves chapter images with a bounded number of workers.
type Downloader struct {
	fetcher  sharedhttp.Fetcher
	workers  int
	headers  map[string]string
	progress func(domain.SavedFile)
	log      zerolog.Logger
}

type Option func(*Downloader)

func WithWorkers(n int) Option {
	return func(d *Downloader) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithProgress registers fn to be called once per finished image. Calls are
// serialized.
func WithProgress(fn func(domain.SavedFile)) Option {
	return func(d *Downloader) {
		d.progress = fn
	}
}

func New(f sharedhttp.Fetcher, log zerolog.Logger, opts ...Option) *Downloader {
	d := &Downloader{
		fetcher: f,
		workers: DefaultWorkers,
		log:     log,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// WithHeaders returns a copy of d that sends headers with every image request.
func (d *Downloader) WithHeaders(headers map[string]string) *Downloader {
	c := *d
	c.headers = headers
	return &c
}

// WithReferer returns a copy of d that sends the chapter page as Referer, which
// most image hosts require.
func (d *Downloader) WithReferer(pageURL string) *Downloader {
	return d.WithHeaders(map[string]string{"Referer": pageURL})
}

// Reporting returns a copy of d that calls fn instead of the progress
// function it was built with.
func (d *Downloader) Reporting(fn func(domain.SavedFile)) *Downloader {
	c := *d
	c.progress = fn
	return &c
}

// Chapter downloads images into destDir. The result has one entry per image in
// input order. Failures stay on their entry and never abort the others.
func (d *Downloader) Chapter(ctx context.Context, images []string, destDir string) []domain.SavedFile {
	out := make([]domain.SavedFile, len(images))
	for i, u := range images {
		out[i] = domain.SavedFile{Index: i + 1, SourceURL: u}
	}
	if len(images) == 0 {
		return out
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		err = errors.Wrapf(err, "could not create %s", destDir)
		for i := range out {
			out[i].Err = err
		}
		return out
	}

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		jobs       = make(chan int)
		dispatched = make([]bool, len(images))
	)

	workers := min(d.workers, len(images))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i] = d.single(ctx, out[i], destDir)
				if d.progress != nil {
					mu.Lock()
					d.progress(out[i])
					mu.Unlock()
				}
			}
		}()
	}

dispatch:
	for i := range images {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- i:
			dispatched[i] = true
		}
	}
	close(jobs)
	wg.Wait()

	for i := range out {
		if !dispatched[i] {
			out[i].Err = ctx.Err()
		}
	}

	return out
}

func (d *Downloader) single(ctx context.Context, f domain.SavedFile, destDir string) domain.SavedFile {
	resp, err := d.fetcher.FetchBytes(ctx, f.SourceURL, d.headers)
	if err != nil {
		d.log.Error().Err(err).Int("page", f.Index).Str("url", f.SourceURL).Msg("could not download page")
		metrics.ImagesDownloadedTotal.WithLabelValues("error").Inc()
		f.Err = err
		return f
	}

	filename := filepath.Join(destDir, fmt.Sprintf("%03d%s", f.Index, imageExtension(resp.Header.Get("Content-Type"), f.SourceURL)))
	if err := writeFile(filename, resp.Body); err != nil {
		d.log.Error().Err(err).Int("page", f.Index).Str("path", filename).Msg("could not save page")
		metrics.ImagesDownloadedTotal.WithLabelValues("error").Inc()
		f.Err = err
		return f
	}

	metrics.ImagesDownloadedTotal.WithLabelValues("ok").Inc()
	f.LocalPath = filename
	return f
}

func writeFile(filename string, data []byte) error {
	out, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "could not create file")
	}
	defer out.Close()

	writeBuf := bufio.NewWriter(out)
	if _, err := io.Copy(writeBuf, bytes.NewReader(data)); err != nil {
		return errors.Wrap(err, "could not write file")
	}
	return errors.Wrap(writeBuf.Flush(), "could not write file")
}

// imageExtension picks the extension from the content type, then from the URL,
// and settles on .jpg.
func imageExtension(contentType, rawURL string) string {
	mediaType, _, _ := strings.Cut(strings.ToLower(contentType), ";")

	switch strings.TrimSpace(mediaType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/avif":
		return ".avif"
	}

	if u, err := url.Parse(rawURL); err == nil && extract.HasImageExt(rawURL) {
		ext := strings.ToLower(path.Ext(u.Path))
		if ext == ".jpeg" {
			ext = ".jpg"
		}
		return ext
	}
	return ".jpg"
}
