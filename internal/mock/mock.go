// Package mock provides function-field stand-ins for the engine's interfaces.
package mock

import (
	"context"
	"net/url"

	"mangascout/internal/domain"
	"mangascout/internal/sharedhttp"
)

var _ sharedhttp.Fetcher = (*Fetcher)(nil)

type Fetcher struct {
	FetchFn      func(ctx context.Context, rawURL string, headers map[string]string, params url.Values) (*sharedhttp.Response, error)
	FetchBytesFn func(ctx context.Context, rawURL string, headers map[string]string) (*sharedhttp.Response, error)
	PostFormFn   func(ctx context.Context, rawURL string, headers map[string]string, form url.Values) (*sharedhttp.Response, error)
	CloseFn      func() error
}

func (f *Fetcher) Fetch(ctx context.Context, rawURL string, headers map[string]string, params url.Values) (*sharedhttp.Response, error) {
	return f.FetchFn(ctx, rawURL, headers, params)
}

func (f *Fetcher) FetchBytes(ctx context.Context, rawURL string, headers map[string]string) (*sharedhttp.Response, error) {
	return f.FetchBytesFn(ctx, rawURL, headers)
}

func (f *Fetcher) PostForm(ctx context.Context, rawURL string, headers map[string]string, form url.Values) (*sharedhttp.Response, error) {
	return f.PostFormFn(ctx, rawURL, headers, form)
}

func (f *Fetcher) Close() error {
	if f.CloseFn == nil {
		return nil
	}
	return f.CloseFn()
}

// Pages answers Fetch with the body registered for the URL, params included.
// Unknown URLs get domain.ErrNotFound.
func Pages(pages map[string]string) *Fetcher {
	return &Fetcher{
		FetchFn: func(_ context.Context, rawURL string, _ map[string]string, params url.Values) (*sharedhttp.Response, error) {
			key := rawURL
			if len(params) > 0 {
				key += "?" + params.Encode()
			}
			body, ok := pages[key]
			if !ok {
				return nil, domain.NewError(domain.KindNotFound, "fetch", key, nil)
			}
			return &sharedhttp.Response{StatusCode: 200, Body: []byte(body), FinalURL: rawURL}, nil
		},
	}
}

var _ domain.Adapter = (*Adapter)(nil)

type Adapter struct {
	NameFn               func() string
	SearchFn             func(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.Result, error)
	FetchDetailsFn       func(ctx context.Context, urlOrSlug string) (domain.Title, error)
	FetchChapterImagesFn func(ctx context.Context, chapterURL string) ([]string, error)
	CloseFn              func() error
}

func (a *Adapter) Name() string {
	return a.NameFn()
}

func (a *Adapter) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.Result, error) {
	return a.SearchFn(ctx, query, opts)
}

func (a *Adapter) FetchDetails(ctx context.Context, urlOrSlug string) (domain.Title, error) {
	return a.FetchDetailsFn(ctx, urlOrSlug)
}

func (a *Adapter) FetchChapterImages(ctx context.Context, chapterURL string) ([]string, error) {
	return a.FetchChapterImagesFn(ctx, chapterURL)
}

func (a *Adapter) Close() error {
	if a.CloseFn == nil {
		return nil
	}
	return a.CloseFn()
}

var _ domain.Store = (*Store)(nil)

type Store struct {
	EnsureTitleFn      func(ctx context.Context, title, url string) (int64, error)
	EnsureChapterFn    func(ctx context.Context, titleID int64, title, url string) (int64, error)
	RecordPageFn       func(ctx context.Context, chapterID int64, index int, url, localPath string) error
	MarkChapterSavedFn func(ctx context.Context, chapterID int64) error
}

func (s *Store) EnsureTitle(ctx context.Context, title, url string) (int64, error) {
	return s.EnsureTitleFn(ctx, title, url)
}

func (s *Store) EnsureChapter(ctx context.Context, titleID int64, title, url string) (int64, error) {
	return s.EnsureChapterFn(ctx, titleID, title, url)
}

func (s *Store) RecordPage(ctx context.Context, chapterID int64, index int, url, localPath string) error {
	return s.RecordPageFn(ctx, chapterID, index, url, localPath)
}

func (s *Store) MarkChapterSaved(ctx context.Context, chapterID int64) error {
	return s.MarkChapterSavedFn(ctx, chapterID)
}

func (s *Store) Close() error {
	return nil
}
