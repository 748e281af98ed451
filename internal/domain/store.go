package domain

import "context"

// Store is the persistence the engine writes to. It never reads back.
type Store interface {
	EnsureTitle(ctx context.Context, title, url string) (int64, error)
	EnsureChapter(ctx context.Context, titleID int64, title, url string) (int64, error)
	RecordPage(ctx context.Context, chapterID int64, index int, url, localPath string) error
	MarkChapterSaved(ctx context.Context, chapterID int64) error
	Close() error
}
