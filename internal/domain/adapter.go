package domain

import (
	"context"
	"time"
)

// Adapter normalizes one third-party site into a common shape.
type Adapter interface {
	Name() string
	Search(ctx context.Context, query string, opts SearchOptions) ([]Result, error)
	FetchDetails(ctx context.Context, urlOrSlug string) (Title, error)
	FetchChapterImages(ctx context.Context, chapterURL string) ([]string, error)
	Close() error
}

// Result is a single search hit produced by one adapter.
type Result struct {
	Title      string   `json:"title"`
	URL        string   `json:"url"`
	Rating     *float64 `json:"rating,omitempty"`
	Genres     []string `json:"genres,omitempty"`
	Year       *int     `json:"year,omitempty"`
	Similarity int      `json:"similarity"`
	Source     string   `json:"source"`
}

// RatingOrZero is used as the secondary sort key.
func (r Result) RatingOrZero() float64 {
	if r.Rating == nil {
		return 0
	}
	return *r.Rating
}

type Title struct {
	Title       string       `json:"title"`
	AltTitles   []string     `json:"altTitles,omitempty"`
	Description string       `json:"description,omitempty"`
	Author      string       `json:"author,omitempty"`
	Year        *int         `json:"year,omitempty"`
	Status      string       `json:"status,omitempty"`
	Genres      []string     `json:"genres,omitempty"`
	Chapters    []ChapterRef `json:"chapters"`
	URL         string       `json:"url"`
	Source      string       `json:"source"`
}

// ChapterRef points at one chapter. URL is unique within a Title.
type ChapterRef struct {
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	Number    float32 `json:"number"`
	Published string  `json:"published,omitempty"`
}

// SavedFile is the outcome of one image download. Index is 1-based.
type SavedFile struct {
	Index     int    `json:"index"`
	SourceURL string `json:"sourceUrl"`
	LocalPath string `json:"localPath,omitempty"`
	Err       error  `json:"-"`
}

func (f SavedFile) OK() bool {
	return f.Err == nil && f.LocalPath != ""
}

type SearchOptions struct {
	YearsFrom int
	YearsTo   int
	Sort      string
	MaxPages  int
}

// AdapterConfig describes one source. It is set at construction and never mutated.
type AdapterConfig struct {
	Name             string            `yaml:"name" mapstructure:"name"`
	Kind             string            `yaml:"kind" mapstructure:"kind"`
	BaseURL          string            `yaml:"baseURL" mapstructure:"baseURL"`
	APIURL           string            `yaml:"apiURL" mapstructure:"apiURL"`
	ImageHost        string            `yaml:"imageHost" mapstructure:"imageHost"`
	Domains          []string          `yaml:"domains" mapstructure:"domains"`
	MediaPathAllow   []string          `yaml:"mediaPathAllow" mapstructure:"mediaPathAllow"`
	Headers          map[string]string `yaml:"headers" mapstructure:"headers"`
	Timeout          time.Duration     `yaml:"timeout" mapstructure:"timeout"`
	Transport        string            `yaml:"transport" mapstructure:"transport"`
	CloudflareBypass bool              `yaml:"cloudflareBypass" mapstructure:"cloudflareBypass"`
	Retries          int               `yaml:"retries" mapstructure:"retries"`
	Disabled         bool              `yaml:"disabled" mapstructure:"disabled"`
}
