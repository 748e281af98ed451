package source

import (
	"bytes"
	"cmp"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"mangascout/internal/domain"
	"mangascout/internal/extract"
	"mangascout/internal/parse"
	"mangascout/internal/sharedhttp"
	"mangascout/internal/similarity"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const (
	KindGrouple   = "grouple"
	KindDesuCity  = "desucity"
	KindMangaBuff = "mangabuff"
	KindRemanga   = "remanga"
	KindMangaLib  = "mangalib"
)

//go:embed sources.yaml
var builtinSources []byte

var errMissingTitle = errors.New("title not found in page")

var (
	yearPattern   = regexp.MustCompile(`\d{4}`)
	ratingPattern = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
)

// Definitions returns the built-in source definitions.
func Definitions() ([]domain.AdapterConfig, error) {
	var defs []domain.AdapterConfig
	if err := yaml.Unmarshal(builtinSources, &defs); err != nil {
		return nil, errors.Wrap(err, "could not parse built-in sources")
	}
	return defs, nil
}

// ApplyOverrides layers user settings onto the definitions with the same name.
func ApplyOverrides(defs []domain.AdapterConfig, overrides map[string]*domain.SourceOverride) []domain.AdapterConfig {
	out := make([]domain.AdapterConfig, 0, len(defs))
	for _, def := range defs {
		o, ok := overrides[def.Name]
		if !ok || o == nil {
			out = append(out, def)
			continue
		}

		if o.BaseURL != "" {
			def.BaseURL = o.BaseURL
		}
		if len(o.Headers) > 0 {
			headers := make(map[string]string, len(def.Headers)+len(o.Headers))
			for k, v := range def.Headers {
				headers[k] = v
			}
			for k, v := range o.Headers {
				headers[k] = v
			}
			def.Headers = headers
		}
		if o.Timeout > 0 {
			def.Timeout = time.Duration(o.Timeout) * time.Second
		}
		if o.Transport != "" {
			def.Transport = o.Transport
		}
		if o.CloudflareBypass != nil {
			def.CloudflareBypass = *o.CloudflareBypass
		}
		if o.Retries > 0 {
			def.Retries = o.Retries
		}
		def.Disabled = o.Disabled

		out = append(out, def)
	}
	return out
}

// Open builds the adapter for cfg with its own transport.
func Open(cfg domain.AdapterConfig, log zerolog.Logger) (domain.Adapter, error) {
	log = log.With().Str("source", cfg.Name).Logger()
	return NewAdapter(cfg, sharedhttp.New(cfg, sharedhttp.WithLogger(log)), log)
}

// NewAdapter builds the adapter for cfg on top of an existing fetcher.
func NewAdapter(cfg domain.AdapterConfig, f sharedhttp.Fetcher, log zerolog.Logger) (domain.Adapter, error) {
	switch cfg.Kind {
	case KindGrouple:
		return NewGrouple(cfg, f, log), nil
	case KindDesuCity:
		return NewDesuCity(cfg, f, log), nil
	case KindMangaBuff:
		return NewMangaBuff(cfg, f, log), nil
	case KindRemanga:
		return NewRemanga(cfg, f, log), nil
	case KindMangaLib:
		return NewMangaLib(cfg, f, log), nil
	default:
		return nil, domain.NewError(domain.KindInvalidConfig, "open source", cfg.BaseURL, fmt.Errorf("unknown kind %q for %s", cfg.Kind, cfg.Name))
	}
}

type base struct {
	cfg     domain.AdapterConfig
	fetcher sharedhttp.Fetcher
	log     zerolog.Logger
}

func (b *base) Name() string {
	return b.cfg.Name
}

func (b *base) Close() error {
	return b.fetcher.Close()
}

// absURL resolves a slug or path against the site root. Absolute URLs pass through.
func (b *base) absURL(urlOrSlug string) string {
	urlOrSlug = strings.TrimSpace(urlOrSlug)
	if strings.HasPrefix(urlOrSlug, "http://") || strings.HasPrefix(urlOrSlug, "https://") {
		return urlOrSlug
	}
	return strings.TrimRight(b.cfg.BaseURL, "/") + "/" + strings.TrimLeft(urlOrSlug, "/")
}

func (b *base) document(ctx context.Context, op, rawURL string, params url.Values) (*goquery.Document, error) {
	resp, err := b.fetcher.Fetch(ctx, rawURL, nil, params)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, domain.NewError(domain.KindMalformed, op, rawURL, err)
	}
	return doc, nil
}

func (b *base) decode(ctx context.Context, op, rawURL string, params url.Values, v any) error {
	resp, err := b.fetcher.Fetch(ctx, rawURL, nil, params)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(resp.Body, v); err != nil {
		return domain.NewError(domain.KindMalformed, op, rawURL, err)
	}
	return nil
}

// images fetches a chapter page and runs chain over it.
func (b *base) images(ctx context.Context, chapterURL string, chain extract.Chain) ([]string, error) {
	resp, err := b.fetcher.Fetch(ctx, chapterURL, nil, nil)
	if err != nil {
		return nil, err
	}

	pageURL := chapterURL
	if resp.FinalURL != "" {
		pageURL = resp.FinalURL
	}

	urls, strategy := chain.Run(resp.Body, pageURL)
	if len(urls) == 0 {
		b.log.Debug().Str("url", chapterURL).Strs("strategies", chain.Names()).Msg("no strategy found images")
		return nil, domain.NewError(domain.KindNoImagesFound, "fetch chapter images", chapterURL, nil)
	}

	b.log.Debug().Str("url", chapterURL).Str("strategy", strategy).Int("images", len(urls)).Msg("extracted chapter images")
	return urls, nil
}

// pageFunc fetches one search page. seen is the number of entries on the page,
// including ones that were skipped.
type pageFunc func(ctx context.Context, page, offset int) (results []domain.Result, seen int, err error)

// searchPages walks result pages until one is empty or maxPages is reached.
// Results gathered before a failing page are returned with the error.
func searchPages(ctx context.Context, maxPages int, fetch pageFunc) ([]domain.Result, error) {
	if maxPages <= 0 {
		maxPages = 1
	}

	var all []domain.Result
	offset := 0
	for page := 0; page < maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return all, err
		}

		results, seen, err := fetch(ctx, page, offset)
		if err != nil {
			return all, err
		}
		if seen == 0 {
			break
		}

		all = append(all, results...)
		offset += seen
	}

	return uniqueResults(all), nil
}

func uniqueResults(results []domain.Result) []domain.Result {
	seen := make(map[string]struct{}, len(results))
	out := results[:0]
	for _, r := range results {
		if _, ok := seen[r.URL]; ok {
			continue
		}
		seen[r.URL] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Score sets Similarity on every result and sorts them.
func Score(query string, results []domain.Result) []domain.Result {
	for i := range results {
		if query == "" {
			results[i].Similarity = 0
			continue
		}
		results[i].Similarity = similarity.PartialRatio(query, results[i].Title)
	}

	SortResults(results)
	return results
}

// SortResults orders by similarity then rating, both descending. Ties keep their
// discovery order.
func SortResults(results []domain.Result) {
	slices.SortStableFunc(results, func(a, b domain.Result) int {
		if c := cmp.Compare(b.Similarity, a.Similarity); c != 0 {
			return c
		}
		return cmp.Compare(b.RatingOrZero(), a.RatingOrZero())
	})
}

// ascending turns a newest-first listing around, drops repeated URLs and fills in
// chapter numbers that could not be read from the title.
func ascending(newestFirst []domain.ChapterRef) []domain.ChapterRef {
	out := slices.Clone(newestFirst)
	slices.Reverse(out)
	return finishChapters(out)
}

func finishChapters(chapters []domain.ChapterRef) []domain.ChapterRef {
	seen := make(map[string]struct{}, len(chapters))
	out := make([]domain.ChapterRef, 0, len(chapters))
	for _, ch := range chapters {
		if _, ok := seen[ch.URL]; ok {
			continue
		}
		seen[ch.URL] = struct{}{}

		if ch.Number == 0 {
			if n, ok := parse.ChapterNumber(ch.Title); ok {
				ch.Number = n
			} else {
				ch.Number = float32(len(out) + 1)
			}
		}
		out = append(out, ch)
	}
	return out
}

func parseYear(s string) *int {
	m := yearPattern.FindString(s)
	if m == "" {
		return nil
	}
	y, err := strconv.Atoi(m)
	if err != nil {
		return nil
	}
	return &y
}

func parseRating(s string) *float64 {
	m := ratingPattern.FindString(s)
	if m == "" {
		return nil
	}
	r, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", "."), 64)
	if err != nil {
		return nil
	}
	return &r
}

func texts(s *goquery.Selection) []string {
	var out []string
	s.Each(func(_ int, sel *goquery.Selection) {
		if t := strings.TrimSpace(sel.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out
}

// labelled returns the value of the first row whose text starts with one of
// labels, e.g. "Выпуск: продолжается".
func labelled(rows *goquery.Selection, labels ...string) string {
	var out string
	rows.EachWithBreak(func(_ int, row *goquery.Selection) bool {
		text := strings.Join(strings.Fields(row.Text()), " ")
		for _, l := range labels {
			if rest, ok := strings.CutPrefix(text, l); ok {
				out = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(rest), ":"))
				return false
			}
		}
		return true
	})
	return out
}

func yearsRange(opts domain.SearchOptions) string {
	from, to := opts.YearsFrom, opts.YearsTo
	if from == 0 {
		from = 1961
	}
	if to == 0 {
		to = time.Now().Year()
	}
	return fmt.Sprintf("%d,%d", from, to)
}
