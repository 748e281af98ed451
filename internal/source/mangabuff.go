package source

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"mangascout/internal/domain"
	"mangascout/internal/extract"
	"mangascout/internal/sanitize"
	"mangascout/internal/sharedhttp"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

type mangaBuff struct {
	base
	chain extract.Chain
}

func NewMangaBuff(cfg domain.AdapterConfig, f sharedhttp.Fetcher, log zerolog.Logger) domain.Adapter {
	return &mangaBuff{
		base: base{cfg: cfg, fetcher: f, log: log},
		chain: extract.Chain{
			extract.Preloaded{Selector: "div.reader__pages img", Attrs: []string{"src", "data-src"}},
			extract.DOMFallback{Allow: cfg.MediaPathAllow},
		},
	}
}

func (m *mangaBuff) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.Result, error) {
	searchURL := m.absURL("/search")

	results, err := searchPages(ctx, opts.MaxPages, func(ctx context.Context, page, _ int) ([]domain.Result, int, error) {
		doc, err := m.document(ctx, "search", searchURL, url.Values{
			"query": {query},
			"page":  {strconv.Itoa(page + 1)},
		})
		if err != nil {
			return nil, 0, err
		}

		cards := doc.Find(".cards .cards__item")
		var out []domain.Result
		cards.Each(func(_ int, card *goquery.Selection) {
			title := strings.TrimSpace(card.Find(".cards__name").First().Text())
			href := card.AttrOr("href", card.Find("a").First().AttrOr("href", ""))
			if title == "" || href == "" {
				m.log.Debug().Msg("skipping malformed search card")
				return
			}

			r := domain.Result{
				Title:  title,
				URL:    m.absURL(href),
				Source: m.Name(),
				Rating: parseRating(card.Find(".cards__rating").First().Text()),
			}
			if info := card.Find(".cards__info").First(); info.Length() > 0 {
				r.Year = parseYear(info.Text())
			}
			out = append(out, r)
		})

		return out, cards.Length(), nil
	})

	return Score(query, results), err
}

func (m *mangaBuff) FetchDetails(ctx context.Context, urlOrSlug string) (domain.Title, error) {
	titleURL := m.absURL(urlOrSlug)

	doc, err := m.document(ctx, "fetch details", titleURL, nil)
	if err != nil {
		return domain.Title{}, err
	}

	name := strings.TrimSpace(doc.Find("h1.manga__name").First().Text())
	if name == "" {
		return domain.Title{}, domain.NewError(domain.KindMalformed, "fetch details", titleURL, errMissingTitle)
	}

	t := domain.Title{
		Title:       name,
		Description: sanitize.Text(doc.Find(".manga__description").First().Text()),
		Genres:      texts(doc.Find(".tags .tags__item")),
		Status:      strings.TrimSpace(doc.Find(".manga__middle-link[href*='status']").First().Text()),
		URL:         titleURL,
		Source:      m.Name(),
	}
	if alt := strings.TrimSpace(doc.Find(".manga__name-alt span").First().Text()); alt != "" {
		t.AltTitles = append(t.AltTitles, alt)
	}
	if year := doc.Find(".manga__middle-link[href*='year']").First(); year.Length() > 0 {
		t.Year = parseYear(year.Text())
	}

	var chapters []domain.ChapterRef
	doc.Find("a.chapters__item").Each(func(_ int, item *goquery.Selection) {
		href, ok := item.Attr("href")
		if !ok {
			return
		}
		title := strings.Join(strings.Fields(item.Find(".chapters__name").Text()), " ")
		if title == "" {
			title = strings.Join(strings.Fields(item.Find(".chapters__value").Text()), " ")
		}
		chapters = append(chapters, domain.ChapterRef{
			Title:     title,
			URL:       m.absURL(href),
			Published: strings.TrimSpace(item.Find(".chapters__add-date").First().Text()),
		})
	})
	t.Chapters = ascending(chapters)

	return t, nil
}

func (m *mangaBuff) FetchChapterImages(ctx context.Context, chapterURL string) ([]string, error) {
	return m.images(ctx, m.absURL(chapterURL), m.chain)
}
