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

// grouple covers the readmanga family of sites, which share one engine and markup.
type grouple struct {
	base
	chain extract.Chain
}

func NewGrouple(cfg domain.AdapterConfig, f sharedhttp.Fetcher, log zerolog.Logger) domain.Adapter {
	return &grouple{
		base: base{cfg: cfg, fetcher: f, log: log},
		chain: extract.Chain{
			extract.InlineArray{},
			extract.ReaderInit{},
			extract.DOMFallback{Allow: cfg.MediaPathAllow},
		},
	}
}

func (g *grouple) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.Result, error) {
	sortType := opts.Sort
	if sortType == "" {
		sortType = "POPULARITY"
	}
	searchURL := g.absURL("/search/advancedResults")

	results, err := searchPages(ctx, opts.MaxPages, func(ctx context.Context, _, offset int) ([]domain.Result, int, error) {
		params := url.Values{
			"q":        {query},
			"offset":   {strconv.Itoa(offset)},
			"years":    {yearsRange(opts)},
			"sortType": {sortType},
		}

		doc, err := g.document(ctx, "search", searchURL, params)
		if err != nil {
			return nil, 0, err
		}

		tiles := doc.Find(".tiles .tile")
		var page []domain.Result
		tiles.Each(func(_ int, tile *goquery.Selection) {
			if r, ok := g.parseTile(tile); ok {
				page = append(page, r)
			}
		})

		return page, tiles.Length(), nil
	})

	return Score(query, results), err
}

func (g *grouple) parseTile(tile *goquery.Selection) (domain.Result, bool) {
	link := tile.Find(".desc h3 a").First()
	title := strings.TrimSpace(link.Text())
	href, _ := link.Attr("href")
	if title == "" || href == "" {
		g.log.Debug().Msg("skipping malformed search tile")
		return domain.Result{}, false
	}

	r := domain.Result{
		Title:  title,
		URL:    g.absURL(href),
		Source: g.Name(),
		Genres: texts(tile.Find(".tile-info a[href*='/list/genre/']")),
	}
	if rate, ok := tile.Find(".compact-rate").First().Attr("title"); ok {
		r.Rating = parseRating(rate)
	}
	if year := tile.Find(".tile-info a[href*='/list/year/']").First(); year.Length() > 0 {
		r.Year = parseYear(year.Text())
	}

	return r, true
}

func (g *grouple) FetchDetails(ctx context.Context, urlOrSlug string) (domain.Title, error) {
	titleURL := g.absURL(urlOrSlug)

	doc, err := g.document(ctx, "fetch details", titleURL, nil)
	if err != nil {
		return domain.Title{}, err
	}

	name := strings.TrimSpace(doc.Find("h1.names > span.name").First().Text())
	if name == "" {
		return domain.Title{}, domain.NewError(domain.KindMalformed, "fetch details", titleURL, errMissingTitle)
	}

	t := domain.Title{
		Title:       name,
		Description: sanitize.Text(doc.Find("meta[itemprop=description]").AttrOr("content", "")),
		Author:      strings.TrimSpace(doc.Find(".elem_author a.person-link").First().Text()),
		Genres:      texts(doc.Find(".elem_genre a")),
		Status:      labelled(doc.Find(".subject-meta p"), "Выпуск", "Статус"),
		URL:         titleURL,
		Source:      g.Name(),
	}
	for _, sel := range []string{".eng-name", ".original-name"} {
		if alt := strings.TrimSpace(doc.Find(sel).First().Text()); alt != "" {
			t.AltTitles = append(t.AltTitles, alt)
		}
	}
	if year := doc.Find(".elem_year a").First(); year.Length() > 0 {
		t.Year = parseYear(year.Text())
	}
	if category := strings.TrimSpace(doc.Find(".elem_category a").First().Text()); category != "" {
		t.Genres = append(t.Genres, category)
	}

	var chapters []domain.ChapterRef
	doc.Find("tr.item-row").Each(func(_ int, row *goquery.Selection) {
		link := row.Find("a.chapter-link").First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		date := strings.TrimSpace(row.Find("td.date").First().AttrOr("data-date", ""))
		if date == "" {
			date = strings.TrimSpace(row.Find("td.date").First().Text())
		}

		chapters = append(chapters, domain.ChapterRef{
			Title:     strings.Join(strings.Fields(link.Text()), " "),
			URL:       g.absURL(href),
			Published: date,
		})
	})
	t.Chapters = ascending(chapters)

	return t, nil
}

func (g *grouple) FetchChapterImages(ctx context.Context, chapterURL string) ([]string, error) {
	return g.images(ctx, withQueryFlag(g.absURL(chapterURL), "mtr", "true"), g.chain)
}

// withQueryFlag sets key=value on rawURL. Applying it twice gives the same URL.
func withQueryFlag(rawURL, key, value string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()

	return u.String()
}
