package source

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"mangascout/internal/domain"
	"mangascout/internal/extract"
	"mangascout/internal/sanitize"
	"mangascout/internal/sharedhttp"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

type desuCity struct {
	base
	chain extract.Chain
}

func NewDesuCity(cfg domain.AdapterConfig, f sharedhttp.Fetcher, log zerolog.Logger) domain.Adapter {
	return &desuCity{
		base: base{cfg: cfg, fetcher: f, log: log},
		chain: extract.Chain{
			extract.Preloaded{Selector: "#preload img", ImageHost: cfg.ImageHost},
			extract.ReaderInit{},
			extract.InlineArray{},
			extract.DOMFallback{Allow: cfg.MediaPathAllow},
		},
	}
}

type desuSearchResponse struct {
	TemplateHTML string `json:"templateHtml"`
}

// Search posts to the forum search endpoint. It answers with a single page.
func (d *desuCity) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.Result, error) {
	searchURL := d.absURL("/manga/search/")
	root := strings.TrimRight(d.cfg.BaseURL, "/")

	results, err := searchPages(ctx, 1, func(ctx context.Context, _, _ int) ([]domain.Result, int, error) {
		form := url.Values{
			"q":                {query},
			"type":             {"manga"},
			"title_only":       {"0"},
			"nodes[]":          {"0"},
			"order":            {"date"},
			"group_discussion": {"0"},
			"users":            {""},
			"child_nodes":      {"1"},
			"date":             {"0"},
			"_xfRequestUri":    {"/manga/"},
			"_xfNoRedirect":    {"1"},
			"_xfToken":         {""},
			"_xfResponseType":  {"json"},
		}
		headers := map[string]string{
			"Accept":           "application/json, text/javascript, */*; q=0.01",
			"X-Requested-With": "XMLHttpRequest",
			"Origin":           root,
			"Referer":          root + "/manga/",
		}

		resp, err := d.fetcher.PostForm(ctx, searchURL, headers, form)
		if err != nil {
			return nil, 0, err
		}

		var payload desuSearchResponse
		if err := json.Unmarshal(resp.Body, &payload); err != nil {
			return nil, 0, domain.NewError(domain.KindMalformed, "search", searchURL, err)
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(payload.TemplateHTML))
		if err != nil {
			return nil, 0, domain.NewError(domain.KindMalformed, "search", searchURL, err)
		}

		var page []domain.Result
		seen := 0
		doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
			if !strings.Contains(row.Find("th").First().Text(), "Манга") {
				return
			}
			row.Find("ul.blockLinksList li").Each(func(_ int, li *goquery.Selection) {
				seen++
				if r, ok := d.parseItem(li); ok {
					page = append(page, r)
				}
			})
		})

		return page, seen, nil
	})

	return Score(query, results), err
}

func (d *desuCity) parseItem(li *goquery.Selection) (domain.Result, bool) {
	a := li.Find("a").First()
	href, _ := a.Attr("href")
	if !strings.HasPrefix(href, "manga/") {
		return domain.Result{}, false
	}

	title := strings.TrimSpace(a.Find(".itemTitle").First().Text())
	if title == "" {
		d.log.Debug().Str("href", href).Msg("skipping malformed search item")
		return domain.Result{}, false
	}

	r := domain.Result{
		Title:  title,
		URL:    d.absURL(href),
		Source: d.Name(),
	}

	dds := li.Find("dd")
	li.Find("dt").Each(func(i int, dt *goquery.Selection) {
		if strings.Contains(dt.Text(), "Год") && i < dds.Length() {
			r.Year = parseYear(dds.Eq(i).Text())
		}
	})

	return r, true
}

func (d *desuCity) FetchDetails(ctx context.Context, urlOrSlug string) (domain.Title, error) {
	titleURL := d.absURL(urlOrSlug)

	doc, err := d.document(ctx, "fetch details", titleURL, nil)
	if err != nil {
		return domain.Title{}, err
	}

	rusName := strings.TrimSpace(doc.Find("h1 .rus-name").First().Text())
	engName := strings.TrimSpace(doc.Find("h1 .name").First().Text())

	name := rusName
	if name == "" {
		name = engName
	}
	if name == "" {
		return domain.Title{}, domain.NewError(domain.KindMalformed, "fetch details", titleURL, errMissingTitle)
	}

	t := domain.Title{
		Title:       name,
		Description: sanitize.Text(doc.Find("#description .russian").First().Text()),
		Author:      strings.TrimSpace(doc.Find(".line .key:contains('Авторы:') + .value a").First().Text()),
		Genres:      texts(doc.Find(".tagList li a")),
		Status:      labelled(doc.Find(".line"), "Статус"),
		URL:         titleURL,
		Source:      d.Name(),
	}
	if engName != "" && engName != name {
		t.AltTitles = append(t.AltTitles, engName)
	}

	var chapters []domain.ChapterRef
	doc.Find("ul.chlist li").Each(func(_ int, li *goquery.Selection) {
		link := li.Find("h4 a").First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		chapters = append(chapters, domain.ChapterRef{
			Title:     strings.Join(strings.Fields(link.Text()), " "),
			URL:       d.absURL(href),
			Published: strings.TrimSpace(li.Find("span.date").First().Text()),
		})
	})
	t.Chapters = ascending(chapters)

	return t, nil
}

func (d *desuCity) FetchChapterImages(ctx context.Context, chapterURL string) ([]string, error) {
	return d.images(ctx, d.absURL(chapterURL), d.chain)
}
