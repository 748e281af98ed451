package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"mangascout/internal/domain"
	"mangascout/internal/extract"
	"mangascout/internal/sanitize"
	"mangascout/internal/sharedhttp"

	"github.com/rs/zerolog"
)

type mangaLib struct {
	base
	chain extract.Chain
}

func NewMangaLib(cfg domain.AdapterConfig, f sharedhttp.Fetcher, log zerolog.Logger) domain.Adapter {
	return &mangaLib{
		base:  base{cfg: cfg, fetcher: f, log: log},
		chain: extract.Chain{mangaLibPages{ImageHost: cfg.ImageHost}},
	}
}

type mangaLibNamed struct {
	Name string `json:"name"`
}

type mangaLibSearchResponse struct {
	Data []struct {
		SlugURL     string `json:"slug_url"`
		Name        string `json:"name"`
		RusName     string `json:"rus_name"`
		ReleaseDate string `json:"releaseDateString"`
		Rating      struct {
			Average json.RawMessage `json:"average"`
		} `json:"rating"`
		Genres []mangaLibNamed `json:"genres"`
	} `json:"data"`
	Meta struct {
		HasNextPage bool `json:"has_next_page"`
	} `json:"meta"`
}

type mangaLibTitleResponse struct {
	Data struct {
		SlugURL     string          `json:"slug_url"`
		Name        string          `json:"name"`
		RusName     string          `json:"rus_name"`
		EngName     string          `json:"eng_name"`
		Summary     string          `json:"summary"`
		ReleaseDate string          `json:"releaseDateString"`
		Status      mangaLibNamed   `json:"status"`
		Genres      []mangaLibNamed `json:"genres"`
		Authors     []mangaLibNamed `json:"authors"`
	} `json:"data"`
}

type mangaLibChaptersResponse struct {
	Data []struct {
		Volume   string `json:"volume"`
		Number   string `json:"number"`
		Name     string `json:"name"`
		Branches []struct {
			CreatedAt string `json:"created_at"`
		} `json:"branches"`
	} `json:"data"`
}

func (m *mangaLib) api(path string) string {
	return strings.TrimRight(m.cfg.APIURL, "/") + path
}

func (m *mangaLib) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.Result, error) {
	done := false

	results, err := searchPages(ctx, opts.MaxPages, func(ctx context.Context, page, _ int) ([]domain.Result, int, error) {
		if done {
			return nil, 0, nil
		}

		var resp mangaLibSearchResponse
		params := url.Values{
			"q":        {query},
			"page":     {strconv.Itoa(page + 1)},
			"fields[]": {"rate_avg", "releaseDate", "genres"},
		}
		if err := m.decode(ctx, "search", m.api("/api/manga"), params, &resp); err != nil {
			return nil, 0, err
		}
		done = !resp.Meta.HasNextPage

		var out []domain.Result
		for _, item := range resp.Data {
			title := item.RusName
			if title == "" {
				title = item.Name
			}
			if title == "" || item.SlugURL == "" {
				continue
			}

			res := domain.Result{
				Title:  title,
				URL:    m.absURL("/ru/manga/" + item.SlugURL),
				Rating: parseRating(string(item.Rating.Average)),
				Year:   parseYear(item.ReleaseDate),
				Source: m.Name(),
			}
			for _, g := range item.Genres {
				res.Genres = append(res.Genres, g.Name)
			}
			out = append(out, res)
		}

		return out, len(resp.Data), nil
	})

	return Score(query, results), err
}

// mangaLibChapter pulls the slug, volume and number out of a reader URL such as
// /ru/1773--wind-breaker/read/v5/c115. Title URLs yield only the slug.
func mangaLibChapter(rawURL string) (slug, volume, number string) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", ""
	}

	for _, p := range strings.Split(strings.Trim(u.Path, "/"), "/") {
		switch {
		case p == "ru" || p == "manga" || p == "read" || p == "":
		case len(p) > 1 && p[0] == 'v' && isNumber(p[1:]) && slug != "":
			volume = p[1:]
		case len(p) > 1 && p[0] == 'c' && isNumber(p[1:]) && slug != "":
			number = p[1:]
		case slug == "":
			slug = p
		}
	}
	return slug, volume, number
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func (m *mangaLib) FetchDetails(ctx context.Context, urlOrSlug string) (domain.Title, error) {
	slug, _, _ := mangaLibChapter(m.absURL(urlOrSlug))
	if slug == "" {
		return domain.Title{}, domain.NewError(domain.KindNotFound, "fetch details", urlOrSlug, fmt.Errorf("no slug in url"))
	}
	titleURL := m.absURL("/ru/manga/" + slug)

	var resp mangaLibTitleResponse
	params := url.Values{"fields[]": {"summary", "genres", "authors", "releaseDate", "status"}}
	if err := m.decode(ctx, "fetch details", m.api("/api/manga/"+slug), params, &resp); err != nil {
		return domain.Title{}, err
	}

	d := resp.Data
	name := d.RusName
	if name == "" {
		name = d.Name
	}
	if name == "" {
		return domain.Title{}, domain.NewError(domain.KindMalformed, "fetch details", titleURL, errMissingTitle)
	}

	t := domain.Title{
		Title:       name,
		Description: sanitize.Text(d.Summary),
		Status:      d.Status.Name,
		Year:        parseYear(d.ReleaseDate),
		URL:         titleURL,
		Source:      m.Name(),
	}
	for _, alt := range []string{d.EngName, d.Name} {
		if alt != "" && alt != name && !slices.Contains(t.AltTitles, alt) {
			t.AltTitles = append(t.AltTitles, alt)
		}
	}
	for _, g := range d.Genres {
		t.Genres = append(t.Genres, g.Name)
	}
	if len(d.Authors) > 0 {
		t.Author = d.Authors[0].Name
	}

	var chResp mangaLibChaptersResponse
	if err := m.decode(ctx, "fetch chapters", m.api("/api/manga/"+slug+"/chapters"), nil, &chResp); err != nil {
		return domain.Title{}, err
	}

	// the chapters endpoint already lists oldest first
	chapters := make([]domain.ChapterRef, 0, len(chResp.Data))
	for _, ch := range chResp.Data {
		ref := domain.ChapterRef{
			Title: mangaLibChapterTitle(ch.Volume, ch.Number, ch.Name),
			URL:   m.absURL(fmt.Sprintf("/ru/%s/read/v%s/c%s", slug, ch.Volume, ch.Number)),
		}
		if len(ch.Branches) > 0 {
			ref.Published = ch.Branches[0].CreatedAt
		}
		if n, err := strconv.ParseFloat(ch.Number, 32); err == nil {
			ref.Number = float32(n)
		}
		chapters = append(chapters, ref)
	}
	t.Chapters = finishChapters(chapters)

	return t, nil
}

func mangaLibChapterTitle(volume, number, name string) string {
	title := fmt.Sprintf("Том %s. Глава %s", volume, number)
	if name != "" {
		title += " - " + name
	}
	return title
}

func (m *mangaLib) FetchChapterImages(ctx context.Context, chapterURL string) ([]string, error) {
	slug, volume, number := mangaLibChapter(m.absURL(chapterURL))
	if slug == "" || number == "" {
		return nil, domain.NewError(domain.KindNotFound, "fetch chapter images", chapterURL, fmt.Errorf("no chapter reference in url"))
	}

	params := url.Values{"number": {number}, "volume": {volume}}
	apiURL := m.api("/api/manga/"+slug+"/chapter") + "?" + params.Encode()

	return m.images(ctx, apiURL, m.chain)
}

// mangaLibPages reads data.pages[].url from the chapter API. Paths are served
// from the image host.
type mangaLibPages struct {
	ImageHost string
}

func (mangaLibPages) Name() string { return "mangalib-api" }

func (p mangaLibPages) Extract(body []byte, _ string) []string {
	var resp struct {
		Data struct {
			Pages []struct {
				URL string `json:"url"`
			} `json:"pages"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil
	}

	host := strings.TrimRight(p.ImageHost, "/")

	var out []string
	for _, page := range resp.Data.Pages {
		u := strings.TrimSpace(page.URL)
		switch {
		case u == "":
			continue
		case strings.HasPrefix(u, "//manga/"):
			u = host + u[1:]
		case strings.HasPrefix(u, "/") && !strings.HasPrefix(u, "//"):
			u = host + u
		default:
			u = extract.Normalize(u, host)
		}
		out = append(out, u)
	}
	return out
}
