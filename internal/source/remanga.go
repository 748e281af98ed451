package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"mangascout/internal/domain"
	"mangascout/internal/extract"
	"mangascout/internal/sanitize"
	"mangascout/internal/sharedhttp"

	"github.com/rs/zerolog"
)

const remangaChapterPages = 50

type remanga struct {
	base
	chain extract.Chain
}

func NewRemanga(cfg domain.AdapterConfig, f sharedhttp.Fetcher, log zerolog.Logger) domain.Adapter {
	return &remanga{
		base:  base{cfg: cfg, fetcher: f, log: log},
		chain: extract.Chain{remangaPages{}},
	}
}

type remangaNamed struct {
	Name string `json:"name"`
}

type remangaSearchResponse struct {
	Content []struct {
		ID            int             `json:"id"`
		Dir           string          `json:"dir"`
		MainName      string          `json:"main_name"`
		SecondaryName string          `json:"secondary_name"`
		AvgRating     json.RawMessage `json:"avg_rating"`
		IssueYear     int             `json:"issue_year"`
		Genres        []remangaNamed  `json:"genres"`
	} `json:"content"`
}

type remangaTitleResponse struct {
	Content struct {
		ID            int            `json:"id"`
		Dir           string         `json:"dir"`
		MainName      string         `json:"main_name"`
		SecondaryName string         `json:"secondary_name"`
		AnotherName   string         `json:"another_name"`
		Description   string         `json:"description"`
		IssueYear     int            `json:"issue_year"`
		Status        remangaNamed   `json:"status"`
		Genres        []remangaNamed `json:"genres"`
		Publishers    []remangaNamed `json:"publishers"`
		Branches      []struct {
			ID int `json:"id"`
		} `json:"branches"`
	} `json:"content"`
}

type remangaChaptersResponse struct {
	Content []struct {
		ID         int    `json:"id"`
		Tome       int    `json:"tome"`
		Chapter    string `json:"chapter"`
		Name       string `json:"name"`
		UploadDate string `json:"upload_date"`
	} `json:"content"`
}

func (r *remanga) api(path string) string {
	return strings.TrimRight(r.cfg.APIURL, "/") + path
}

func (r *remanga) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.Result, error) {
	results, err := searchPages(ctx, opts.MaxPages, func(ctx context.Context, page, _ int) ([]domain.Result, int, error) {
		var resp remangaSearchResponse
		params := url.Values{
			"query": {query},
			"count": {"30"},
			"page":  {strconv.Itoa(page + 1)},
		}
		if err := r.decode(ctx, "search", r.api("/api/search/"), params, &resp); err != nil {
			return nil, 0, err
		}

		var out []domain.Result
		for _, item := range resp.Content {
			if item.MainName == "" || item.Dir == "" {
				continue
			}
			res := domain.Result{
				Title:  item.MainName,
				URL:    r.absURL("/manga/" + item.Dir),
				Rating: parseRating(string(item.AvgRating)),
				Source: r.Name(),
			}
			if item.IssueYear > 0 {
				year := item.IssueYear
				res.Year = &year
			}
			for _, g := range item.Genres {
				res.Genres = append(res.Genres, g.Name)
			}
			out = append(out, res)
		}

		return out, len(resp.Content), nil
	})

	return Score(query, results), err
}

// remangaDir returns the title directory from a title or chapter URL, or the input
// itself when it already is one.
func remangaDir(urlOrSlug string) string {
	u, err := url.Parse(urlOrSlug)
	if err != nil {
		return urlOrSlug
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, p := range parts {
		if p == "manga" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return parts[len(parts)-1]
}

func (r *remanga) FetchDetails(ctx context.Context, urlOrSlug string) (domain.Title, error) {
	dir := remangaDir(urlOrSlug)
	titleURL := r.absURL("/manga/" + dir)

	var resp remangaTitleResponse
	if err := r.decode(ctx, "fetch details", r.api("/api/titles/"+dir+"/"), nil, &resp); err != nil {
		return domain.Title{}, err
	}

	c := resp.Content
	if c.MainName == "" {
		return domain.Title{}, domain.NewError(domain.KindMalformed, "fetch details", titleURL, errMissingTitle)
	}

	t := domain.Title{
		Title:       c.MainName,
		Description: sanitize.Text(c.Description),
		Status:      c.Status.Name,
		URL:         titleURL,
		Source:      r.Name(),
	}
	for _, alt := range []string{c.SecondaryName, c.AnotherName} {
		if alt != "" {
			t.AltTitles = append(t.AltTitles, alt)
		}
	}
	if c.IssueYear > 0 {
		year := c.IssueYear
		t.Year = &year
	}
	for _, g := range c.Genres {
		t.Genres = append(t.Genres, g.Name)
	}
	if len(c.Publishers) > 0 {
		t.Author = c.Publishers[0].Name
	}

	if len(c.Branches) == 0 {
		return t, nil
	}

	var chapters []domain.ChapterRef
	for page := 1; page <= remangaChapterPages; page++ {
		var chResp remangaChaptersResponse
		params := url.Values{
			"branch_id": {strconv.Itoa(c.Branches[0].ID)},
			"ordering":  {"-index"},
			"count":     {"100"},
			"page":      {strconv.Itoa(page)},
		}
		if err := r.decode(ctx, "fetch chapters", r.api("/api/titles/chapters/"), params, &chResp); err != nil {
			return domain.Title{}, err
		}
		if len(chResp.Content) == 0 {
			break
		}

		for _, ch := range chResp.Content {
			ref := domain.ChapterRef{
				Title:     remangaChapterTitle(ch.Tome, ch.Chapter, ch.Name),
				URL:       r.absURL(fmt.Sprintf("/manga/%s/%d", dir, ch.ID)),
				Published: ch.UploadDate,
			}
			if n, err := strconv.ParseFloat(ch.Chapter, 32); err == nil {
				ref.Number = float32(n)
			}
			chapters = append(chapters, ref)
		}
	}
	t.Chapters = ascending(chapters)

	return t, nil
}

func remangaChapterTitle(tome int, chapter, name string) string {
	title := fmt.Sprintf("Том %d. Глава %s", tome, chapter)
	if name != "" {
		title += " - " + name
	}
	return title
}

func (r *remanga) FetchChapterImages(ctx context.Context, chapterURL string) ([]string, error) {
	u, err := url.Parse(chapterURL)
	if err != nil {
		return nil, domain.NewError(domain.KindInvalidConfig, "fetch chapter images", chapterURL, err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	id := parts[len(parts)-1]
	if _, err := strconv.Atoi(id); err != nil {
		return nil, domain.NewError(domain.KindNotFound, "fetch chapter images", chapterURL, fmt.Errorf("no chapter id in url"))
	}

	return r.images(ctx, r.api("/api/titles/chapters/"+id+"/"), r.chain)
}

// remangaPages reads content.pages from the chapter API. Pages are either a flat
// list or a list of slices of one tall image.
type remangaPages struct{}

func (remangaPages) Name() string { return "remanga-api" }

func (remangaPages) Extract(body []byte, _ string) []string {
	var resp struct {
		Content struct {
			Pages json.RawMessage `json:"pages"`
		} `json:"content"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil
	}

	type page struct {
		Link string `json:"link"`
	}

	var groups [][]page
	if err := json.Unmarshal(resp.Content.Pages, &groups); err != nil {
		var flat []page
		if err := json.Unmarshal(resp.Content.Pages, &flat); err != nil {
			return nil
		}
		for _, p := range flat {
			groups = append(groups, []page{p})
		}
	}

	var out []string
	for _, g := range groups {
		for _, p := range g {
			if p.Link != "" {
				out = append(out, extract.Normalize(p.Link, ""))
			}
		}
	}
	return out
}
