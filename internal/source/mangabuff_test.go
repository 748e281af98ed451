package source

import (
	"context"
	"net/url"
	"testing"

	"mangascout/internal/domain"
	"mangascout/internal/mock"
	"mangascout/internal/sharedhttp"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var mangaBuffConfig = domain.AdapterConfig{
	Name:           "mangabuff",
	Kind:           KindMangaBuff,
	BaseURL:        "https://mangabuff.test",
	MediaPathAllow: []string{"/chapters/"},
}

func TestMangaBuff_Search(t *testing.T) {
	pages := map[string]string{
		"1": `<div class="cards">
<a class="cards__item" href="/manga/solo-leveling"><div class="cards__name">Поднятие уровня в одиночку</div><div class="cards__rating">9.4</div><div class="cards__info">Манхва, 2018</div></a>
<a class="cards__item" href="/manga/solo-max"><div class="cards__name">Соло на максималках</div><div class="cards__rating">8.1</div></a>
</div>`,
		"2": `<div class="cards">
<a class="cards__item" href="/manga/solo-leveling"><div class="cards__name">Поднятие уровня в одиночку</div></a>
<div class="cards__item"><div class="cards__name"></div></div>
</div>`,
		"3": `<div class="cards"></div>`,
	}

	var requested []string
	f := &mock.Fetcher{
		FetchFn: func(_ context.Context, rawURL string, _ map[string]string, params url.Values) (*sharedhttp.Response, error) {
			assert.Equal(t, "https://mangabuff.test/search", rawURL)
			assert.Equal(t, "поднятие уровня", params.Get("query"))
			requested = append(requested, params.Get("page"))
			return &sharedhttp.Response{StatusCode: 200, Body: []byte(pages[params.Get("page")])}, nil
		},
	}

	m := NewMangaBuff(mangaBuffConfig, f, zerolog.Nop())
	results, err := m.Search(context.Background(), "поднятие уровня", domain.SearchOptions{MaxPages: 10})
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2", "3"}, requested)
	require.Len(t, results, 2)
	assert.Equal(t, "https://mangabuff.test/manga/solo-leveling", results[0].URL)
	assert.Equal(t, 100, results[0].Similarity)
	assert.Equal(t, 9.4, *results[0].Rating)
	assert.Equal(t, 2018, *results[0].Year)
	assert.Equal(t, "mangabuff", results[0].Source)
	assert.Less(t, results[1].Similarity, 100)
}

func TestMangaBuff_FetchDetails(t *testing.T) {
	page := `<html><body>
<h1 class="manga__name">Поднятие уровня в одиночку</h1>
<div class="manga__name-alt"><span>Solo Leveling</span></div>
<div class="manga__middle"><a class="manga__middle-link" href="/manga?year=2018">2018</a><a class="manga__middle-link" href="/manga?status=1">Завершен</a></div>
<div class="manga__description">Охотник <i>Сон Джину</i>.</div>
<div class="tags"><a class="tags__item">Экшен</a><a class="tags__item">Фэнтези</a></div>
<a class="chapters__item" href="/manga/solo-leveling/1/200"><div class="chapters__value"><span>Том 1</span> <span>Глава 200</span></div><div class="chapters__add-date">29.12.2021</div></a>
<a class="chapters__item" href="/manga/solo-leveling/1/199"><div class="chapters__name">Глава 199. Финал</div></a>
</body></html>`
	f := mock.Pages(map[string]string{"https://mangabuff.test/manga/solo-leveling": page})

	m := NewMangaBuff(mangaBuffConfig, f, zerolog.Nop())
	title, err := m.FetchDetails(context.Background(), "/manga/solo-leveling")
	require.NoError(t, err)

	assert.Equal(t, "Поднятие уровня в одиночку", title.Title)
	assert.Equal(t, []string{"Solo Leveling"}, title.AltTitles)
	assert.Equal(t, "Охотник Сон Джину.", title.Description)
	assert.Equal(t, "Завершен", title.Status)
	assert.Equal(t, 2018, *title.Year)
	assert.Equal(t, []string{"Экшен", "Фэнтези"}, title.Genres)

	require.Len(t, title.Chapters, 2)
	assert.Equal(t, "Глава 199. Финал", title.Chapters[0].Title)
	assert.Equal(t, float32(199), title.Chapters[0].Number)
	assert.Equal(t, "Том 1 Глава 200", title.Chapters[1].Title)
	assert.Equal(t, float32(200), title.Chapters[1].Number)
	assert.Equal(t, "29.12.2021", title.Chapters[1].Published)
}

func TestMangaBuff_FetchChapterImages(t *testing.T) {
	page := `<div class="reader__pages">
<div class="reader__item"><img src="https://c.mangabuff.test/chapters/solo/200/1.jpg"></div>
<div class="reader__item"><img data-src="https://c.mangabuff.test/chapters/solo/200/2.jpg"></div>
</div>`
	f := mock.Pages(map[string]string{"https://mangabuff.test/manga/solo-leveling/1/200": page})

	m := NewMangaBuff(mangaBuffConfig, f, zerolog.Nop())
	urls, err := m.FetchChapterImages(context.Background(), "/manga/solo-leveling/1/200")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://c.mangabuff.test/chapters/solo/200/1.jpg",
		"https://c.mangabuff.test/chapters/solo/200/2.jpg",
	}, urls)
}

func TestMangaBuff_FetchChapterImagesNotFound(t *testing.T) {
	m := NewMangaBuff(mangaBuffConfig, mock.Pages(nil), zerolog.Nop())
	_, err := m.FetchChapterImages(context.Background(), "/manga/gone/1/1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
