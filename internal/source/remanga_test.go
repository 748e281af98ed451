package source

import (
	"context"
	"testing"

	"mangascout/internal/domain"
	"mangascout/internal/mock"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var remangaConfig = domain.AdapterConfig{
	Name:    "remanga",
	Kind:    KindRemanga,
	BaseURL: "https://remanga.test",
	APIURL:  "https://api.remanga.test",
}

func TestRemanga_Search(t *testing.T) {
	f := mock.Pages(map[string]string{
		"https://api.remanga.test/api/search/?count=30&page=1&query=%D0%B1%D0%B5%D0%B7%D0%B4%D0%B0%D1%80%D1%8C": `{"content":[
			{"id":1,"dir":"bezdar","main_name":"Бездарь","avg_rating":"9.1","issue_year":2021,"genres":[{"name":"Фэнтези"}]},
			{"id":2,"dir":"bezdarnyj-geroj","main_name":"Бездарный герой","avg_rating":8.7},
			{"id":3,"dir":"","main_name":"broken"}
		]}`,
		"https://api.remanga.test/api/search/?count=30&page=2&query=%D0%B1%D0%B5%D0%B7%D0%B4%D0%B0%D1%80%D1%8C": `{"content":[]}`,
	})

	r := NewRemanga(remangaConfig, f, zerolog.Nop())
	results, err := r.Search(context.Background(), "бездарь", domain.SearchOptions{MaxPages: 3})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "https://remanga.test/manga/bezdar", results[0].URL)
	assert.Equal(t, 100, results[0].Similarity)
	assert.Equal(t, 9.1, *results[0].Rating)
	assert.Equal(t, 2021, *results[0].Year)
	assert.Equal(t, []string{"Фэнтези"}, results[0].Genres)
	assert.Equal(t, 8.7, *results[1].Rating)
	assert.Nil(t, results[1].Year)
}

func TestRemanga_SearchMalformed(t *testing.T) {
	f := mock.Pages(map[string]string{
		"https://api.remanga.test/api/search/?count=30&page=1&query=x": `<html>`,
	})

	r := NewRemanga(remangaConfig, f, zerolog.Nop())
	_, err := r.Search(context.Background(), "x", domain.SearchOptions{})
	assert.ErrorIs(t, err, domain.ErrMalformed)
}

func TestRemangaDir(t *testing.T) {
	tests := map[string]string{
		"bezdar":                              "bezdar",
		"https://remanga.test/manga/bezdar":   "bezdar",
		"https://remanga.test/manga/bezdar/":  "bezdar",
		"/manga/bezdar/1500":                  "bezdar",
		"https://remanga.test/other/whatever": "whatever",
	}
	for in, want := range tests {
		assert.Equal(t, want, remangaDir(in), in)
	}
}

func TestRemanga_FetchDetails(t *testing.T) {
	f := mock.Pages(map[string]string{
		"https://api.remanga.test/api/titles/bezdar/": `{"content":{
			"id":1,"dir":"bezdar","main_name":"Бездарь","secondary_name":"Talentless","another_name":"",
			"description":"<p>Без <b>таланта</b></p>","issue_year":2021,
			"status":{"name":"Продолжается"},"genres":[{"name":"Фэнтези"}],"publishers":[{"name":"Studio"}],
			"branches":[{"id":77}]}}`,
		"https://api.remanga.test/api/titles/chapters/?branch_id=77&count=100&ordering=-index&page=1": `{"content":[
			{"id":103,"tome":1,"chapter":"3","name":"Финал","upload_date":"2024-01-03"},
			{"id":102,"tome":1,"chapter":"2.5","name":""}]}`,
		"https://api.remanga.test/api/titles/chapters/?branch_id=77&count=100&ordering=-index&page=2": `{"content":[
			{"id":101,"tome":1,"chapter":"1","name":""}]}`,
		"https://api.remanga.test/api/titles/chapters/?branch_id=77&count=100&ordering=-index&page=3": `{"content":[]}`,
	})

	r := NewRemanga(remangaConfig, f, zerolog.Nop())
	title, err := r.FetchDetails(context.Background(), "https://remanga.test/manga/bezdar")
	require.NoError(t, err)

	assert.Equal(t, "Бездарь", title.Title)
	assert.Equal(t, []string{"Talentless"}, title.AltTitles)
	assert.Equal(t, "Без таланта", title.Description)
	assert.Equal(t, "Продолжается", title.Status)
	assert.Equal(t, "Studio", title.Author)
	assert.Equal(t, 2021, *title.Year)

	require.Len(t, title.Chapters, 3)
	assert.Equal(t, "https://remanga.test/manga/bezdar/101", title.Chapters[0].URL)
	assert.Equal(t, float32(1), title.Chapters[0].Number)
	assert.Equal(t, float32(2.5), title.Chapters[1].Number)
	assert.Equal(t, "Том 1. Глава 3 - Финал", title.Chapters[2].Title)
	assert.Equal(t, "2024-01-03", title.Chapters[2].Published)
}

func TestRemanga_FetchDetailsNoBranches(t *testing.T) {
	f := mock.Pages(map[string]string{
		"https://api.remanga.test/api/titles/bezdar/": `{"content":{"dir":"bezdar","main_name":"Бездарь"}}`,
	})

	r := NewRemanga(remangaConfig, f, zerolog.Nop())
	title, err := r.FetchDetails(context.Background(), "bezdar")
	require.NoError(t, err)
	assert.Empty(t, title.Chapters)
}

func TestRemanga_FetchChapterImages(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "sliced pages",
			body: `{"content":{"pages":[[{"link":"https://img.remanga.test/1_1.jpg"},{"link":"https://img.remanga.test/1_2.jpg"}],[{"link":"//img.remanga.test/2.jpg"}]]}}`,
			want: []string{"https://img.remanga.test/1_1.jpg", "https://img.remanga.test/1_2.jpg", "https://img.remanga.test/2.jpg"},
		},
		{
			name: "flat pages",
			body: `{"content":{"pages":[{"link":"https://img.remanga.test/1.jpg"},{"link":""},{"link":"https://img.remanga.test/2.jpg"}]}}`,
			want: []string{"https://img.remanga.test/1.jpg", "https://img.remanga.test/2.jpg"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := mock.Pages(map[string]string{"https://api.remanga.test/api/titles/chapters/101/": tt.body})

			r := NewRemanga(remangaConfig, f, zerolog.Nop())
			urls, err := r.FetchChapterImages(context.Background(), "https://remanga.test/manga/bezdar/101")
			require.NoError(t, err)
			assert.Equal(t, tt.want, urls)
		})
	}
}

func TestRemanga_FetchChapterImagesErrors(t *testing.T) {
	f := mock.Pages(map[string]string{
		"https://api.remanga.test/api/titles/chapters/5/": `{"content":{"pages":[]}}`,
	})
	r := NewRemanga(remangaConfig, f, zerolog.Nop())

	_, err := r.FetchChapterImages(context.Background(), "https://remanga.test/manga/bezdar")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = r.FetchChapterImages(context.Background(), "https://remanga.test/manga/bezdar/5")
	assert.ErrorIs(t, err, domain.ErrNoImagesFound)
}
