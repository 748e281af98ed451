package registry

import (
	"errors"
	"testing"

	"mangascout/internal/domain"
	"mangascout/internal/mock"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defs() []domain.AdapterConfig {
	return []domain.AdapterConfig{
		{Name: "readmanga", BaseURL: "https://readmanga.live", Domains: []string{"readmanga.io", "www.readmanga.me"}},
		{Name: "desucity", BaseURL: "https://desu.city"},
		{Name: "mangabuff", BaseURL: "https://mangabuff.ru", Disabled: true},
		{Name: "broken", BaseURL: "https://broken.test"},
	}
}

func factory(cfg domain.AdapterConfig, _ zerolog.Logger) (domain.Adapter, error) {
	if cfg.Name == "broken" {
		return nil, errors.New("boom")
	}
	name := cfg.Name
	return &mock.Adapter{NameFn: func() string { return name }}, nil
}

func TestNames(t *testing.T) {
	r := New(defs(), factory, zerolog.Nop())
	assert.Equal(t, []string{"broken", "desucity", "readmanga"}, r.Names())

	_, ok := r.Config("mangabuff")
	assert.False(t, ok)
}

func TestOpen(t *testing.T) {
	r := New(defs(), factory, zerolog.Nop())

	a, err := r.Open("desucity")
	require.NoError(t, err)
	assert.Equal(t, "desucity", a.Name())

	_, err = r.Open("nope")
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	_, err = r.Open("mangabuff")
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestOpenAll(t *testing.T) {
	r := New(defs(), factory, zerolog.Nop())

	adapters, failed := r.OpenAll()

	var names []string
	for _, a := range adapters {
		names = append(names, a.Name())
	}
	assert.Equal(t, []string{"desucity", "readmanga"}, names)

	require.Len(t, failed, 1)
	assert.EqualError(t, failed["broken"], "boom")
}

func TestForURL(t *testing.T) {
	r := New(defs(), factory, zerolog.Nop())

	tests := []struct {
		url  string
		want string
		ok   bool
	}{
		{url: "https://readmanga.live/one_punch_man", want: "readmanga", ok: true},
		{url: "https://3.readmanga.io/one_punch_man/vol1/1", want: "readmanga", ok: true},
		{url: "https://readmanga.me/x", want: "readmanga", ok: true},
		{url: "https://DESU.city/manga/x", want: "desucity", ok: true},
		{url: "https://notreadmanga.live/x"},
		{url: "https://mangabuff.ru/manga/x"},
		{url: "not a url"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, ok := r.ForURL(tt.url)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
