package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type countingStrategy struct {
	Strategy
	calls int
}

func (c *countingStrategy) Extract(body []byte, pageURL string) []string {
	c.calls++
	return c.Strategy.Extract(body, pageURL)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		base string
		want string
	}{
		{name: "protocol relative", raw: "//img.example.com/a/1.jpg", base: "https://site.example", want: "https://img.example.com/a/1.jpg"},
		{name: "root relative", raw: "/manga/1.jpg", base: "https://img2.desu.city", want: "https://img2.desu.city/manga/1.jpg"},
		{name: "root relative with page base", raw: "/manga/1.jpg", base: "https://desu.city/manga/x/vol1/ch1/rus", want: "https://desu.city/manga/1.jpg"},
		{name: "absolute unchanged", raw: "https://cdn.example.com/1.png?x=1", base: "https://site.example", want: "https://cdn.example.com/1.png?x=1"},
		{name: "protocol relative base", raw: "/a.jpg", base: "//img.example.com", want: "https://img.example.com/a.jpg"},
		{name: "empty", raw: "  ", base: "https://site.example", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.raw, tt.base)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Normalize(got, tt.base), "normalize must be idempotent")
		})
	}
}

func TestStripQuery(t *testing.T) {
	assert.Equal(t, "https://a.example/1.jpg", StripQuery("https://a.example/1.jpg?t=123&e=9"))
	assert.Equal(t, "https://a.example/1.jpg", StripQuery("https://a.example/1.jpg#frag"))
	assert.Equal(t, "https://a.example/1.jpg", StripQuery("https://a.example/1.jpg"))
}

func TestPreloaded(t *testing.T) {
	body := []byte(`<html><body>
<div id="preload">
  <img src="//img2.desu.city/manga/rus/one/ch1/01.jpg">
  <img src="/manga/rus/one/ch1/02.jpg">
  <img data-src="https://cdn.example.com/03.webp">
</div>
<img src="/static/logo.png">
</body></html>`)

	got := Preloaded{ImageHost: "https://img2.desu.city"}.Extract(body, "https://desu.city/manga/one/vol1/ch1/rus")

	assert.Equal(t, []string{
		"https://img2.desu.city/manga/rus/one/ch1/01.jpg",
		"https://img2.desu.city/manga/rus/one/ch1/02.jpg",
		"https://cdn.example.com/03.webp",
	}, got)
}

func TestPreloaded_CustomSelector(t *testing.T) {
	body := []byte(`<div class="reader__pages">
<img src="https://c.mangabuff.ru/chapters/1/1.jpg">
<img data-src="https://c.mangabuff.ru/chapters/1/2.jpg">
</div>`)

	got := Preloaded{Selector: "div.reader__pages img"}.Extract(body, "https://mangabuff.ru/manga/x/1/1")

	assert.Equal(t, []string{
		"https://c.mangabuff.ru/chapters/1/1.jpg",
		"https://c.mangabuff.ru/chapters/1/2.jpg",
	}, got)
}

func TestReaderInit(t *testing.T) {
	body := []byte(`<script>
Reader.init({
    dir: "//img2.desu.city/manga/rus/one/vol1/ch1/",
    images: [["01.jpg", 800, 1200], ["02.png?v=2", 800, 1200], ["03.webp", 800, 1200]],
    page: 1
});
</script>`)

	got := ReaderInit{}.Extract(body, "https://desu.city/manga/one/vol1/ch1/rus")

	assert.Equal(t, []string{
		"https://img2.desu.city/manga/rus/one/vol1/ch1/01.jpg",
		"https://img2.desu.city/manga/rus/one/vol1/ch1/02.png?v=2",
		"https://img2.desu.city/manga/rus/one/vol1/ch1/03.webp",
	}, got)
}

func TestReaderInit_GroupleForm(t *testing.T) {
	body := []byte(`<script>rm_h.readerInit({dir: 'https://img.example.org/auto/12/34/', images: ['01.jpg', '02.jpg']});</script>`)

	got := ReaderInit{}.Extract(body, "https://readmanga.example/title/vol1/1")

	assert.Equal(t, []string{
		"https://img.example.org/auto/12/34/01.jpg",
		"https://img.example.org/auto/12/34/02.jpg",
	}, got)
}

func TestReaderInit_NoDir(t *testing.T) {
	body := []byte(`<script>Reader.init({ images: [["01.jpg", 1, 1]] });</script>`)
	assert.Empty(t, ReaderInit{}.Extract(body, ""))
}

func TestInlineArray(t *testing.T) {
	body := []byte(`<script>rm_h.readerDoInit([['https://one.example.org/','',"auto/12/34/01.jpg?t=1&u=0"],['https://two.example.org/','',"auto/12/34/02.png"]], false);</script>`)

	got := InlineArray{}.Extract(body, "https://readmanga.example/title/vol1/1")

	assert.Equal(t, []string{
		"https://one.example.org/auto/12/34/01.jpg",
		"https://two.example.org/auto/12/34/02.png",
	}, got)
}

func TestDOMFallback(t *testing.T) {
	body := []byte(`<html><body>
<img src="/static/logo.svg">
<img src="https://img.example.com/manga/1.jpg?token=a">
<img data-src="https://img.example.com/manga/2.jpg">
<img src="https://img.example.com/manga/1.jpg?token=b">
<picture><source srcset="https://img.example.com/manga/3.webp 1x, https://img.example.com/manga/3@2x.webp 2x"></picture>
<span style="background-image: url('//img.example.com/manga/4.png')"></span>
<img src="data:image/png;base64,AAAA">
</body></html>`)

	t.Run("allow list", func(t *testing.T) {
		got := DOMFallback{Allow: []string{"/manga/"}}.Extract(body, "https://site.example/read/1")
		assert.Equal(t, []string{
			"https://img.example.com/manga/1.jpg",
			"https://img.example.com/manga/2.jpg",
			"https://img.example.com/manga/3.webp",
			"https://img.example.com/manga/4.png",
		}, got)
	})

	t.Run("extension filter", func(t *testing.T) {
		got := DOMFallback{}.Extract(body, "https://site.example/read/1")
		assert.NotContains(t, got, "https://site.example/static/logo.svg")
		assert.Equal(t, "https://img.example.com/manga/1.jpg", got[0])
	})
}

func TestDOMFallback_DocumentOrder(t *testing.T) {
	body := []byte(`<div style="background-image:url('https://i.example/manga/01.jpg')"></div>
<img src="https://i.example/manga/02.jpg">
<picture><source srcset="https://i.example/manga/03.webp 1x, https://i.example/manga/03@2x.webp 2x"></picture>
<img src="/static/spinner.gif" data-src="https://i.example/manga/04.jpg">
<span style="background-image: url(https://i.example/manga/05.png)"></span>`)

	got := DOMFallback{Allow: []string{"/manga/"}}.Extract(body, "https://site.example/read/1")
	assert.Equal(t, []string{
		"https://i.example/manga/01.jpg",
		"https://i.example/manga/02.jpg",
		"https://i.example/manga/03.webp",
		"https://i.example/manga/04.jpg",
		"https://i.example/manga/05.png",
	}, got)
}

func TestDOMFallback_DedupKeepsFirstPosition(t *testing.T) {
	body := []byte(`<img src="https://a.example/x/2.jpg"><img src="https://a.example/x/1.jpg"><img src="https://a.example/x/2.jpg">`)

	got := DOMFallback{}.Extract(body, "")
	assert.Equal(t, []string{"https://a.example/x/2.jpg", "https://a.example/x/1.jpg"}, got)
}

func TestChain_StopsAtFirstHit(t *testing.T) {
	body := []byte(`<div id="preload"><img src="/p/1.jpg"><img src="/p/2.jpg"></div>`)

	preloaded := &countingStrategy{Strategy: Preloaded{ImageHost: "https://img.example"}}
	reader := &countingStrategy{Strategy: ReaderInit{}}
	inline := &countingStrategy{Strategy: InlineArray{}}
	fallback := &countingStrategy{Strategy: DOMFallback{}}

	chain := Chain{preloaded, reader, inline, fallback}
	got, winner := chain.Run(body, "https://site.example/ch/1")

	assert.Equal(t, []string{"https://img.example/p/1.jpg", "https://img.example/p/2.jpg"}, got)
	assert.Equal(t, "preloaded", winner)
	assert.Equal(t, 1, preloaded.calls)
	assert.Zero(t, reader.calls)
	assert.Zero(t, inline.calls)
	assert.Zero(t, fallback.calls)
}

func TestChain_FallsThrough(t *testing.T) {
	body := []byte(`<html><img src="https://img.example/manga/1.jpg"></html>`)

	got, winner := Chain{Preloaded{}, ReaderInit{}, InlineArray{}, DOMFallback{}}.Run(body, "https://site.example")
	assert.Equal(t, []string{"https://img.example/manga/1.jpg"}, got)
	assert.Equal(t, "dom-fallback", winner)

	got, winner = Chain{Preloaded{}, ReaderInit{}}.Run([]byte("<html></html>"), "")
	assert.Empty(t, got)
	assert.Empty(t, winner)
}

func TestStrategiesArePure(t *testing.T) {
	body := []byte(`<div id="preload"><img src="/p/1.jpg"></div><script>Reader.init({dir:"https://i.example/d/", images:[["a.jpg"]]});</script>`)

	for _, s := range []Strategy{Preloaded{ImageHost: "https://i.example"}, ReaderInit{}, InlineArray{}, DOMFallback{}} {
		first := s.Extract(body, "https://site.example/c/1")
		second := s.Extract(body, "https://site.example/c/1")
		assert.Equal(t, first, second, s.Name())
	}
}
