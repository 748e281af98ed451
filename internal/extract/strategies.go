package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Preloaded reads image tags from a container the page fills ahead of the reader.
type Preloaded struct {
	Selector  string
	Attrs     []string
	ImageHost string
}

func (p Preloaded) Name() string { return "preloaded" }

func (p Preloaded) Extract(body []byte, pageURL string) []string {
	doc, ok := document(body)
	if !ok {
		return nil
	}

	selector := p.Selector
	if selector == "" {
		selector = "#preload img"
	}
	attrs := p.Attrs
	if len(attrs) == 0 {
		attrs = []string{"src", "data-src"}
	}
	base := p.ImageHost
	if base == "" {
		base = pageURL
	}

	var out []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		for _, attr := range attrs {
			if v := strings.TrimSpace(s.AttrOr(attr, "")); v != "" && !strings.HasPrefix(v, "data:") {
				out = append(out, Normalize(v, base))
				return
			}
		}
	})

	return out
}

var (
	readerInitPattern = regexp.MustCompile(`(?is)(?:Reader\.init|readerInit)\(\s*\{(.+?)\}\s*\)\s*;`)
	readerDirPattern  = regexp.MustCompile(`dir\s*:\s*['"]([^'"]+)['"]`)
	readerItemPattern = regexp.MustCompile(`(?i)["']([^"']+\.(?:jpe?g|png|webp)(?:\?[^"']*)?)["']`)
)

// ReaderInit reads the directory and file list passed to the reader's init call.
type ReaderInit struct{}

func (ReaderInit) Name() string { return "reader-init" }

func (ReaderInit) Extract(body []byte, _ string) []string {
	m := readerInitPattern.FindSubmatch(body)
	if m == nil {
		return nil
	}
	block := m[1]

	dm := readerDirPattern.FindSubmatch(block)
	if dm == nil {
		return nil
	}
	dir, err := url.Parse(Normalize(string(dm[1]), ""))
	if err != nil {
		return nil
	}

	var out []string
	for _, item := range readerItemPattern.FindAllSubmatch(block, -1) {
		ref, err := url.Parse(string(item[1]))
		if err != nil {
			continue
		}
		out = append(out, dir.ResolveReference(ref).String())
	}

	return out
}

var inlineArrayPattern = regexp.MustCompile(`\['(https?://[^']+)','',"([^"]+)"`)

// InlineArray reads the legacy (base, empty, path) triplets of readerDoInit.
type InlineArray struct{}

func (InlineArray) Name() string { return "inline-array" }

func (InlineArray) Extract(body []byte, _ string) []string {
	var out []string
	for _, m := range inlineArrayPattern.FindAllSubmatch(body, -1) {
		base, err := url.Parse(string(m[1]))
		if err != nil {
			continue
		}
		ref, err := url.Parse(string(m[2]))
		if err != nil {
			continue
		}
		out = append(out, StripQuery(base.ResolveReference(ref).String()))
	}

	return out
}

var backgroundPattern = regexp.MustCompile(`url\(\s*['"]?([^'")]+)['"]?\s*\)`)

// DOMFallback collects every image-like reference on the page. When Allow is set
// only URLs whose path contains one of its entries are kept, otherwise only URLs
// with an image extension.
type DOMFallback struct {
	Allow []string
}

func (DOMFallback) Name() string { return "dom-fallback" }

func (d DOMFallback) Extract(body []byte, pageURL string) []string {
	doc, ok := document(body)
	if !ok {
		return nil
	}

	c := newCollector()
	add := func(raw string) bool {
		u := StripQuery(Normalize(raw, pageURL))
		if !d.allowed(u) {
			return false
		}
		c.add(u)
		return true
	}

	// one pass keeps document order, each element yields at most one page
	doc.Find("img, source, [style*='background-image']").Each(func(_ int, s *goquery.Selection) {
		for _, attr := range []string{"src", "data-src", "data-lazy-src", "data-original"} {
			if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" && add(v) {
				return
			}
		}
		if v, ok := s.Attr("srcset"); ok {
			if fields := strings.Fields(strings.Split(v, ",")[0]); len(fields) > 0 && add(fields[0]) {
				return
			}
		}
		if m := backgroundPattern.FindStringSubmatch(s.AttrOr("style", "")); m != nil {
			add(m[1])
		}
	})

	return c.urls
}

func (d DOMFallback) allowed(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	if len(d.Allow) == 0 {
		return HasImageExt(raw)
	}
	for _, a := range d.Allow {
		if strings.Contains(u.Path, a) {
			return true
		}
	}
	return false
}
