// Package extract turns a chapter page body into its ordered list of image URLs.
//
// Strategies never touch the network. A Chain runs them in order and stops at the
// first one that finds anything.
package extract

import (
	"bytes"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type Strategy interface {
	Name() string
	Extract(body []byte, pageURL string) []string
}

type Chain []Strategy

// Run returns the first non-empty result and the name of the strategy that produced it.
func (c Chain) Run(body []byte, pageURL string) ([]string, string) {
	for _, s := range c {
		if urls := s.Extract(body, pageURL); len(urls) > 0 {
			return urls, s.Name()
		}
	}
	return nil, ""
}

// Names lists the strategies in execution order.
func (c Chain) Names() []string {
	names := make([]string, 0, len(c))
	for _, s := range c {
		names = append(names, s.Name())
	}
	return names
}

var imageExtPattern = regexp.MustCompile(`(?i)\.(jpe?g|png|webp|gif|avif)$`)

// Normalize makes raw absolute. Protocol-relative URLs get https, paths are
// resolved against base and absolute URLs are returned unchanged.
func Normalize(raw, base string) string {
	raw = strings.TrimSpace(raw)
	lower := strings.ToLower(raw)

	switch {
	case raw == "":
		return ""
	case strings.HasPrefix(raw, "//"):
		return "https:" + raw
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return raw
	}

	if base == "" {
		return raw
	}
	b, err := url.Parse(Normalize(base, ""))
	if err != nil {
		return raw
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	return b.ResolveReference(ref).String()
}

// StripQuery drops the query string and fragment, which carry volatile tokens.
func StripQuery(raw string) string {
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		return raw[:i]
	}
	return raw
}

// HasImageExt reports whether the URL path ends in a known image extension.
func HasImageExt(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return imageExtPattern.MatchString(path.Base(u.Path))
}

func document(body []byte) (*goquery.Document, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, false
	}
	return doc, true
}

// collector keeps first occurrences in order.
type collector struct {
	seen map[string]struct{}
	urls []string
}

func newCollector() *collector {
	return &collector{seen: make(map[string]struct{})}
}

func (c *collector) add(u string) {
	if u == "" || strings.HasPrefix(u, "data:") {
		return
	}
	if _, ok := c.seen[u]; ok {
		return
	}
	c.seen[u] = struct{}{}
	c.urls = append(c.urls, u)
}
