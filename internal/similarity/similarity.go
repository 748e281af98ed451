// Package similarity scores how well a search query matches a title.
package similarity

import (
	"math"
	"strings"

	"github.com/hbollon/go-edlib"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases s for comparison and normalizes compatibility characters.
func Fold(s string) string {
	// a Caser keeps state, so one is made per call
	return cases.Fold().String(norm.NFKC.String(strings.TrimSpace(s)))
}

// Ratio is the 0-100 Indel similarity of two strings: insertions and deletions
// cost one, a substitution costs two.
func Ratio(a, b string) int {
	la, lb := len([]rune(a)), len([]rune(b))
	if la == 0 && lb == 0 {
		return 100
	}
	if la == 0 || lb == 0 {
		return 0
	}

	dist := edlib.LCSEditDistance(a, b)

	return int(math.Round(100 * float64(la+lb-dist) / float64(la+lb)))
}

// PartialRatio scores the shorter string against every equally long window of
// the longer one and returns the best Ratio. When the lengths differ the windows
// cut short at either edge of the longer string are scored too. Inputs are
// folded first.
func PartialRatio(query, title string) int {
	q, t := []rune(Fold(query)), []rune(Fold(title))
	if len(q) == 0 || len(t) == 0 {
		return 0
	}

	short, long := q, t
	if len(short) > len(long) {
		short, long = long, short
	}
	needle := string(short)
	n := len(short)

	best := 0
	score := func(window []rune) bool {
		if r := Ratio(needle, string(window)); r > best {
			best = r
		}
		return best == 100
	}

	for i := 0; i+n <= len(long); i++ {
		if score(long[i : i+n]) {
			return best
		}
	}
	if len(long) == n {
		return best
	}

	for i := 1; i < n; i++ {
		if score(long[:i]) || score(long[len(long)-i:]) {
			return best
		}
	}

	return best
}
