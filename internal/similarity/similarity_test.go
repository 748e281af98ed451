package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartialRatio(t *testing.T) {
	tests := []struct {
		name  string
		query string
		title string
		want  int
	}{
		{name: "substring", query: "naruto", title: "Naruto Shippuden", want: 100},
		{name: "case and space", query: "  ONE piece", title: "One Piece", want: 100},
		{name: "cyrillic", query: "ВАН", title: "Ван-Пис", want: 100},
		{name: "one substitution", query: "abc", title: "abd", want: 67},
		{name: "empty query", query: "", title: "Berserk", want: 0},
		{name: "empty title", query: "berserk", title: "", want: 0},
		{name: "unrelated", query: "xyz", title: "abc", want: 0},
		{name: "transposition", query: "berserk", title: "bersekr", want: 86},
		{name: "swapped pair", query: "ab", title: "ba", want: 50},
		{name: "prefix window", query: "naruto", title: "Narutp Shippuden", want: 91},
		{name: "suffix window", query: "shippudenx", title: "Naruto Shippuden", want: 95},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PartialRatio(tt.query, tt.title))
		})
	}
}

func TestPartialRatio_Symmetric(t *testing.T) {
	assert.Equal(t, PartialRatio("berserk", "berserk of gluttony"), PartialRatio("berserk of gluttony", "berserk"))
}

func TestRatio(t *testing.T) {
	assert.Equal(t, 100, Ratio("", ""))
	assert.Equal(t, 0, Ratio("a", ""))
	assert.Equal(t, 75, Ratio("abcd", "abce"))
	assert.Equal(t, 86, Ratio("berserk", "bersekr"))
	assert.Equal(t, 0, Ratio("ab", "cd"))
}
