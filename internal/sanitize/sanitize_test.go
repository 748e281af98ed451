package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Berserk: Vol. 1", want: "Berserk Vol. 1"},
		{in: "  What?  Really*  ", want: "What Really"},
		{in: "a/b\\c|d", want: "abcd"},
		{in: "Том 1. Глава 5...", want: "Том 1. Глава 5"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Filename(tt.in))
		})
	}
}

func TestText(t *testing.T) {
	in := `<p>Сон Джин-Ву &mdash; <b>самый</b>
	слабый<script>alert(1)</script> охотник</p>`

	assert.Equal(t, "Сон Джин-Ву — самый слабый охотник", Text(in))
}
