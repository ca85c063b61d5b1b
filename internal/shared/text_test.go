package shared

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestUpperFirst(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"rice", "Rice"},
		{"Rice", "Rice"},
		{"édamame", "Édamame"},
		{"ñame root", "Ñame root"},
		{"7 grain bread", "7 grain bread"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := UpperFirst(tt.in)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}
