package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateSlug(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "Priority Signs", want: "priority-signs"},
		{name: "accents", in: "Règles de priorité", want: "regles-de-priorite"},
		{name: "punctuation", in: "  Signs & Markings!  ", want: "signs-markings"},
		{name: "collapses runs", in: "a -- b", want: "a-b"},
		{name: "empty", in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateSlug(tt.in))
		})
	}
}

func TestParseIntDefault(t *testing.T) {
	assert.Equal(t, 7, ParseIntDefault("7", 3))
	assert.Equal(t, 3, ParseIntDefault("", 3))
	assert.Equal(t, 3, ParseIntDefault("abc", 3))
}

func TestParseLimitOffset(t *testing.T) {
	limit, offset := ParseLimitOffset("", "")
	assert.Equal(t, int64(20), limit)
	assert.Equal(t, int64(0), offset)

	limit, offset = ParseLimitOffset("50", "10")
	assert.Equal(t, int64(50), limit)
	assert.Equal(t, int64(10), offset)

	// clamped to the ceiling, negatives fall back
	limit, offset = ParseLimitOffset("5000", "-3")
	assert.Equal(t, int64(100), limit)
	assert.Equal(t, int64(0), offset)

	limit, _ = ParseLimitOffset("0", "")
	assert.Equal(t, int64(20), limit)
}
