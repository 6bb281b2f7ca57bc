package output

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPad(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"abc", 5, "abc  "},
		{"abcdef", 3, "abc"},
		{"Wasser♦", 7, "Wasser♦"},
		{"", 2, "  "},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, pad(tt.in, tt.width))
		})
	}
}

func TestShouldUseCompact(t *testing.T) {
	t.Setenv("COLUMNS", "80")
	assert.True(t, shouldUseCompact(TableOptions{}))

	t.Setenv("COLUMNS", "160")
	assert.False(t, shouldUseCompact(TableOptions{}))
	assert.True(t, shouldUseCompact(TableOptions{ForceCompact: true}))
}
