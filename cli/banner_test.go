package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBanner(t *testing.T) {
	t.Parallel()

	got := Banner("lathe\nOff", 9, AlignCenter)

	want := strings.Join([]string{
		"╒═══════╕",
		"│ lathe │",
		"│  Off  │",
		"└───────┘",
	}, "\n") + "\n"

	assert.Equal(t, want, got)
	assert.Empty(t, Banner("x", 2, AlignLeft))
}

func TestPad(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text  string
		width int
		align Alignment
		want  string
	}{
		{"mill", 6, AlignLeft, "mill  "},
		{"mill", 6, AlignRight, "  mill"},
		{"mill", 7, AlignCenter, " mill  "},
		{"EmergencyStop", 6, AlignLeft, "Emerg…"},
		{"Off", 3, AlignCenter, "Off"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, pad(tt.text, tt.width, tt.align), tt.text)
	}
}

func TestDivider(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "┠───┨\n", Divider(5))
	assert.Equal(t, "┠┨\n", Divider(1))
}
