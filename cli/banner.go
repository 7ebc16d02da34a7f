// Package cli holds the terminal helpers behind machinectl: boxed banners
// and promptui-driven prompts and pickers.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/amp-labs/amp-fsm/envutil"
)

const (
	boxTopLeft     = "╒"
	boxBottomLeft  = "└"
	boxTopRight    = "╕"
	boxBottomRight = "┘"
	boxSide        = "│"
	boxTop         = "═"
	boxBottom      = "─"
	dividerLeft    = "┠"
	dividerMiddle  = "─"
	dividerRight   = "┨"
	ellipsis       = "…"

	borders = 2
)

type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
)

const DefaultTerminalWidth = 80

// MACHINECTL_NO_BANNER prints banners as plain text, which keeps piped
// session output greppable.
var suppressBanner = sync.OnceValue(func() bool { //nolint:gochecknoglobals
	return envutil.Bool(context.Background(), "MACHINECTL_NO_BANNER",
		envutil.Default(false)).
		ValueOrElse(false)
})

func terminalWidth() int {
	_, w, err := TerminalDimensions()
	if err != nil || w == 0 {
		return DefaultTerminalWidth
	}

	return int(w) //nolint:gosec
}

func DividerAutoWidth() string {
	return Divider(terminalWidth())
}

func BannerAutoWidth(s string, a Alignment) string {
	if suppressBanner() {
		return s + "\n"
	}

	return Banner(s, terminalWidth(), a)
}

func Divider(width int) string {
	return dividerLeft + strings.Repeat(dividerMiddle, max(width-borders, 0)) + dividerRight + "\n"
}

// Banner draws s in a box width columns wide, one row per line of s.
func Banner(s string, width int, a Alignment) string {
	if width <= borders {
		return ""
	}

	inner := width - borders
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	parts := make([]string, 0, len(lines)+2) //nolint:mnd

	parts = append(parts, boxTopLeft+strings.Repeat(boxTop, inner)+boxTopRight)

	for _, l := range lines {
		parts = append(parts, boxSide+pad(l, inner, a)+boxSide)
	}

	parts = append(parts, boxBottomLeft+strings.Repeat(boxBottom, inner)+boxBottomRight)

	return strings.Join(parts, "\n") + "\n"
}

// pad fits text into width graphic runes, truncating with an ellipsis.
func pad(text string, width int, a Alignment) string {
	runes := []rune(text)
	length := 0

	for _, r := range runes {
		if unicode.IsGraphic(r) {
			length++
		}
	}

	if length > width {
		runes = append(runes[:max(width-1, 0)], []rune(ellipsis)...)
		length = width
	}

	diff := width - length

	switch a {
	case AlignRight:
		return strings.Repeat(" ", diff) + string(runes)
	case AlignCenter:
		left := diff / 2 //nolint:mnd

		return strings.Repeat(" ", left) + string(runes) + strings.Repeat(" ", diff-left)
	case AlignLeft:
		fallthrough
	default:
		return string(runes) + strings.Repeat(" ", diff)
	}
}

// TerminalDimensions returns (rows, cols, err) of the controlling terminal.
func TerminalDimensions() (uint, uint, error) {
	tty, err := os.Open("/dev/tty")
	if err != nil {
		return 0, 0, err
	}

	defer tty.Close() //nolint:errcheck

	cmd := exec.Command("stty", "size")
	cmd.Stdin = tty

	out, err := cmd.Output()
	if err != nil {
		return 0, 0, err
	}

	var rows, cols string
	if _, err := fmt.Sscan(string(out), &rows, &cols); err != nil {
		return 0, 0, err
	}

	r, err := strconv.ParseUint(rows, 10, 32)
	if err != nil {
		return 0, 0, err
	}

	c, err := strconv.ParseUint(cols, 10, 32)
	if err != nil {
		return 0, 0, err
	}

	return uint(r), uint(c), nil
}
