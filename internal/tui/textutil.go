package tui

import "github.com/mattn/go-runewidth"

// truncateEnd shortens s to at most width terminal cells, ending in an
// ellipsis when anything was cut.
func truncateEnd(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}

// truncateMiddle keeps both ends of s, which matters for URLs.
func truncateMiddle(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	keep := width - 1
	left := keep / 2
	right := keep - left

	head := runewidth.Truncate(s, left, "")
	r := []rune(s)
	tail := ""
	for i := len(r) - 1; i >= 0; i-- {
		next := string(r[i:])
		if runewidth.StringWidth(next) > right {
			break
		}
		tail = next
	}
	return head + "…" + tail
}
