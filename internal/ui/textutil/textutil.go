// Package textutil provides unicode-aware text utilities for table cells.
package textutil

import (
	"github.com/mattn/go-runewidth"
)

// Ellipsis marks truncated text.
const Ellipsis = "…"

// Width returns the number of terminal columns s occupies.
func Width(s string) int {
	return runewidth.StringWidth(s)
}

// Truncate cuts s to at most maxWidth columns, ending in Ellipsis when cut.
func Truncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if Width(s) <= maxWidth {
		return s
	}
	avail := maxWidth - Width(Ellipsis)
	if avail < 0 {
		return Ellipsis
	}

	out := make([]rune, 0, len(s))
	w := 0
	for _, r := range s {
		rw := runewidth.RuneWidth(r)
		if w+rw > avail {
			break
		}
		out = append(out, r)
		w += rw
	}
	return string(out) + Ellipsis
}

// Cell fits s into exactly width columns: truncated when too wide, padded
// with spaces on the right otherwise.
func Cell(s string, width int) string {
	if Width(s) >= width {
		return runewidth.FillRight(Truncate(s, width), width)
	}
	return runewidth.FillRight(s, width)
}

// CellRight is Cell with the padding on the left, for numeric columns.
func CellRight(s string, width int) string {
	if Width(s) >= width {
		return Truncate(s, width)
	}
	return runewidth.FillLeft(s, width)
}
