package tab

import (
	"unicode"

	"golang.org/x/text/width"
)

const ellipsis = "…"

// runeWidth returns the number of cells r occupies in a tab label.
// Combining marks and non-printables take none; East Asian wide and
// fullwidth runes take two.
func runeWidth(r rune) int {
	if r == 0 || !unicode.IsPrint(r) {
		return 0
	}
	if unicode.In(r, unicode.Mn, unicode.Me, unicode.Mc) {
		return 0
	}
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return 2
	default:
		return 1
	}
}

// LabelWidth returns the display width of s in cells.
func LabelWidth(s string) int {
	w := 0
	for _, r := range s {
		w += runeWidth(r)
	}
	return w
}

// TruncateLabel shortens s to at most maxCells cells, ending it with an
// ellipsis when anything was cut. maxCells <= 0 disables truncation.
func TruncateLabel(s string, maxCells int) string {
	if maxCells <= 0 || LabelWidth(s) <= maxCells {
		return s
	}
	if maxCells == 1 {
		return ellipsis
	}
	budget := maxCells - 1
	used := 0
	for i, r := range s {
		w := runeWidth(r)
		if used+w > budget {
			return s[:i] + ellipsis
		}
		used += w
	}
	return s
}
