// Package reflow rebuilds reading-order text from positioned fragments.
package reflow

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/dgallion1/isdaudit/internal/document"
)

// LineTolerance is the maximum vertical distance from a line's first
// fragment for another fragment to join that line.
const LineTolerance = 5.0

// PageMarker returns the separator placed before page n (n >= 2).
func PageMarker(n int) string {
	return "\n--- PAGE " + strconv.Itoa(n) + " ---\n"
}

// Page turns one page of fragments into newline-separated lines, top to
// bottom and left to right.
func Page(frags []document.Fragment) string {
	fold := newFolder()
	items := make([]document.Fragment, 0, len(frags))
	for _, f := range frags {
		f.X = finite(f.X)
		f.Y = finite(f.Y)
		f.Text = foldText(fold, f.Text)
		if strings.TrimSpace(f.Text) == "" {
			continue
		}
		items = append(items, f)
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Y != items[j].Y {
			return items[i].Y > items[j].Y
		}
		return items[i].X < items[j].X
	})

	var lines [][]document.Fragment
	for _, f := range items {
		n := len(lines)
		if n > 0 && math.Abs(f.Y-lines[n-1][0].Y) <= LineTolerance {
			lines[n-1] = append(lines[n-1], f)
			continue
		}
		lines = append(lines, []document.Fragment{f})
	}

	out := make([]string, 0, len(lines))
	for _, line := range lines {
		sort.SliceStable(line, func(i, j int) bool { return line[i].X < line[j].X })
		text := strings.TrimSpace(joinLine(line))
		if text == "" {
			continue
		}
		out = append(out, text)
	}
	return strings.Join(out, "\n")
}

// Document reflows every page and joins them with page markers.
func Document(pages [][]document.Fragment) string {
	var b strings.Builder
	for i, frags := range pages {
		if i > 0 {
			b.WriteString(PageMarker(i + 1))
		}
		b.WriteString(Page(frags))
	}
	return b.String()
}

// newFolder applies NFKC to everything except numeric forms (unicode.No),
// so ligatures and NBSP fold while superscript footnote markers never turn
// into digits that run into an amount.
func newFolder() transform.Transformer {
	return runes.If(runes.NotIn(unicode.No), norm.NFKC, nil)
}

func foldText(t transform.Transformer, s string) string {
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func joinLine(line []document.Fragment) string {
	var b strings.Builder
	for i, f := range line {
		if i > 0 && !endsWithSpace(b.String()) && !startsWithSpace(f.Text) {
			b.WriteByte(' ')
		}
		b.WriteString(f.Text)
	}
	return b.String()
}

func endsWithSpace(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return r != utf8.RuneError && unicode.IsSpace(r)
}

func startsWithSpace(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return r != utf8.RuneError && unicode.IsSpace(r)
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
