package document

import "fmt"

// Fragment is one positioned piece of text on a page. Y grows toward the
// top of the page, X grows to the right.
type Fragment struct {
	Text string  `json:"text"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// TextLayer produces positioned fragments for the pages of one document.
// Page numbers are 1-based.
type TextLayer interface {
	PageCount() int
	ExtractPage(page int) ([]Fragment, error)
}

// StaticLayer serves pre-extracted fragments.
type StaticLayer [][]Fragment

func (l StaticLayer) PageCount() int { return len(l) }

func (l StaticLayer) ExtractPage(page int) ([]Fragment, error) {
	if page < 1 || page > len(l) {
		return nil, fmt.Errorf("page %d out of range (1-%d)", page, len(l))
	}
	return l[page-1], nil
}

// LineHeight is the vertical distance between synthesized lines. It is
// larger than the reflow tolerance so every line stays on its own band.
const LineHeight = 12.0

// LinesLayer serves text that already has line structure (plain text,
// HTML, DOCX, ...). Each line becomes a single fragment at x=0.
type LinesLayer [][]string

func (l LinesLayer) PageCount() int { return len(l) }

func (l LinesLayer) ExtractPage(page int) ([]Fragment, error) {
	if page < 1 || page > len(l) {
		return nil, fmt.Errorf("page %d out of range (1-%d)", page, len(l))
	}
	lines := l[page-1]
	frags := make([]Fragment, 0, len(lines))
	for i, line := range lines {
		frags = append(frags, Fragment{
			Text: line,
			X:    0,
			Y:    float64(len(lines)-i) * LineHeight,
		})
	}
	return frags, nil
}
