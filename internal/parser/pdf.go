package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"time"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/dgallion1/isdaudit/internal/document"
)

// PDFParser handles PDF files. It tries the Go library first,
// then falls back to pdftotext if enabled and available.
type PDFParser struct {
	FallbackPdftotext bool
}

var errNoPages = errors.New("pdf has no pages")

func (p *PDFParser) Open(r io.Reader, filename string) (document.TextLayer, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}

	layer, err := openPDF(data)
	if err != nil && p.FallbackPdftotext {
		if _, lookErr := exec.LookPath("pdftotext"); lookErr == nil {
			var text string
			text, err = extractPdftotext(data)
			if err == nil {
				return document.LinesLayer(splitPages(text)), nil
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}
	return layer, nil
}

func openPDF(data []byte) (layer *pdfLayer, err error) {
	defer func() {
		if r := recover(); r != nil {
			layer, err = nil, fmt.Errorf("pdf reader panic: %v", r)
		}
	}()
	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	if reader.NumPage() == 0 {
		return nil, errNoPages
	}
	return &pdfLayer{reader: reader}, nil
}

// pdfLayer serves pages straight from the PDF content streams.
type pdfLayer struct {
	reader *pdflib.Reader
}

func (l *pdfLayer) PageCount() int { return l.reader.NumPage() }

func (l *pdfLayer) ExtractPage(n int) (frags []document.Fragment, err error) {
	defer func() {
		if r := recover(); r != nil {
			frags, err = nil, fmt.Errorf("page %d: %v", n, r)
		}
	}()
	page := l.reader.Page(n)
	if page.V.IsNull() {
		return nil, nil
	}
	return mergeGlyphs(page.Content().Text), nil
}

// mergeGlyphs joins consecutive glyphs that sit on the same baseline and
// nearly touch into word or phrase fragments.
func mergeGlyphs(glyphs []pdflib.Text) []document.Fragment {
	var (
		frags []document.Fragment
		buf   []byte
		cur   document.Fragment
		end   float64
	)
	flush := func() {
		if len(buf) > 0 {
			cur.Text = string(buf)
			frags = append(frags, cur)
		}
		buf = buf[:0]
	}

	for _, g := range glyphs {
		if g.S == "" {
			continue
		}
		gap := math.Max(0.15*g.FontSize, 0.5)
		sameLine := len(buf) > 0 && math.Abs(g.Y-cur.Y) <= 0.5
		if sameLine && g.X >= end-gap && g.X-end <= gap {
			buf = append(buf, g.S...)
			end = math.Max(end, g.X+g.W)
			continue
		}
		flush()
		cur = document.Fragment{X: g.X, Y: g.Y}
		buf = append(buf, g.S...)
		end = g.X + g.W
	}
	flush()
	return frags
}

func extractPdftotext(data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "isdaudit-pdf-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	out, err := exec.CommandContext(ctx, "pdftotext", "-layout", tmpPath, "-").Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}
