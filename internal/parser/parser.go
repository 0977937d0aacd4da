// Package parser turns uploaded documents into text layers.
package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/isdaudit/internal/document"
)

// Parser reads a document and exposes its pages as positioned fragments.
type Parser interface {
	Open(r io.Reader, filename string) (document.TextLayer, error)
}

// Options tune parser behavior.
type Options struct {
	// FallbackPdftotext shells out to pdftotext when the Go PDF reader
	// cannot open a file.
	FallbackPdftotext bool
}

// SupportedExtensions lists file extensions this tool can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.FallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %q", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// splitPages breaks text into form-feed separated pages of non-blank lines.
func splitPages(text string) [][]string {
	var pages [][]string
	for _, page := range strings.Split(text, "\f") {
		var lines []string
		for _, line := range strings.Split(page, "\n") {
			line = strings.TrimRight(line, "\r")
			if strings.TrimSpace(line) != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, lines)
	}
	return pages
}

// collapse squeezes whitespace runs into single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// cellSeparator keeps table cells on one line while leaving a column gap.
const cellSeparator = "  "

func joinCells(cells []string) string {
	out := make([]string, 0, len(cells))
	for _, c := range cells {
		if c = collapse(c); c != "" {
			out = append(out, c)
		}
	}
	return strings.Join(out, cellSeparator)
}
