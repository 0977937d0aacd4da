package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/dgallion1/isdaudit/internal/document"
)

// DOCXParser handles .docx files. Paragraphs become lines; table rows
// become one line each.
type DOCXParser struct{}

func (p *DOCXParser) Open(r io.Reader, filename string) (document.TextLayer, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read docx: %w", err)
	}
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	var lines []string
	for _, item := range doc.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Paragraph:
			if t := docxParagraphText(it); t != "" {
				lines = append(lines, t)
			}
		case *docx.Table:
			lines = appendTableRows(lines, it)
		}
	}
	return document.LinesLayer{lines}, nil
}

func appendTableRows(lines []string, tbl *docx.Table) []string {
	for _, row := range tbl.TableRows {
		cells := make([]string, 0, len(row.TableCells))
		for _, cell := range row.TableCells {
			var parts []string
			for _, para := range cell.Paragraphs {
				parts = append(parts, docxParagraphText(para))
			}
			cells = append(cells, strings.Join(parts, " "))
			for _, nested := range cell.Tables {
				lines = appendTableRows(lines, nested)
			}
		}
		if line := joinCells(cells); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			switch t := rc.(type) {
			case *docx.Text:
				buf.WriteString(t.Text)
			case *docx.Tab:
				buf.WriteString(cellSeparator)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
