package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dgallion1/isdaudit/internal/document"
)

// MarkdownParser handles Markdown files using goldmark. GFM tables are
// flattened to one line per row.
type MarkdownParser struct{}

func (p *MarkdownParser) Open(r io.Reader, filename string) (document.TextLayer, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	doc := md.Parser().Parse(text.NewReader(src))

	var lines []string
	var walk func(n ast.Node)
	walk = func(n ast.Node) {
		switch node := n.(type) {
		case *extast.TableHeader, *extast.TableRow:
			var cells []string
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				cells = append(cells, inlineText(c, src))
			}
			if line := joinCells(cells); line != "" {
				lines = append(lines, line)
			}
			return
		case *ast.Paragraph, *ast.Heading, *ast.TextBlock:
			lines = appendLines(lines, inlineText(n, src))
			return
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			var buf bytes.Buffer
			segs := n.Lines()
			for i := 0; i < segs.Len(); i++ {
				seg := segs.At(i)
				buf.Write(seg.Value(src))
			}
			lines = appendLines(lines, buf.String())
			return
		}
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			walk(c)
		}
	}
	walk(doc)

	return document.LinesLayer{lines}, nil
}

// inlineText flattens the inline children of n, keeping line breaks.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(t.Value)
		default:
			buf.WriteString(inlineText(c, src))
		}
	}
	return buf.String()
}

func appendLines(lines []string, s string) []string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
