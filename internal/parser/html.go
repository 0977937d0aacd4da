package parser

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/dgallion1/isdaudit/internal/document"
)

// HTMLParser handles HTML files. Block elements become lines and table
// rows keep their cells together on one line.
type HTMLParser struct{}

func (p *HTMLParser) Open(r io.Reader, filename string) (document.TextLayer, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var lines []string
	emit := func(s string) {
		if s = collapse(s); s != "" {
			lines = append(lines, s)
		}
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			emit(n.Data)
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "nav", "footer", "head", "noscript":
				return
			case "tr":
				var cells []string
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
						cells = append(cells, textContent(c))
					}
				}
				emit(joinCells(cells))
				return
			case "p", "li", "h1", "h2", "h3", "h4", "h5", "h6", "blockquote", "caption", "dt", "dd", "title":
				emit(textContent(n))
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if body := findBody(doc); body != nil {
		walk(body)
	} else {
		walk(doc)
	}
	return document.LinesLayer{lines}, nil
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			buf.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return collapse(buf.String())
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
