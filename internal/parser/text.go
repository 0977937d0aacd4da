package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/isdaudit/internal/document"
)

// TextParser handles plain text files. Form feeds start a new page.
type TextParser struct{}

func (p *TextParser) Open(r io.Reader, filename string) (document.TextLayer, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var text strings.Builder
	for scanner.Scan() {
		text.WriteString(scanner.Text())
		text.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return document.LinesLayer(splitPages(text.String())), nil
}
