package render

import (
	"bufio"
	"bytes"
	"html"
	"strings"
)

// TextRenderer renders plain text, one paragraph per blank-line separated
// block.
type TextRenderer struct{}

func (r *TextRenderer) Render(src []byte) (*Page, error) {
	scanner := bufio.NewScanner(bytes.NewReader(src))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs []string
	var current strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		} else {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(line)
		}
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	var out strings.Builder
	b := newOutlineBuilder()
	for _, para := range paragraphs {
		out.WriteString("<p>")
		out.WriteString(html.EscapeString(para))
		out.WriteString("</p>\n")
		b.paragraph(para)
	}

	return &Page{HTML: out.String(), Outline: b.done()}, nil
}
