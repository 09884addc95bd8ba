package ingest

import (
	"io"
	"strings"
)

// TextParser handles plain text files. Form feeds mark page breaks, matching
// what pdftotext emits; a file without them is a single page.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, name string) ([]Page, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var pages []Page
	for i, text := range strings.Split(string(data), "\f") {
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, Page{Number: i + 1, Text: text})
	}
	return pages, nil
}
