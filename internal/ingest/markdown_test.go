package ingest

import (
	"strings"
	"testing"
)

func TestMarkdownParser_SectionsBecomePages(t *testing.T) {
	input := `# Title

Intro text.

## Section A

Section A content.

### Subsection A1

Subsection A1 content.

## Section B

Section B content.
`
	p := &MarkdownParser{}
	pages, err := p.Parse(strings.NewReader(input), "doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 4 {
		t.Fatalf("expected 4 pages, got %d: %+v", len(pages), pages)
	}

	want := []struct {
		heading string
		body    string
	}{
		{"Title", "Intro text."},
		{"Section A", "Section A content."},
		{"Subsection A1", "Subsection A1 content."},
		{"Section B", "Section B content."},
	}
	for i, w := range want {
		if pages[i].Number != i+1 {
			t.Errorf("page[%d]: expected number %d, got %d", i, i+1, pages[i].Number)
		}
		if !strings.HasPrefix(pages[i].Text, w.heading) {
			t.Errorf("page[%d]: expected heading %q, got %q", i, w.heading, pages[i].Text)
		}
		if !strings.Contains(pages[i].Text, w.body) {
			t.Errorf("page[%d]: expected body %q, got %q", i, w.body, pages[i].Text)
		}
	}
}

func TestMarkdownParser_ConsecutiveHeadingsStayTogether(t *testing.T) {
	input := "# Book\n\n## Chapter 1\n\nBody of chapter one.\n"
	p := &MarkdownParser{}
	pages, err := p.Parse(strings.NewReader(input), "book.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}
	if pages[0].Text != "Book\n\nChapter 1\n\nBody of chapter one." {
		t.Errorf("unexpected page text %q", pages[0].Text)
	}
}

func TestMarkdownParser_NoHeadings(t *testing.T) {
	input := "Just a paragraph.\n\nAnother paragraph."
	p := &MarkdownParser{}
	pages, err := p.Parse(strings.NewReader(input), "plain.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}
	if !strings.Contains(pages[0].Text, "Another paragraph.") {
		t.Errorf("expected both paragraphs, got %q", pages[0].Text)
	}
}

func TestHTMLParser_SkipsChromeAndSplitsOnHeadings(t *testing.T) {
	input := `<html><head><title>T</title><style>p{}</style></head><body>
<nav><p>menu</p></nav>
<h1>Intro</h1><p>Hello there.</p>
<h2>Details</h2><ul><li>One</li><li>Two</li></ul>
<script>var x = 1;</script>
</body></html>`
	p := &HTMLParser{}
	pages, err := p.Parse(strings.NewReader(input), "page.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d: %+v", len(pages), pages)
	}
	if pages[0].Text != "Intro\n\nHello there." {
		t.Errorf("unexpected first page %q", pages[0].Text)
	}
	if strings.Contains(pages[1].Text, "var x") || strings.Contains(pages[0].Text, "menu") {
		t.Errorf("expected script and nav content to be skipped")
	}
}
