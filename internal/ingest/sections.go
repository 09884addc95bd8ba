package ingest

import "strings"

// sectionWriter turns heading-delimited documents into numbered page records.
// A heading starts a new section only once the current one has body text, so
// runs of headings stay together with the content that follows them.
type sectionWriter struct {
	pages   []Page
	buf     strings.Builder
	hasBody bool
}

func (w *sectionWriter) Heading(title string) {
	title = strings.TrimSpace(title)
	if title == "" {
		return
	}
	if w.hasBody {
		w.flush()
	}
	w.write(title)
}

func (w *sectionWriter) Paragraph(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	w.write(text)
	w.hasBody = true
}

func (w *sectionWriter) Pages() []Page {
	w.flush()
	return w.pages
}

func (w *sectionWriter) write(s string) {
	if w.buf.Len() > 0 {
		w.buf.WriteString("\n\n")
	}
	w.buf.WriteString(s)
}

func (w *sectionWriter) flush() {
	if t := strings.TrimSpace(w.buf.String()); t != "" {
		w.pages = append(w.pages, Page{Number: len(w.pages) + 1, Text: t})
	}
	w.buf.Reset()
	w.hasBody = false
}
