package ingest

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLParser handles HTML files. Headings split the body into page records.
type HTMLParser struct{}

var (
	htmlHeadings = map[atom.Atom]bool{
		atom.H1: true, atom.H2: true, atom.H3: true,
		atom.H4: true, atom.H5: true, atom.H6: true,
	}
	htmlChrome = map[atom.Atom]bool{
		atom.Script: true, atom.Style: true, atom.Noscript: true,
		atom.Nav: true, atom.Header: true, atom.Footer: true, atom.Aside: true,
	}
	htmlBlocks = map[atom.Atom]bool{
		atom.P: true, atom.Li: true, atom.Td: true, atom.Th: true,
		atom.Blockquote: true, atom.Pre: true, atom.Dd: true, atom.Figcaption: true,
	}
)

func (p *HTMLParser) Parse(r io.Reader, name string) ([]Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html %s: %w", name, err)
	}

	root := doc
	if body := firstElement(doc, atom.Body); body != nil {
		root = body
	}

	var w sectionWriter
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case htmlChrome[n.DataAtom]:
				return
			case htmlHeadings[n.DataAtom]:
				w.Heading(nodeText(n))
				return
			case htmlBlocks[n.DataAtom]:
				w.Paragraph(nodeText(n))
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(root)
	return w.Pages(), nil
}

// nodeText joins the text beneath n, collapsing runs of whitespace.
func nodeText(n *html.Node) string {
	var parts []string
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			parts = append(parts, strings.Fields(n.Data)...)
			return
		}
		if n.Type == html.ElementNode && htmlChrome[n.DataAtom] {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.Join(parts, " ")
}

func firstElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := firstElement(c, a); found != nil {
			return found
		}
	}
	return nil
}
