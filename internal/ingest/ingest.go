package ingest

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrInvalidInput is returned when a source is neither a readable file of a
// supported type nor a supported data URI.
var ErrInvalidInput = errors.New("invalid input")

// Page is the extracted text of one non-empty page (or section, for formats
// without pagination). Numbers are 1-based and ascending.
type Page struct {
	Number int
	Text   string
}

// Parser converts raw document bytes into ordered page records.
type Parser interface {
	Parse(r io.Reader, name string) ([]Page, error)
}

// Ingester resolves a source reference and extracts its pages.
type Ingester struct {
	FallbackPdftotext bool
}

func New(fallbackPdftotext bool) *Ingester {
	return &Ingester{FallbackPdftotext: fallbackPdftotext}
}

// Ingest reads source, which is either a file path or a base64 data URI such
// as "data:application/pdf;base64,...", and returns its non-empty pages.
func (in *Ingester) Ingest(ctx context.Context, source string) ([]Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, fmt.Errorf("%w: empty source", ErrInvalidInput)
	}

	var (
		p    Parser
		r    io.Reader
		name string
	)
	if strings.HasPrefix(source, "data:") {
		mime, data, err := decodeDataURI(source)
		if err != nil {
			return nil, err
		}
		p, err = in.forMIME(mime)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(data)
		name = "upload" + extForMIME[mime]
	} else {
		var err error
		p, err = in.ForFile(source)
		if err != nil {
			return nil, err
		}
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		defer f.Close()
		r = f
		name = filepath.Base(source)
	}

	pages, err := p.Parse(r, name)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return cleanPages(pages), nil
}

// ForFile returns the parser for a filename based on its extension.
func (in *Ingester) ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return &PDFParser{FallbackPdftotext: in.FallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".txt":
		return &TextParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported file extension %q", ErrInvalidInput, ext)
	}
}

var extForMIME = map[string]string{
	"application/pdf": ".pdf",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
	"text/markdown": ".md",
	"text/html":     ".html",
	"text/plain":    ".txt",
	"text/csv":      ".csv",
}

// MIMEForFile returns the data URI media type used for a filename, or "" if
// the extension is not supported.
func MIMEForFile(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".markdown" {
		ext = ".md"
	}
	if ext == ".htm" {
		ext = ".html"
	}
	for mime, e := range extForMIME {
		if e == ext {
			return mime
		}
	}
	return ""
}

// DataURI encodes raw document bytes as a base64 data URI.
func DataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func (in *Ingester) forMIME(mime string) (Parser, error) {
	ext, ok := extForMIME[mime]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported data URI media type %q", ErrInvalidInput, mime)
	}
	return in.ForFile("upload" + ext)
}

func decodeDataURI(uri string) (string, []byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return "", nil, fmt.Errorf("%w: malformed data URI", ErrInvalidInput)
	}
	mime, enc, _ := strings.Cut(header, ";")
	if enc != "base64" {
		return "", nil, fmt.Errorf("%w: data URI must be base64 encoded", ErrInvalidInput)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: decode data URI: %w", ErrInvalidInput, err)
	}
	return strings.ToLower(mime), data, nil
}

// cleanPages normalizes page text to NFC and drops whitespace-only pages.
func cleanPages(pages []Page) []Page {
	out := make([]Page, 0, len(pages))
	for _, p := range pages {
		text := norm.NFC.String(p.Text)
		if strings.TrimSpace(text) == "" {
			continue
		}
		out = append(out, Page{Number: p.Number, Text: text})
	}
	return out
}
