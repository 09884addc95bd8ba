package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestIngest_FilePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("First page.\f\n \fThird page."), 0o644); err != nil {
		t.Fatal(err)
	}

	pages, err := New(false).Ingest(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages (whitespace page dropped), got %d", len(pages))
	}
	if pages[0].Number != 1 || pages[1].Number != 3 {
		t.Errorf("expected page numbers 1 and 3, got %d and %d", pages[0].Number, pages[1].Number)
	}
}

func TestIngest_DataURI(t *testing.T) {
	uri := DataURI("text/plain", []byte("Embedded text."))
	pages, err := New(false).Ingest(context.Background(), uri)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 1 || pages[0].Text != "Embedded text." {
		t.Fatalf("unexpected pages %+v", pages)
	}
}

func TestIngest_NormalizesToNFC(t *testing.T) {
	// "e" followed by a combining acute accent.
	uri := DataURI("text/plain", []byte("cafe\u0301"))
	pages, err := New(false).Ingest(context.Background(), uri)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pages[0].Text != "caf\u00e9" {
		t.Errorf("expected NFC text, got %q", pages[0].Text)
	}
}

func TestIngest_InvalidInputs(t *testing.T) {
	cases := map[string]string{
		"unsupported extension": "slides.pptx",
		"missing file":          filepath.Join(t.TempDir(), "missing.pdf"),
		"unsupported mime":      "data:image/png;base64,AAAA",
		"not base64":            "data:application/pdf,plain",
		"malformed uri":         "data:application/pdf;base64",
		"bad payload":           "data:application/pdf;base64,!!!",
		"empty":                 "   ",
	}
	in := New(false)
	for name, source := range cases {
		_, err := in.Ingest(context.Background(), source)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s: expected ErrInvalidInput, got %v", name, err)
		}
	}
}

func TestMIMEForFile(t *testing.T) {
	cases := map[string]string{
		"a.pdf":      "application/pdf",
		"a.PDF":      "application/pdf",
		"a.htm":      "text/html",
		"a.markdown": "text/markdown",
		"a.exe":      "",
	}
	for name, want := range cases {
		if got := MIMEForFile(name); got != want {
			t.Errorf("MIMEForFile(%q) = %q, want %q", name, got, want)
		}
	}
}
