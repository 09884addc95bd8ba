package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/dgallion1/quizzer/internal/ingest"
)

// Config controls chunking behavior.
type Config struct {
	ChunkSize    int // Maximum chunk length in characters.
	ChunkOverlap int // Characters shared by consecutive chunks of the same page.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    1000,
		ChunkOverlap: 200,
	}
}

// Chunk is one window of page text, the unit of quiz generation.
type Chunk struct {
	ID         string
	Text       string
	PageNumber int
	Index      int // Position in the run's chunk sequence.
	Start      int // Rune offset of Text within the page.
	End        int // Rune offset just past Text within the page.
}

// SegmentationError reports a malformed page record.
type SegmentationError struct {
	Index      int
	PageNumber int
	Reason     string
}

func (e *SegmentationError) Error() string {
	return fmt.Sprintf("segmentation: page record %d (page %d): %s", e.Index, e.PageNumber, e.Reason)
}

// Cut preference, strongest first. When none occurs in range the window is
// cut at the size limit.
var separators = [][]rune{[]rune("\n\n"), []rune("\n"), []rune(" ")}

// Split windows every page into chunks. Windows never span pages, so each
// chunk inherits exactly one page number. Output order follows page order.
func Split(pages []ingest.Page, cfg Config) ([]Chunk, error) {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 200
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize / 5
	}

	var chunks []Chunk
	prev := 0
	for i, page := range pages {
		switch {
		case page.Number <= 0:
			return nil, &SegmentationError{Index: i, PageNumber: page.Number, Reason: "missing page number"}
		case strings.TrimSpace(page.Text) == "":
			return nil, &SegmentationError{Index: i, PageNumber: page.Number, Reason: "missing text"}
		case page.Number <= prev:
			return nil, &SegmentationError{Index: i, PageNumber: page.Number, Reason: "page numbers out of order"}
		}
		prev = page.Number

		text := []rune(page.Text)
		for _, span := range windows(text, cfg.ChunkSize, cfg.ChunkOverlap) {
			body := string(text[span[0]:span[1]])
			chunks = append(chunks, Chunk{
				ID:         chunkID(len(chunks), body),
				Text:       body,
				PageNumber: page.Number,
				Index:      len(chunks),
				Start:      span[0],
				End:        span[1],
			})
		}
	}
	return chunks, nil
}

// windows returns [start, end) rune spans covering text. Consecutive spans
// overlap by at most overlap runes and every span is at most size runes.
func windows(text []rune, size, overlap int) [][2]int {
	n := len(text)
	var spans [][2]int
	start := 0
	for start < n {
		end := n
		if n-start > size {
			end = cutPoint(text, start, start+size, overlap)
		}
		spans = append(spans, [2]int{start, end})
		if end >= n {
			break
		}
		start = nextStart(text, end-overlap, end)
	}
	return spans
}

// cutPoint picks the window end, cutting just after the strongest separator
// found past the overlap region so the next window always advances.
func cutPoint(text []rune, start, limit, overlap int) int {
	from := start + overlap
	for _, sep := range separators {
		if i := lastIndex(text, from, limit, sep); i >= 0 {
			return i + len(sep)
		}
	}
	return limit
}

// nextStart moves the overlap start forward to the beginning of a word when
// one begins before end.
func nextStart(text []rune, candidate, end int) int {
	if candidate > 0 && isSpace(text[candidate-1]) {
		return candidate
	}
	for j := candidate; j < end; j++ {
		if isSpace(text[j]) {
			return j + 1
		}
	}
	return candidate
}

// lastIndex finds the last occurrence of sep lying entirely within text[from:to].
func lastIndex(text []rune, from, to int, sep []rune) int {
	for i := to - len(sep); i >= from; i-- {
		match := true
		for k, r := range sep {
			if text[i+k] != r {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n'
}

// chunkID is unique within a run through its sequence prefix; the content
// hash suffix makes IDs recognizable across runs of the same document.
func chunkID(index int, text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%d_%s", index, hex.EncodeToString(sum[:2]))
}
