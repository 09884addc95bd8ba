// Package export writes quiz candidates as CSV.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dgallion1/quizzer/internal/quiz"
)

// ErrNothingToExport is returned when there are no candidates to write.
// No file is created in that case.
var ErrNothingToExport = errors.New("nothing to export")

// DefaultDir is used when no output directory is configured.
const DefaultDir = "outputs"

// Header is the first row of every export.
var Header = []string{"Question", "Option A", "Option B", "Option C", "Option D", "Correct Answer", "Explanation"}

// Error reports a failure writing the export file. The candidates are
// unaffected and can be exported again.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("export %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// DefaultPath returns a timestamped file name under dir.
func DefaultPath(dir string, now time.Time) string {
	if dir == "" {
		dir = DefaultDir
	}
	return filepath.Join(dir, fmt.Sprintf("quiz_export_%s.csv", now.Format("20060102_150405")))
}

// WriteFile writes cands to dest, or to a timestamped file under outputDir
// when dest is empty, and returns the path written. Parent directories are
// created. The file appears only once it is complete.
func WriteFile(cands []quiz.Candidate, dest, outputDir string) (string, error) {
	if len(cands) == 0 {
		return "", ErrNothingToExport
	}
	path := dest
	if path == "" {
		path = DefaultPath(outputDir, time.Now())
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &Error{Path: path, Err: err}
	}
	tmp, err := os.CreateTemp(dir, ".quiz_export_*.csv")
	if err != nil {
		return "", &Error{Path: path, Err: err}
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, cands); err != nil {
		tmp.Close()
		return "", &Error{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return "", &Error{Path: path, Err: err}
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", &Error{Path: path, Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", &Error{Path: path, Err: err}
	}
	return path, nil
}

// Write streams the header and one row per candidate to w.
func Write(w io.Writer, cands []quiz.Candidate) error {
	if len(cands) == 0 {
		return ErrNothingToExport
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, c := range cands {
		explanation := c.Explanation
		if explanation == "" {
			explanation = quiz.DefaultExplanation
		}
		row := []string{c.Question, c.OptionA, c.OptionB, c.OptionC, c.OptionD, c.Answer, explanation}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
