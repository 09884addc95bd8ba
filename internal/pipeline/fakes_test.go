package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/dgallion1/quizzer/internal/chunker"
	"github.com/dgallion1/quizzer/internal/ingest"
	"github.com/dgallion1/quizzer/internal/quiz"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingGenerator returns n candidates per call, stamped with the chunk.
type countingGenerator struct {
	perCall int
	calls   atomic.Int32
	fail    func(ch chunker.Chunk) error
}

func (g *countingGenerator) Generate(_ context.Context, ch chunker.Chunk) ([]quiz.Candidate, error) {
	call := g.calls.Add(1)
	if g.fail != nil {
		if err := g.fail(ch); err != nil {
			return nil, err
		}
	}
	out := make([]quiz.Candidate, g.perCall)
	for i := range out {
		out[i] = quiz.Candidate{
			Question:    fmt.Sprintf("%s q%d (call %d)", ch.ID, i, call),
			OptionA:     "a",
			OptionB:     "b",
			OptionC:     "c",
			OptionD:     "d",
			Answer:      "A",
			Explanation: quiz.DefaultExplanation,
			ChunkID:     ch.ID,
			PageNumber:  ch.PageNumber,
		}
	}
	return out, nil
}

// verdictReviewer replays verdicts in order and repeats the last one.
type verdictReviewer struct {
	verdicts []bool
	calls    atomic.Int32
	err      error
}

func (r *verdictReviewer) Review(context.Context, chunker.Chunk, []quiz.Candidate) (quiz.Verdict, error) {
	n := int(r.calls.Add(1))
	if r.err != nil {
		return quiz.Verdict{}, r.err
	}
	if len(r.verdicts) == 0 {
		return quiz.Verdict{IsRelevant: true}, nil
	}
	i := min(n-1, len(r.verdicts)-1)
	return quiz.Verdict{IsRelevant: r.verdicts[i], Feedback: "scripted"}, nil
}

// staticSource serves fixed pages.
type staticSource struct {
	pages []ingest.Page
	err   error
}

func (s staticSource) Ingest(context.Context, string) ([]ingest.Page, error) {
	return s.pages, s.err
}
