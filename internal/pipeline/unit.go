package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/dgallion1/quizzer/internal/chunker"
	"github.com/dgallion1/quizzer/internal/quiz"
)

// MaxIterations bounds the generate/review rounds for one chunk.
const MaxIterations = 3

// Generator produces candidate questions for a chunk.
type Generator interface {
	Generate(ctx context.Context, ch chunker.Chunk) ([]quiz.Candidate, error)
}

// Reviewer judges whether candidates fit the chunk they came from.
type Reviewer interface {
	Review(ctx context.Context, ch chunker.Chunk, cands []quiz.Candidate) (quiz.Verdict, error)
}

// UnitState names a step of the per-chunk state machine.
type UnitState string

const (
	StateGenerating   UnitState = "generating"
	StateReviewing    UnitState = "reviewing"
	StateRegenerating UnitState = "regenerating"
	StateCompleted    UnitState = "completed"
)

// UnitResult is what one chunk contributes to the run.
type UnitResult struct {
	ChunkID    string
	ChunkIndex int
	PageNumber int
	Candidates []quiz.Candidate
	Iterations int
	Accepted   bool
}

// UnitError reports a chunk whose generate or review step gave up.
type UnitError struct {
	ChunkID    string
	PageNumber int
	Iterations int
	Err        error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("chunk %s (page %d, iteration %d): %v", e.ChunkID, e.PageNumber, e.Iterations, e.Err)
}

func (e *UnitError) Unwrap() error { return e.Err }

// unitRun is private to a single RunUnit call.
type unitRun struct {
	chunk      chunker.Chunk
	state      UnitState
	candidates []quiz.Candidate
	iterations int
	accepted   bool
}

// RunUnit drives one chunk through generate, review and bounded
// regeneration. After MaxIterations reviews the latest candidates are kept
// whatever the verdict. Empty chunks complete with no model calls.
func RunUnit(ctx context.Context, gen Generator, rev Reviewer, ch chunker.Chunk, log *slog.Logger) (UnitResult, error) {
	ctx, span := tracer.Start(ctx, "pipeline.unit")
	defer span.End()
	span.SetAttributes(
		attribute.String("chunk_id", ch.ID),
		attribute.Int("page_number", ch.PageNumber),
	)

	log = log.With("chunk_id", ch.ID, "page_number", ch.PageNumber)
	u := &unitRun{chunk: ch, state: StateGenerating}

	for u.state != StateCompleted {
		var err error
		switch u.state {
		case StateGenerating, StateRegenerating:
			err = u.generate(ctx, gen, log)
		case StateReviewing:
			err = u.review(ctx, rev, log)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "unit failed")
			return UnitResult{}, &UnitError{
				ChunkID:    ch.ID,
				PageNumber: ch.PageNumber,
				Iterations: u.iterations,
				Err:        err,
			}
		}
	}

	span.SetAttributes(
		attribute.Int("iterations", u.iterations),
		attribute.Bool("accepted", u.accepted),
		attribute.Int("candidates", len(u.candidates)),
	)
	if !u.accepted && u.iterations >= MaxIterations {
		log.Warn("keeping unaccepted candidates after max iterations",
			"iteration_count", u.iterations, "candidates", len(u.candidates))
	}

	return UnitResult{
		ChunkID:    ch.ID,
		ChunkIndex: ch.Index,
		PageNumber: ch.PageNumber,
		Candidates: append([]quiz.Candidate(nil), u.candidates...),
		Iterations: u.iterations,
		Accepted:   u.accepted,
	}, nil
}

func (u *unitRun) generate(ctx context.Context, gen Generator, log *slog.Logger) error {
	if strings.TrimSpace(u.chunk.Text) == "" {
		log.Debug("empty chunk, skipping generation")
		u.candidates = nil
		u.state = StateCompleted
		return nil
	}

	cands, err := gen.Generate(ctx, u.chunk)
	if err != nil {
		return err
	}
	u.candidates = cands
	u.state = StateReviewing
	log.Debug("generated candidates", "candidates", len(cands), "iteration_count", u.iterations)
	return nil
}

func (u *unitRun) review(ctx context.Context, rev Reviewer, log *slog.Logger) error {
	relevant := false
	if len(u.candidates) == 0 {
		log.Debug("no candidates, skipping review")
	} else {
		v, err := rev.Review(ctx, u.chunk, u.candidates)
		if err != nil {
			return err
		}
		relevant = v.IsRelevant
		if !relevant {
			log.Debug("review rejected candidates", "feedback", v.Feedback)
		}
	}
	u.iterations++
	u.accepted = relevant

	if !relevant && u.iterations < MaxIterations {
		u.state = StateRegenerating
		return nil
	}
	u.state = StateCompleted
	return nil
}
