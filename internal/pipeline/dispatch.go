package pipeline

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/quizzer/internal/chunker"
)

// DefaultConcurrency is the unit admission limit when none is configured.
const DefaultConcurrency = 8

// UnitFunc runs the state machine for one chunk.
type UnitFunc func(ctx context.Context, ch chunker.Chunk) (UnitResult, error)

// Outcome is one chunk's result or failure.
type Outcome struct {
	Chunk  chunker.Chunk
	Result UnitResult
	Err    error
}

// Dispatch runs fn once per chunk with at most limit running at a time.
// Outcomes are returned in completion order and also passed to onOutcome,
// which may be called concurrently.
//
// By default a failed unit is recorded and its siblings carry on. With
// failFast the first failure cancels the shared context, chunks that have
// not started are skipped, and that failure is returned.
func Dispatch(ctx context.Context, chunks []chunker.Chunk, limit int, failFast bool, fn UnitFunc, onOutcome func(Outcome)) ([]Outcome, error) {
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	var (
		mu       sync.Mutex
		outcomes = make([]Outcome, 0, len(chunks))
	)
	record := func(o Outcome) {
		mu.Lock()
		outcomes = append(outcomes, o)
		mu.Unlock()
		if onOutcome != nil {
			onOutcome(o)
		}
	}

	for _, ch := range chunks {
		g.Go(func() error {
			if failFast && gctx.Err() != nil {
				return nil
			}
			res, err := fn(gctx, ch)
			record(Outcome{Chunk: ch, Result: res, Err: err})
			if err != nil && failFast {
				return err
			}
			return nil
		})
	}

	err := g.Wait()
	return outcomes, err
}
