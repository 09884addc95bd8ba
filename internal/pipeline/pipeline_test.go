package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/quizzer/internal/chunker"
	"github.com/dgallion1/quizzer/internal/ingest"
)

func pages(n int) []ingest.Page {
	out := make([]ingest.Page, n)
	for i := range out {
		out[i] = ingest.Page{Number: i + 1, Text: fmt.Sprintf("Page %d talks about topic %d in some detail.", i+1, i)}
	}
	return out
}

func newTestPipeline(src Source, gen Generator, rev Reviewer, cp *Checkpoint, failFast bool) *Pipeline {
	return New(src, gen, rev, cp, Options{
		Chunking:    chunker.DefaultConfig(),
		Concurrency: 3,
		FailFast:    failFast,
	}, discardLogger())
}

func TestPipeline_RunCompletes(t *testing.T) {
	gen := &countingGenerator{perCall: 2}
	p := newTestPipeline(staticSource{pages: pages(5)}, gen, &verdictReviewer{}, nil, false)
	run := NewRun("doc.pdf", "doc.pdf")

	res, err := p.Run(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, 5, res.Chunks)
	assert.Len(t, res.Candidates, 10)
	assert.Empty(t, res.Failures)

	snap := run.Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, 5, snap.Progress.TotalChunks)
	assert.Equal(t, 5, snap.Progress.ChunksProcessed)
	assert.Equal(t, 10, snap.Progress.Questions)
	assert.Len(t, run.Candidates(), 10)
}

func TestPipeline_PartialWhenSomeUnitsFail(t *testing.T) {
	gen := &countingGenerator{perCall: 1, fail: func(ch chunker.Chunk) error {
		if ch.PageNumber == 2 {
			return errors.New("model down")
		}
		return nil
	}}
	p := newTestPipeline(staticSource{pages: pages(4)}, gen, &verdictReviewer{}, nil, false)
	run := NewRun("doc.pdf", "doc.pdf")

	res, err := p.Run(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, res.Status)
	assert.Len(t, res.Candidates, 3)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, 2, res.Failures[0].PageNumber)

	snap := run.Snapshot()
	assert.Equal(t, StatusPartial, snap.Status)
	assert.Equal(t, 1, snap.Progress.ChunksFailed)
	assert.Len(t, snap.Progress.Errors, 1)
}

func TestPipeline_FailedWhenEveryUnitFails(t *testing.T) {
	gen := &countingGenerator{fail: func(chunker.Chunk) error { return errors.New("model down") }}
	p := newTestPipeline(staticSource{pages: pages(3)}, gen, &verdictReviewer{}, nil, false)
	run := NewRun("doc.pdf", "doc.pdf")

	res, err := p.Run(context.Background(), run)
	assert.ErrorIs(t, err, ErrAllUnitsFailed)
	require.NotNil(t, res)
	assert.Len(t, res.Failures, 3)
	assert.Equal(t, StatusFailed, run.Snapshot().Status)
}

func TestPipeline_FailFastAborts(t *testing.T) {
	gen := &countingGenerator{perCall: 1, fail: func(ch chunker.Chunk) error {
		if ch.Index == 0 {
			return errors.New("model down")
		}
		return nil
	}}
	p := New(staticSource{pages: pages(6)}, gen, &verdictReviewer{}, nil, Options{Concurrency: 1, FailFast: true}, discardLogger())
	run := NewRun("doc.pdf", "doc.pdf")

	_, err := p.Run(context.Background(), run)
	var ue *UnitError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, 1, ue.PageNumber)
	assert.EqualValues(t, 1, gen.calls.Load())
	assert.Equal(t, StatusFailed, run.Snapshot().Status)
}

func TestPipeline_IngestErrorIsFatal(t *testing.T) {
	gen := &countingGenerator{perCall: 1}
	src := staticSource{err: fmt.Errorf("%w: no such file", ingest.ErrInvalidInput)}
	p := newTestPipeline(src, gen, &verdictReviewer{}, nil, false)
	run := NewRun("missing.pdf", "missing.pdf")

	_, err := p.Run(context.Background(), run)
	assert.ErrorIs(t, err, ingest.ErrInvalidInput)
	assert.Zero(t, gen.calls.Load())
	assert.Equal(t, StatusFailed, run.Snapshot().Status)
}

func TestPipeline_SegmentationErrorIsFatal(t *testing.T) {
	src := staticSource{pages: []ingest.Page{{Number: 0, Text: "no page number"}}}
	p := newTestPipeline(src, &countingGenerator{}, &verdictReviewer{}, nil, false)

	_, err := p.Run(context.Background(), NewRun("x", "x"))
	var se *chunker.SegmentationError
	assert.ErrorAs(t, err, &se)
}

func TestPipeline_ResumesFromCheckpoint(t *testing.T) {
	var broken atomic.Bool
	broken.Store(true)
	gen := &countingGenerator{perCall: 1, fail: func(ch chunker.Chunk) error {
		if ch.PageNumber == 3 && broken.Load() {
			return errors.New("model down")
		}
		return nil
	}}
	cp := NewCheckpoint(time.Hour)
	p := newTestPipeline(staticSource{pages: pages(4)}, gen, &verdictReviewer{}, cp, false)
	run := NewRun("doc.pdf", "doc.pdf")

	res, err := p.Run(context.Background(), run)
	require.NoError(t, err)
	require.Equal(t, StatusPartial, res.Status)
	assert.Equal(t, 3, cp.Count(run.ID))

	broken.Store(false)
	gen.calls.Store(0)
	run.Reset()

	res, err = p.Run(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, 3, res.Resumed)
	assert.Len(t, res.Candidates, 4)
	assert.EqualValues(t, 1, gen.calls.Load(), "only the failed chunk is regenerated")
	assert.Equal(t, 3, run.Snapshot().Progress.ChunksResumed)
}

func TestPipeline_EmptyDocumentCompletesWithNothing(t *testing.T) {
	p := newTestPipeline(staticSource{}, &countingGenerator{perCall: 1}, &verdictReviewer{}, nil, false)

	res, err := p.Run(context.Background(), NewRun("x", "x"))
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, res.Status)
	assert.Empty(t, res.Candidates)
}
