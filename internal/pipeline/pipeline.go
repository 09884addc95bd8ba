// Package pipeline runs a document through segmentation, per-chunk quiz
// generation with review, and aggregation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/dgallion1/quizzer/internal/chunker"
	"github.com/dgallion1/quizzer/internal/ingest"
	"github.com/dgallion1/quizzer/internal/quiz"
)

// ErrAllUnitsFailed is returned when every chunk of a run failed.
var ErrAllUnitsFailed = errors.New("all chunks failed")

// Source turns a document reference into page records.
type Source interface {
	Ingest(ctx context.Context, source string) ([]ingest.Page, error)
}

// Options controls segmentation and fan-out.
type Options struct {
	Chunking    chunker.Config
	Concurrency int
	FailFast    bool
}

// Pipeline sequences ingest, segmentation, fan-out and aggregation.
type Pipeline struct {
	source     Source
	gen        Generator
	rev        Reviewer
	checkpoint *Checkpoint
	opts       Options
	log        *slog.Logger
}

// New creates a pipeline. checkpoint may be nil to disable resume.
func New(src Source, gen Generator, rev Reviewer, checkpoint *Checkpoint, opts Options, log *slog.Logger) *Pipeline {
	return &Pipeline{
		source:     src,
		gen:        gen,
		rev:        rev,
		checkpoint: checkpoint,
		opts:       opts,
		log:        log,
	}
}

// Result is the outcome of a finished run.
type Result struct {
	RunID      string
	Status     RunStatus
	Candidates []quiz.Candidate
	Chunks     int
	Resumed    int
	Failures   []*UnitError
}

// Run executes run to completion and stores the merged candidates on it.
// Ingest and segmentation errors are fatal. Unit failures are collected in
// Result.Failures unless fail-fast is set; if every unit fails the result
// is returned together with ErrAllUnitsFailed.
func (p *Pipeline) Run(ctx context.Context, run *Run) (*Result, error) {
	ctx, span := tracer.Start(ctx, "pipeline.run")
	defer span.End()
	span.SetAttributes(attribute.String("run_id", run.ID))

	log := p.log.With("run_id", run.ID)
	res, err := p.run(ctx, run, log)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "run failed")
		run.AddError(err.Error())
		run.SetStatus(StatusFailed, string(run.Snapshot().Status))
		log.Error("run failed", "error", err)
		return res, err
	}
	span.SetAttributes(
		attribute.Int("chunks", res.Chunks),
		attribute.Int("questions", len(res.Candidates)),
		attribute.Int("failed_chunks", len(res.Failures)),
	)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, run *Run, log *slog.Logger) (*Result, error) {
	run.SetStatus(StatusIngesting, "ingesting")
	pages, err := p.source.Ingest(ctx, run.Source())
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	log.Info("ingested document", "pages", len(pages))

	run.SetStatus(StatusSegmenting, "segmenting")
	chunks, err := chunker.Split(pages, p.opts.Chunking)
	if err != nil {
		return nil, fmt.Errorf("segment: %w", err)
	}
	run.SetTotalChunks(len(chunks))
	log.Info("segmented document", "chunks", len(chunks))

	result := &Result{RunID: run.ID, Chunks: len(chunks)}
	agg := NewAggregate()

	pending := chunks
	if p.checkpoint != nil {
		pending = pending[:0:0]
		for _, ch := range chunks {
			if saved, ok := p.checkpoint.Load(run.ID, ch.ID); ok {
				agg.Add(saved.Candidates)
				run.RecordUnit(len(saved.Candidates), false, true)
				result.Resumed++
				continue
			}
			pending = append(pending, ch)
		}
		if result.Resumed > 0 {
			log.Info("resuming from checkpoint", "resumed", result.Resumed, "pending", len(pending))
		}
	}

	run.SetStatus(StatusGenerating, "generating")
	unit := func(ctx context.Context, ch chunker.Chunk) (UnitResult, error) {
		return RunUnit(ctx, p.gen, p.rev, ch, log)
	}
	outcomes, dispatchErr := Dispatch(ctx, pending, p.opts.Concurrency, p.opts.FailFast, unit, func(o Outcome) {
		if o.Err != nil {
			run.RecordUnit(0, true, false)
			return
		}
		agg.Add(o.Result.Candidates)
		if p.checkpoint != nil {
			p.checkpoint.Save(run.ID, o.Result)
		}
		run.RecordUnit(len(o.Result.Candidates), false, false)
	})

	for _, o := range outcomes {
		if o.Err == nil {
			continue
		}
		var ue *UnitError
		if !errors.As(o.Err, &ue) {
			ue = &UnitError{ChunkID: o.Chunk.ID, PageNumber: o.Chunk.PageNumber, Err: o.Err}
		}
		result.Failures = append(result.Failures, ue)
		run.AddError(ue.Error())
		log.Error("unit failed",
			"chunk_id", ue.ChunkID,
			"page_number", ue.PageNumber,
			"iteration_count", ue.Iterations,
			"error", ue.Err)
	}

	result.Candidates = agg.Candidates()
	run.SetCandidates(result.Candidates)

	if dispatchErr != nil {
		result.Status = StatusFailed
		return result, fmt.Errorf("fail-fast: %w", dispatchErr)
	}

	switch {
	case len(result.Failures) == 0:
		result.Status = StatusCompleted
	case len(result.Failures) < len(chunks):
		result.Status = StatusPartial
	default:
		result.Status = StatusFailed
		return result, fmt.Errorf("%w: %d of %d: %w", ErrAllUnitsFailed, len(result.Failures), len(chunks), result.Failures[0])
	}
	run.SetStatus(result.Status, "done")
	log.Info("run finished",
		"status", result.Status,
		"chunks", result.Chunks,
		"questions", len(result.Candidates),
		"failed", len(result.Failures),
		"resumed", result.Resumed)
	return result, nil
}
