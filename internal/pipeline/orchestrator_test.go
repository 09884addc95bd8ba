package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/quizzer/internal/chunker"
)

func waitForDone(t *testing.T, o *Orchestrator, id string) RunSnapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if run := o.GetRun(id); run != nil {
			if snap := run.Snapshot(); snap.Status.Done() {
				return snap
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("run %s did not finish", id)
	return RunSnapshot{}
}

func TestOrchestrator_SubmitAndRetry(t *testing.T) {
	var broken atomic.Bool
	broken.Store(true)
	gen := &countingGenerator{perCall: 1, fail: func(ch chunker.Chunk) error {
		if ch.PageNumber == 1 && broken.Load() {
			return errors.New("model down")
		}
		return nil
	}}
	p := newTestPipeline(staticSource{pages: pages(3)}, gen, &verdictReviewer{}, NewCheckpoint(time.Hour), false)
	o := NewOrchestrator(OrchestratorConfig{WorkerCount: 2, MaxQueueSize: 4}, p, NewRunStore(time.Hour), discardLogger())
	o.Start(context.Background())
	defer o.Stop()

	run := NewRun("doc.pdf", "doc.pdf")
	require.NoError(t, o.Submit(run))

	snap := waitForDone(t, o, run.ID)
	assert.Equal(t, StatusPartial, snap.Status)
	assert.Equal(t, 2, snap.Progress.Questions)

	_, err := o.Retry("unknown")
	assert.ErrorIs(t, err, ErrRunNotFound)

	broken.Store(false)
	retried, err := o.Retry(run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, retried.ID)

	snap = waitForDone(t, o, run.ID)
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, 2, snap.Progress.ChunksResumed)
	assert.Len(t, run.Candidates(), 3)

	_, err = o.Retry(run.ID)
	assert.ErrorIs(t, err, ErrRunNotRetryable)
}

func TestOrchestrator_QueueFull(t *testing.T) {
	p := newTestPipeline(staticSource{pages: pages(1)}, &countingGenerator{perCall: 1}, &verdictReviewer{}, nil, false)
	o := NewOrchestrator(OrchestratorConfig{WorkerCount: 1, MaxQueueSize: 1}, p, NewRunStore(time.Hour), discardLogger())

	require.NoError(t, o.Submit(NewRun("a", "a")))
	overflow := NewRun("b", "b")
	err := o.Submit(overflow)
	assert.Error(t, err)
	assert.Equal(t, StatusFailed, overflow.Snapshot().Status)
	assert.Equal(t, 1, o.QueueDepth())
}
