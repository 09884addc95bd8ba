package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpoint_SaveLoadForget(t *testing.T) {
	cp := NewCheckpoint(time.Hour)
	cp.Save("run1", UnitResult{ChunkID: "0_aaaa", Candidates: candidates("0_aaaa", 1, 2)})
	cp.Save("run1", UnitResult{ChunkID: "1_bbbb"})
	cp.Save("run2", UnitResult{ChunkID: "0_aaaa"})

	got, ok := cp.Load("run1", "0_aaaa")
	require.True(t, ok)
	assert.Len(t, got.Candidates, 2)

	_, ok = cp.Load("run1", "9_zzzz")
	assert.False(t, ok)

	assert.Equal(t, 2, cp.Count("run1"))
	cp.Forget("run1")
	assert.Zero(t, cp.Count("run1"))
	assert.Equal(t, 1, cp.Count("run2"))
}
