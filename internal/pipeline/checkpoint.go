package pipeline

import (
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// Checkpoint keeps completed unit results in memory so a run can be resumed
// without repeating model calls. Entries expire after the configured TTL.
type Checkpoint struct {
	c *cache.Cache
}

func NewCheckpoint(ttl time.Duration) *Checkpoint {
	return &Checkpoint{c: cache.New(ttl, ttl/2)}
}

func checkpointKey(runID, chunkID string) string {
	return runID + "/" + chunkID
}

// Save records a completed unit for runID.
func (cp *Checkpoint) Save(runID string, r UnitResult) {
	cp.c.SetDefault(checkpointKey(runID, r.ChunkID), r)
}

// Load returns the saved result for a chunk of runID, if any.
func (cp *Checkpoint) Load(runID, chunkID string) (UnitResult, bool) {
	v, ok := cp.c.Get(checkpointKey(runID, chunkID))
	if !ok {
		return UnitResult{}, false
	}
	return v.(UnitResult), true
}

// Count returns the number of saved units for runID.
func (cp *Checkpoint) Count(runID string) int {
	prefix := runID + "/"
	n := 0
	for k := range cp.c.Items() {
		if strings.HasPrefix(k, prefix) {
			n++
		}
	}
	return n
}

// Forget drops every saved unit for runID.
func (cp *Checkpoint) Forget(runID string) {
	prefix := runID + "/"
	for k := range cp.c.Items() {
		if strings.HasPrefix(k, prefix) {
			cp.c.Delete(k)
		}
	}
}
