package llm

import (
	"slices"
	"sync"
	"time"
)

// CallSummary aggregates the model calls seen in the current window.
// Percentiles use the nearest-rank method over successful and failed calls alike.
type CallSummary struct {
	Calls    int     `json:"calls"`
	Failures int     `json:"failures"`
	MinMs    int64   `json:"min_ms"`
	MaxMs    int64   `json:"max_ms"`
	MeanMs   float64 `json:"mean_ms"`
	P50Ms    int64   `json:"p50_ms"`
	P95Ms    int64   `json:"p95_ms"`
	P99Ms    int64   `json:"p99_ms"`
}

// StatsReport is the overall summary plus one summary per operation
// (the schema name: quiz_set or quiz_review).
type StatsReport struct {
	Overall CallSummary            `json:"overall"`
	ByOp    map[string]CallSummary `json:"by_op"`
}

type callRecord struct {
	at      time.Time
	op      string
	elapsed time.Duration
	failed  bool
}

// CallStats keeps model call outcomes for a rolling window. Safe for
// concurrent use by every unit of a run.
type CallStats struct {
	mu     sync.Mutex
	window time.Duration
	calls  []callRecord
	now    func() time.Time
}

func NewCallStats(window time.Duration) *CallStats {
	if window <= 0 {
		window = time.Hour
	}
	return &CallStats{window: window, now: time.Now}
}

// Record notes one call to op. A non-nil err counts the call as failed.
func (s *CallStats) Record(op string, elapsed time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.expireLocked(now)
	s.calls = append(s.calls, callRecord{
		at:      now,
		op:      op,
		elapsed: max(elapsed, 0),
		failed:  err != nil,
	})
}

// Report summarizes the calls still inside the window.
func (s *CallStats) Report() StatsReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireLocked(s.now())
	byOp := make(map[string][]callRecord)
	for _, c := range s.calls {
		byOp[c.op] = append(byOp[c.op], c)
	}
	report := StatsReport{
		Overall: summarizeCalls(s.calls),
		ByOp:    make(map[string]CallSummary, len(byOp)),
	}
	for op, calls := range byOp {
		report.ByOp[op] = summarizeCalls(calls)
	}
	return report
}

func (s *CallStats) expireLocked(now time.Time) {
	cutoff := now.Add(-s.window)
	i, _ := slices.BinarySearchFunc(s.calls, cutoff, func(c callRecord, t time.Time) int {
		return c.at.Compare(t)
	})
	if i > 0 {
		s.calls = slices.Delete(s.calls, 0, i)
	}
}

func summarizeCalls(calls []callRecord) CallSummary {
	if len(calls) == 0 {
		return CallSummary{}
	}
	ms := make([]int64, len(calls))
	var total int64
	sum := CallSummary{Calls: len(calls)}
	for i, c := range calls {
		ms[i] = c.elapsed.Milliseconds()
		total += ms[i]
		if c.failed {
			sum.Failures++
		}
	}
	slices.Sort(ms)
	sum.MinMs = ms[0]
	sum.MaxMs = ms[len(ms)-1]
	sum.MeanMs = float64(total) / float64(len(ms))
	sum.P50Ms = nearestRank(ms, 50)
	sum.P95Ms = nearestRank(ms, 95)
	sum.P99Ms = nearestRank(ms, 99)
	return sum
}

// nearestRank expects sorted input.
func nearestRank(sorted []int64, pct int) int64 {
	rank := (pct*len(sorted) + 99) / 100
	return sorted[min(max(rank, 1), len(sorted))-1]
}
