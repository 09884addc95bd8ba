package pipeline

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/dgallion1/quizzer/internal/quiz"
)

// Aggregate is the run-wide, append-only collection of accepted candidates.
// Add is safe for concurrent use.
type Aggregate struct {
	mu            sync.Mutex
	candidates    []quiz.Candidate
	contributions int
}

func NewAggregate() *Aggregate {
	return &Aggregate{}
}

// Add appends one unit's final candidates. An empty slice still counts as a
// contribution.
func (a *Aggregate) Add(cands []quiz.Candidate) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.candidates = append(a.candidates, cands...)
	a.contributions++
}

// Candidates returns a copy of everything added so far, in append order.
func (a *Aggregate) Candidates() []quiz.Candidate {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.candidates)
}

// Contributions reports how many units have called Add.
func (a *Aggregate) Contributions() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.contributions
}

func (a *Aggregate) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.candidates)
}

// Merge concatenates per-chunk candidate sets. Nothing is deduplicated.
func Merge(results ...[]quiz.Candidate) []quiz.Candidate {
	n := 0
	for _, r := range results {
		n += len(r)
	}
	out := make([]quiz.Candidate, 0, n)
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}

// SortCandidates orders candidates by page number, then by the chunk index
// encoded in the chunk ID. The sort is stable so questions from one chunk
// keep the order the model gave them.
func SortCandidates(cands []quiz.Candidate) {
	slices.SortStableFunc(cands, func(a, b quiz.Candidate) int {
		if c := cmp.Compare(a.PageNumber, b.PageNumber); c != 0 {
			return c
		}
		ai, aok := chunkIndex(a.ChunkID)
		bi, bok := chunkIndex(b.ChunkID)
		if aok && bok {
			if c := cmp.Compare(ai, bi); c != 0 {
				return c
			}
		}
		return strings.Compare(a.ChunkID, b.ChunkID)
	})
}

func chunkIndex(id string) (int, bool) {
	prefix, _, _ := strings.Cut(id, "_")
	n, err := strconv.Atoi(prefix)
	return n, err == nil
}
