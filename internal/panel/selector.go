// Package panel selects the evaluators that review a submission.
package panel

import (
	"errors"
	"math/rand/v2"
	"sync"
)

// Size is the number of evaluators on every panel. It is also the number of
// evaluations needed before a submission counts as evaluated.
const Size = 3

// ErrInsufficientEvaluators is returned when the approved pool is smaller than Size.
var ErrInsufficientEvaluators = errors.New("not enough approved evaluators")

// Selector picks panels uniformly at random from a pool of evaluator ids.
type Selector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector creates a selector drawing from src. A nil src uses the
// runtime's global generator.
func NewSelector(src rand.Source) *Selector {
	s := &Selector{}
	if src != nil {
		s.rng = rand.New(src)
	}
	return s
}

// SelectPanel returns exactly Size distinct evaluator ids from pool, or
// ErrInsufficientEvaluators. It never returns a partial panel.
func (s *Selector) SelectPanel(pool []string) ([]string, error) {
	candidates := dedupe(pool)
	if len(candidates) < Size {
		return nil, ErrInsufficientEvaluators
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Partial Fisher-Yates: only the first Size slots need shuffling.
	for i := 0; i < Size; i++ {
		j := i + s.intN(len(candidates)-i)
		candidates[i], candidates[j] = candidates[j], candidates[i]
	}

	selected := make([]string, Size)
	copy(selected, candidates[:Size])
	return selected, nil
}

func (s *Selector) intN(n int) int {
	if s.rng == nil {
		return rand.IntN(n)
	}
	return s.rng.IntN(n)
}

func dedupe(pool []string) []string {
	seen := make(map[string]struct{}, len(pool))
	out := make([]string, 0, len(pool))
	for _, id := range pool {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
