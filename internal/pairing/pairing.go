// Package pairing builds the gift cycle for an event.
package pairing

import (
	"errors"
	"math/rand"
	"slices"
)

var ErrTooFew = errors.New("pairing needs at least 2 participants")

// Shuffler is the single source of randomness. *rand.Rand satisfies it.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// Build links a uniformly shuffled copy of ids into one cycle:
// pairing[p[i]] = p[(i+1) mod n]. The input is sorted before shuffling so the
// result only depends on the shuffler, not on the order the store returned.
func Build(ids []int64, rng Shuffler) (map[int64]int64, error) {
	if len(ids) < 2 {
		return nil, ErrTooFew
	}
	p := slices.Clone(ids)
	slices.Sort(p)
	p = slices.Compact(p)
	if len(p) != len(ids) {
		return nil, errors.New("pairing: duplicate participant ids")
	}
	if rng == nil {
		rand.Shuffle(len(p), func(i, j int) { p[i], p[j] = p[j], p[i] })
	} else {
		rng.Shuffle(len(p), func(i, j int) { p[i], p[j] = p[j], p[i] })
	}
	out := make(map[int64]int64, len(p))
	for i, id := range p {
		out[id] = p[(i+1)%len(p)]
	}
	return out, nil
}

// CycleLength follows the pairing from start until it returns, or reports 0 if
// it never does within len(pairing) steps.
func CycleLength(pairing map[int64]int64, start int64) int {
	cur := start
	for step := 1; step <= len(pairing); step++ {
		next, ok := pairing[cur]
		if !ok {
			return 0
		}
		if next == start {
			return step
		}
		cur = next
	}
	return 0
}

// IsSingleCycle reports whether pairing is one cycle through every key.
func IsSingleCycle(pairing map[int64]int64) bool {
	if len(pairing) < 2 {
		return false
	}
	for from, to := range pairing {
		if from == to {
			return false
		}
		return CycleLength(pairing, from) == len(pairing)
	}
	return false
}
