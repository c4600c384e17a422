// Package strategy defines the decision rules a hunter can use to pick a path
// from the choices of the dogs in the hunting party.
//
// Each rule is a Strategy. The trial engine applies every configured strategy
// to the same ballot of dog choices, so strategies can be compared trial by
// trial. New rules are added by implementing Strategy and listing them in the
// registry; the trial loop never changes.
package strategy

import (
	"math/rand/v2"

	"github.com/nvandessel/hounds/internal/constants"
)

// Ballot is the input to a decision rule: the path each dog chose in one
// trial, plus the read-only context the rule may consult.
type Ballot struct {
	// Choices holds one path index per dog, in party order.
	Choices []int

	// Probabilities holds each dog's probability of choosing the correct
	// path, aligned with Choices.
	Probabilities []float64

	// NumPaths is the number of paths at the fork.
	NumPaths int
}

// Strategy is a decision rule mapping a ballot to a single selected path.
type Strategy interface {
	// Name is the short identifier used on the command line and in storage.
	Name() string

	// Title is the human-readable heading used in reports.
	Title() string

	// Description explains the rule in one sentence.
	Description() string

	// Decide selects a path. Rules that need a tie-break draw from rng.
	Decide(rng *rand.Rand, b Ballot) int

	// SuccessProbability returns the exact probability that Decide selects
	// the correct path for this ballot, averaged over the rule's own
	// randomness. It is used for analytic expectations.
	SuccessProbability(b Ballot) float64
}

// tally counts the votes for each proposed path. Paths are returned in the
// order they were first proposed so that seeded tie-breaks are reproducible.
func tally(choices []int) (paths []int, counts []int) {
	paths = make([]int, 0, len(choices))
	counts = make([]int, 0, len(choices))
	for _, c := range choices {
		found := false
		for i, p := range paths {
			if p == c {
				counts[i]++
				found = true
				break
			}
		}
		if !found {
			paths = append(paths, c)
			counts = append(counts, 1)
		}
	}
	return paths, counts
}

// majority returns the path holding a strict majority of the votes, if any.
func majority(choices []int) (int, bool) {
	paths, counts := tally(choices)
	for i, c := range counts {
		if c*2 > len(choices) {
			return paths[i], true
		}
	}
	return 0, false
}

// modal returns the proposed paths that received the most votes.
func modal(choices []int) []int {
	paths, counts := tally(choices)
	top := 0
	for _, c := range counts {
		if c > top {
			top = c
		}
	}
	out := make([]int, 0, len(paths))
	for i, c := range counts {
		if c == top {
			out = append(out, paths[i])
		}
	}
	return out
}

// Unanimous reports whether every dog chose the same path.
func Unanimous(choices []int) bool {
	if len(choices) == 0 {
		return false
	}
	for _, c := range choices[1:] {
		if c != choices[0] {
			return false
		}
	}
	return true
}

func indicator(path int) float64 {
	if path == constants.CorrectPath {
		return 1
	}
	return 0
}
