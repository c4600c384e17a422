package strategy

import (
	"math/rand/v2"

	"github.com/nvandessel/hounds/internal/constants"
)

// Strategy names.
const (
	NameConsensus       = "consensus"
	NameSingle          = "single"
	NameBest            = "best"
	NameRandom          = "random"
	NameMajorityUniform = "majority-uniform"
)

// Consensus follows the dogs when a strict majority agrees. Otherwise it
// picks uniformly among the modal proposals: the paths that drew the most
// votes. With two dogs that is a coin flip between the two proposed paths.
type Consensus struct{}

func (Consensus) Name() string  { return NameConsensus }
func (Consensus) Title() string { return "Waldo's Strategy" }
func (Consensus) Description() string {
	return "Trust the dogs if they agree, and otherwise pick randomly among the paths they proposed."
}

func (Consensus) Decide(rng *rand.Rand, b Ballot) int {
	if path, ok := majority(b.Choices); ok {
		return path
	}
	candidates := modal(b.Choices)
	if len(candidates) == 1 {
		return candidates[0]
	}
	return candidates[rng.IntN(len(candidates))]
}

func (Consensus) SuccessProbability(b Ballot) float64 {
	if path, ok := majority(b.Choices); ok {
		return indicator(path)
	}
	candidates := modal(b.Choices)
	for _, p := range candidates {
		if p == constants.CorrectPath {
			return 1 / float64(len(candidates))
		}
	}
	return 0
}

// SingleAgent lets the first dog in the party decide.
type SingleAgent struct{}

func (SingleAgent) Name() string                        { return NameSingle }
func (SingleAgent) Title() string                       { return "Single Dog Strategy" }
func (SingleAgent) Description() string                 { return "Always trust the first dog in the party." }
func (SingleAgent) Decide(_ *rand.Rand, b Ballot) int   { return b.Choices[0] }
func (SingleAgent) SuccessProbability(b Ballot) float64 { return indicator(b.Choices[0]) }

// BestAgent lets the dog with the highest probability decide. When several
// dogs share the highest probability the last of them is followed.
type BestAgent struct{}

func (BestAgent) Name() string  { return NameBest }
func (BestAgent) Title() string { return "Best Dog Strategy" }
func (BestAgent) Description() string {
	return "Always trust the dog with the highest probability."
}

func (BestAgent) Decide(_ *rand.Rand, b Ballot) int {
	return b.Choices[bestIndex(b.Probabilities)]
}

func (BestAgent) SuccessProbability(b Ballot) float64 {
	return indicator(b.Choices[bestIndex(b.Probabilities)])
}

func bestIndex(probs []float64) int {
	best := 0
	for i, p := range probs {
		if p >= probs[best] {
			best = i
		}
	}
	return best
}

// Random ignores the dogs and picks any path uniformly.
type Random struct{}

func (Random) Name() string                        { return NameRandom }
func (Random) Title() string                       { return "Random Strategy" }
func (Random) Description() string                 { return "Always just pick a random path." }
func (Random) Decide(rng *rand.Rand, b Ballot) int { return rng.IntN(b.NumPaths) }
func (Random) SuccessProbability(b Ballot) float64 { return 1 / float64(b.NumPaths) }

// MajorityUniform follows a strict majority and otherwise picks uniformly
// among all paths at the fork, including paths no dog proposed.
type MajorityUniform struct{}

func (MajorityUniform) Name() string  { return NameMajorityUniform }
func (MajorityUniform) Title() string { return "Majority or Uniform Strategy" }
func (MajorityUniform) Description() string {
	return "Trust a strict majority of the dogs, and otherwise pick any path at random."
}

func (MajorityUniform) Decide(rng *rand.Rand, b Ballot) int {
	if path, ok := majority(b.Choices); ok {
		return path
	}
	return rng.IntN(b.NumPaths)
}

func (MajorityUniform) SuccessProbability(b Ballot) float64 {
	if path, ok := majority(b.Choices); ok {
		return indicator(path)
	}
	return 1 / float64(b.NumPaths)
}
