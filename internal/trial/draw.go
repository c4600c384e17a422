package trial

import (
	"math/rand/v2"

	"github.com/nvandessel/hounds/internal/constants"
)

// DrawAgentChoice draws the path a single dog picks. With the given
// probability it returns CorrectPath; otherwise it returns one of the
// numPaths-1 incorrect paths uniformly at random.
func DrawAgentChoice(rng *rand.Rand, probability float64, numPaths int) (int, error) {
	if !validProbability(probability) {
		return 0, invalid("probability", "must be in (0, 1], got %v", probability)
	}
	if numPaths < constants.MinPaths {
		return 0, invalid("num_paths", "must be at least %d, got %d", constants.MinPaths, numPaths)
	}
	return drawChoice(rng, probability, numPaths), nil
}

// drawChoice is DrawAgentChoice without validation, for the trial loop.
// Incorrect paths are the indices 1..numPaths-1.
func drawChoice(rng *rand.Rand, probability float64, numPaths int) int {
	if rng.Float64() < probability {
		return CorrectPath
	}
	return CorrectPath + 1 + rng.IntN(numPaths-1)
}
