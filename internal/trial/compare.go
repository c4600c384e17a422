package trial

import "math"

// Verdict compares the accuracy of two strategies.
type Verdict struct {
	A         string  `json:"a"`
	B         string  `json:"b"`
	Diff      float64 `json:"diff"` // rate(A) - rate(B)
	Tolerance float64 `json:"tolerance"`
	Equal     bool    `json:"equal"`

	// Better names the more accurate strategy, or is empty when Equal.
	Better string `json:"better,omitempty"`
}

// Compare reports whether a and b differ in accuracy by more than the
// absolute tolerance.
func Compare(a, b StrategyResult, tolerance float64) Verdict {
	diff := a.Rate() - b.Rate()
	v := Verdict{
		A:         a.Name,
		B:         b.Name,
		Diff:      diff,
		Tolerance: tolerance,
		Equal:     math.Abs(diff) <= tolerance,
	}
	if !v.Equal {
		if diff > 0 {
			v.Better = a.Name
		} else {
			v.Better = b.Name
		}
	}
	return v
}
