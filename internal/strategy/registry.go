package strategy

import (
	"fmt"
	"strings"
)

var registry = []Strategy{
	Consensus{},
	SingleAgent{},
	BestAgent{},
	Random{},
	MajorityUniform{},
}

// All returns every registered strategy in display order.
func All() []Strategy {
	out := make([]Strategy, len(registry))
	copy(out, registry)
	return out
}

// Default returns the two strategies the simulator exists to compare.
func Default() []Strategy {
	return []Strategy{Consensus{}, SingleAgent{}}
}

// Names returns the names of all registered strategies.
func Names() []string {
	names := make([]string, len(registry))
	for i, s := range registry {
		names[i] = s.Name()
	}
	return names
}

// Lookup returns the strategy registered under name.
func Lookup(name string) (Strategy, error) {
	for _, s := range registry {
		if s.Name() == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("unknown strategy: %s (valid: %s)", name, strings.Join(Names(), ", "))
}

// ParseList resolves a list of strategy names, dropping duplicates and
// blanks. An empty list yields Default().
func ParseList(names []string) ([]Strategy, error) {
	seen := make(map[string]bool, len(names))
	var out []Strategy
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		s, err := Lookup(n)
		if err != nil {
			return nil, err
		}
		seen[n] = true
		out = append(out, s)
	}
	if len(out) == 0 {
		return Default(), nil
	}
	return out, nil
}
