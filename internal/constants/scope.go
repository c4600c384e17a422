package constants

// Scope selects which run history a command reads and writes.
type Scope string

const (
	// ScopeLocal keeps run history under the project root
	ScopeLocal Scope = "local"

	// ScopeGlobal keeps run history under the user's home directory
	ScopeGlobal Scope = "global"
)

// Valid returns true if the scope is a recognized value.
func (s Scope) Valid() bool {
	switch s {
	case ScopeLocal, ScopeGlobal:
		return true
	}
	return false
}

// String returns the string representation of the scope.
func (s Scope) String() string {
	return string(s)
}
