// Package constants provides named constants used throughout the hounds codebase.
// This centralizes magic numbers for better maintainability and documentation.
package constants

// Path and agent conventions
const (
	// CorrectPath is the index of the path that leads to the quarry.
	// Every dog's draw is measured against this index.
	CorrectPath = 0

	// MinPaths is the smallest fork that still has a wrong way to go.
	MinPaths = 2

	// MinAgents is the smallest hunting party.
	MinAgents = 1
)

// Simulation defaults
const (
	// DefaultTrials is the number of trials run when none is configured.
	DefaultTrials = 100000

	// DefaultPaths is the number of paths at the fork when none is configured.
	DefaultPaths = 2

	// DefaultWorkers runs trials on a single goroutine, the reference behavior.
	DefaultWorkers = 1

	// DefaultTolerance is the absolute difference in accuracy below which two
	// strategies are reported as equal.
	DefaultTolerance = 0.005

	// DefaultSigmas is the number of standard errors an observed rate may sit
	// from its exact value before it is flagged as off.
	DefaultSigmas = 4.0
)

// Limits
const (
	// MaxWorkers caps the parallel trial workers.
	MaxWorkers = 256

	// MaxMCPTrials caps the trial count a single MCP tool call may request.
	MaxMCPTrials = 1_000_000

	// MaxMCPAgents caps the hunting party size of a single MCP tool call.
	MaxMCPAgents = 64

	// MaxMCPPaths caps the number of paths at the fork for a single MCP tool call.
	MaxMCPPaths = 64

	// MaxHistoryList is the default number of runs shown by history listings.
	MaxHistoryList = 20
)

// DirName is the name of the hounds data directory, both under the project
// root and under the user's home directory.
const DirName = ".hounds"
