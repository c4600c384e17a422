// Package simulation provides a scenario test harness for validating the
// statistical behavior of the trial engine.
//
// The harness exercises the real Engine, the strategy registry, the exact
// analytic expectations, and the SQLite run store. No mocks. Scenarios
// describe a hunting party, a trial count, and a seed; the runner executes
// them one or more times and records each run, so assertions can compare
// observed rates with their exact values and with each other.
//
// Each test gets an isolated SQLite database via t.TempDir() and a sandboxed
// HOME to prevent touching user data.
//
// Usage:
//
//	func TestConsensusMatchesSingleOnTwoPaths(t *testing.T) {
//	    r := simulation.NewRunner(t)
//	    result := r.Run(simulation.Scenario{
//	        Name:   "equal-dogs",
//	        Config: simulation.EqualParty(2, 2, 0.7),
//	        Trials: 100000,
//	        Seed:   1,
//	    })
//	    simulation.AssertRateWithinSigma(t, result, "consensus", 5)
//	    simulation.AssertRatesEqual(t, result, "consensus", "single", 0.01)
//	}
package simulation
