// internal/solbc/types.go
package solbc

// SimulationResult is the distilled outcome of a transaction simulation.
type SimulationResult struct {
	Err           interface{}
	Logs          []string
	UnitsConsumed uint64
}
