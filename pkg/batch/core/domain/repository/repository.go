// Package repository defines the persistence ports for the execution journal.
// The journal records what happened to each run and chunk; it is advisory and
// never drives control flow.
package repository

// ExecutionRepository is the interface for persisting run execution metadata.
// It embeds the per-aggregate interfaces to separate concerns.
type ExecutionRepository interface {
	RunExecution   // Embeds run-level journal operations (definition in run_execution.go)
	ChunkExecution // Embeds chunk-level journal operations (definition in chunk_execution.go)

	// Close releases resources (such as database connections) used by the repository.
	Close() error
}
