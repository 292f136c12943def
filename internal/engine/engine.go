// Package engine defines the compute-engine boundary: a black-box SQL
// executor with tabular-source registration and auto-detecting CSV ingestion.
package engine

import "context"

// Row is a single result row keyed by column name.
type Row map[string]any

// Column describes one column of a table schema.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Engine is the analytical query engine consumed by the orchestrator and the
// query router. Implementations serialize their own statements; callers do
// not lock around individual calls.
type Engine interface {
	// Query executes SQL and returns all rows.
	Query(ctx context.Context, sql string) ([]Row, error)

	// Describe returns the schema of a table, failing if the table does not
	// exist.
	Describe(ctx context.Context, table string) ([]Column, error)

	// RegisterSource makes raw tabular content addressable under a virtual
	// source name for later ingestion.
	RegisterSource(name, content string)

	// CreateTableFromSource creates table from a registered CSV source,
	// inferring column types from the data.
	CreateTableFromSource(ctx context.Context, table, source string) error

	// Explain returns the engine's plan explanation for a query.
	Explain(ctx context.Context, sql string) (string, error)
}
