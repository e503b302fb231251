// Package tabular abstracts the named, header-addressed tables the pipeline
// reads from and the operator ingest surface writes to. Any storage that can
// hold ordered rows under a fixed header can implement it.
package tabular

import (
	"context"
	"errors"
)

// ErrTableNotFound reports that a required source table does not exist.
var ErrTableNotFound = errors.New("source table not found")

// Table is one named tabular source: a header row plus ordered data rows.
// A row may be shorter than the header; missing cells read as empty.
type Table struct {
	Name    string     `json:"name"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

type Source interface {
	ReadAll(ctx context.Context, name string) (*Table, error)
}

type Sink interface {
	// EnsureSchema creates the table with the given header if it does not
	// exist. An existing table keeps its header untouched.
	EnsureSchema(ctx context.Context, name string, headers []string) error
	AppendRows(ctx context.Context, name string, rows [][]string) error
	// DeleteRows removes the rows at the given positions in one batched
	// operation.
	DeleteRows(ctx context.Context, name string, positions []int) error
}
