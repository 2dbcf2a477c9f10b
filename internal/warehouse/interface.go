// Package warehouse defines the destination of flattened app-group records and
// the registry its backends plug into.
//
// Backends register themselves from init, so the binary selects the ones it
// links with blank imports:
//
//	import _ "app-groups-sync/internal/warehouse/bigquery"
//
//	sink, err := warehouse.Create("bigquery", warehouse.Config{...}, logger)
package warehouse

import (
	"context"
	"fmt"
	"strings"

	"app-groups-sync/internal/models"
)

// Sink appends batches to a table. Implementations are safe for concurrent use.
type Sink interface {
	// Name is the human-readable backend name used in responses, e.g. "BigQuery"
	Name() string
	// Append writes every record of batch to table in one insert call. An empty
	// batch returns nil without touching the backend. Rejected rows are reported
	// as *RowErrors; nothing is retried.
	Append(ctx context.Context, table TableRef, batch models.Batch) error
	Health(ctx context.Context) error
	Close() error
}

// TableRef locates a destination table. Backends without a project or dataset
// concept ignore those coordinates.
type TableRef struct {
	Project string `json:"project"`
	Dataset string `json:"dataset"`
	Table   string `json:"table"`
}

func (t TableRef) String() string {
	parts := make([]string, 0, 3)
	for _, part := range []string{t.Project, t.Dataset, t.Table} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ".")
}

// RowError describes one rejected row. Index is the row's position in the
// batch, or -1 when the backend rejected the batch without naming a row.
type RowError struct {
	Index    int    `json:"index"`
	Reason   string `json:"reason"`
	Message  string `json:"message"`
	Location string `json:"location,omitempty"`
}

// RowErrors aggregates every row error reported by one insert call.
type RowErrors struct {
	Table  TableRef
	Errors []RowError
}

func (e *RowErrors) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("insert into %s reported row errors", e.Table)
	}

	first := e.Errors[0]
	msg := fmt.Sprintf("insert into %s rejected %d row(s); first at index %d: %s: %s",
		e.Table, len(e.Errors), first.Index, first.Reason, first.Message)
	if first.Location != "" {
		msg += fmt.Sprintf(" (%s)", first.Location)
	}
	return msg
}
