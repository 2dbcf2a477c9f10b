// Package sqlite appends records to a local SQLite table, for development
// without a warehouse. Project and dataset coordinates are ignored.
package sqlite

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"app-groups-sync/internal/common/errors"
	"app-groups-sync/internal/common/logging"
	"app-groups-sync/internal/models"
	"app-groups-sync/internal/warehouse"
)

const SinkName = "SQLite"

type Sink struct {
	db     *sql.DB
	logger logging.Logger
}

func NewSink(ctx context.Context, config warehouse.Config, logger logging.Logger) (*Sink, error) {
	if config.SQLitePath == "" {
		return nil, errors.ConfigError("sqlite path is required")
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	db, err := sql.Open("sqlite3", config.SQLitePath)
	if err != nil {
		return nil, errors.ConnectionError("failed to open sqlite database", err)
	}
	// A single connection serialises writers and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.ConnectionError("failed to ping sqlite database", err)
	}

	return &Sink{
		db:     db,
		logger: logger.WithFields(logging.Field{Key: "component", Value: "warehouse"}, logging.Field{Key: "sink", Value: SinkName}),
	}, nil
}

func (s *Sink) Name() string {
	return SinkName
}

// maxRowsPerStatement keeps one INSERT under SQLite's default limit of 32766
// bound parameters.
var maxRowsPerStatement = 32766 / len(models.FlatRecordColumns)

// Append writes the batch with one multi-row INSERT inside a transaction. Batches
// larger than maxRowsPerStatement are split across statements in the same
// transaction. A rejected row rolls back the whole batch.
func (s *Sink) Append(ctx context.Context, table warehouse.TableRef, batch models.Batch) (err error) {
	if batch.Len() == 0 {
		return nil
	}
	logger := s.logger.WithContext(ctx).WithFields(logging.Field{Key: "table", Value: table.Table})

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.PersistenceError("failed to begin transaction", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !stderrors.Is(rbErr, sql.ErrTxDone) {
			logger.Error("Failed to roll back insert", rbErr)
		}
	}()

	for start := 0; start < batch.Len(); start += maxRowsPerStatement {
		end := min(start+maxRowsPerStatement, batch.Len())
		chunk := batch[start:end]

		args := make([]interface{}, 0, len(chunk)*len(models.FlatRecordColumns))
		for _, record := range chunk {
			args = append(args, record.Values()...)
		}
		if _, err = tx.ExecContext(ctx, insertStatement(table.Table, len(chunk)), args...); err != nil {
			return rowError(table, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.PersistenceError("failed to commit insert", err)
	}

	logger.Debug("Rows appended", logging.Field{Key: "rows", Value: batch.Len()})
	return nil
}

func (s *Sink) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Sink) Close() error {
	return s.db.Close()
}

// insertStatement builds INSERT INTO "t" (cols) VALUES (?, ...), (?, ...) for rows rows.
func insertStatement(table string, rows int) string {
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(models.FlatRecordColumns)), ", ") + ")"
	tuples := strings.TrimSuffix(strings.Repeat(tuple+", ", rows), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		quoteIdentifier(table), strings.Join(models.FlatRecordColumns, ", "), tuples)
}

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// rowError reports constraint violations as row errors; any other failure means
// the store itself is unusable. A multi-row INSERT does not say which row was
// rejected, so the index is -1.
func rowError(table warehouse.TableRef, err error) error {
	var sqliteErr sqlite3.Error
	if stderrors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return &warehouse.RowErrors{
			Table: table,
			Errors: []warehouse.RowError{{
				Index:   -1,
				Reason:  sqliteErr.ExtendedCode.Error(),
				Message: sqliteErr.Error(),
			}},
		}
	}
	return errors.PersistenceError(fmt.Sprintf("insert into %s failed", table.Table), err)
}

var _ warehouse.Sink = (*Sink)(nil)
