// Package postgres appends records to a PostgreSQL table with COPY.
// The dataset coordinate is the schema; the project coordinate is ignored.
package postgres

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"app-groups-sync/internal/common/errors"
	"app-groups-sync/internal/common/logging"
	"app-groups-sync/internal/models"
	"app-groups-sync/internal/warehouse"
)

const SinkName = "PostgreSQL"

const healthTimeout = 5 * time.Second

type Sink struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewSink builds a connection pool. Connections are opened on first use, so an
// unreachable server is reported by Health rather than failing startup.
func NewSink(ctx context.Context, config warehouse.Config, logger logging.Logger) (*Sink, error) {
	if config.PostgresURL == "" {
		return nil, errors.ConfigError("postgres url is required")
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	poolConfig, err := pgxpool.ParseConfig(config.PostgresURL)
	if err != nil {
		return nil, errors.ConfigError(fmt.Sprintf("invalid postgres url: %v", err))
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.ConnectionError("failed to create postgres pool", err)
	}

	return &Sink{
		pool:   pool,
		logger: logger.WithFields(logging.Field{Key: "component", Value: "warehouse"}, logging.Field{Key: "sink", Value: SinkName}),
	}, nil
}

func (s *Sink) Name() string {
	return SinkName
}

// Append copies the whole batch in one COPY statement; the server accepts all rows or none.
func (s *Sink) Append(ctx context.Context, table warehouse.TableRef, batch models.Batch) error {
	if batch.Len() == 0 {
		return nil
	}

	rows := make([][]interface{}, 0, batch.Len())
	for _, record := range batch {
		rows = append(rows, record.Values())
	}

	copied, err := s.pool.CopyFrom(ctx, identifier(table), models.FlatRecordColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return classifyError(table, err)
	}
	if int(copied) != batch.Len() {
		return errors.PersistenceError(fmt.Sprintf("copied %d of %d rows into %s", copied, batch.Len(), table), nil)
	}

	s.logger.WithContext(ctx).Debug("Rows appended",
		logging.Field{Key: "table", Value: table.String()},
		logging.Field{Key: "rows", Value: batch.Len()},
	)
	return nil
}

// Health pings the server, bounded by healthTimeout when ctx has no earlier deadline.
func (s *Sink) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	if err := s.pool.Ping(ctx); err != nil {
		return errors.ConnectionError("failed to ping postgres", err)
	}
	return nil
}

func (s *Sink) Close() error {
	s.pool.Close()
	return nil
}

// identifier maps dataset to schema; an empty dataset uses the search_path.
func identifier(table warehouse.TableRef) pgx.Identifier {
	if table.Dataset == "" {
		return pgx.Identifier{table.Table}
	}
	return pgx.Identifier{table.Dataset, table.Table}
}

// classifyError reports data errors raised by the server as row errors and
// everything else as a persistence failure. COPY does not name the offending
// row in a structured field, so the row index is unknown.
func classifyError(table warehouse.TableRef, err error) error {
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) && isDataError(pgErr.Code) {
		location := pgErr.ColumnName
		if location == "" {
			location = pgErr.Where
		}
		return &warehouse.RowErrors{
			Table: table,
			Errors: []warehouse.RowError{{
				Index:    -1,
				Reason:   pgErr.Code,
				Message:  pgErr.Message,
				Location: location,
			}},
		}
	}
	return errors.PersistenceError(fmt.Sprintf("copy into %s failed", table), err)
}

// isDataError matches SQLSTATE classes 22 (data exception) and 23 (integrity
// constraint violation).
func isDataError(code string) bool {
	return len(code) == 5 && (code[:2] == "22" || code[:2] == "23")
}

var _ warehouse.Sink = (*Sink)(nil)
