// Package bigquery appends records through the BigQuery v2 streaming insert API.
package bigquery

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	bq "google.golang.org/api/bigquery/v2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"app-groups-sync/internal/common/errors"
	"app-groups-sync/internal/common/logging"
	"app-groups-sync/internal/models"
	"app-groups-sync/internal/warehouse"
)

// SinkName is reported to webhook callers
const SinkName = "BigQuery"

type Sink struct {
	service *bq.Service
	table   warehouse.TableRef
	logger  logging.Logger
}

// NewSink creates a sink from config. An Endpoint override talks to that endpoint
// without credentials, which is how local emulators are reached.
func NewSink(ctx context.Context, config warehouse.Config, logger logging.Logger, opts ...option.ClientOption) (*Sink, error) {
	if config.ProjectID == "" {
		return nil, errors.ConfigError("bigquery project id is required")
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	clientOpts := make([]option.ClientOption, 0, len(opts)+2)
	if config.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(config.CredentialsFile))
	}
	if config.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(config.Endpoint), option.WithoutAuthentication())
	}
	clientOpts = append(clientOpts, opts...)

	service, err := bq.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, errors.ConnectionError("failed to create bigquery client", err)
	}

	return &Sink{
		service: service,
		table:   config.TableRef(),
		logger:  logger.WithFields(logging.Field{Key: "component", Value: "warehouse"}, logging.Field{Key: "sink", Value: SinkName}),
	}, nil
}

func (s *Sink) Name() string {
	return SinkName
}

// Append resolves the table, then streams the whole batch in one insertAll call.
// Each row carries a fresh insertId so BigQuery can drop duplicates of a retried call.
func (s *Sink) Append(ctx context.Context, table warehouse.TableRef, batch models.Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	if table.Project == "" {
		table.Project = s.table.Project
	}

	if _, err := s.service.Tables.Get(table.Project, table.Dataset, table.Table).Context(ctx).Do(); err != nil {
		if isNotFound(err) {
			return errors.PersistenceError(fmt.Sprintf("table %s not found", table), err)
		}
		return errors.PersistenceError(fmt.Sprintf("failed to resolve table %s", table), err)
	}

	rows := make([]*bq.TableDataInsertAllRequestRows, 0, batch.Len())
	for _, record := range batch {
		values := record.Map()
		jsonRow := make(map[string]bq.JsonValue, len(values))
		for column, value := range values {
			jsonRow[column] = value
		}
		rows = append(rows, &bq.TableDataInsertAllRequestRows{
			InsertId: uuid.NewString(),
			Json:     jsonRow,
		})
	}

	resp, err := s.service.Tabledata.InsertAll(table.Project, table.Dataset, table.Table, &bq.TableDataInsertAllRequest{
		Rows: rows,
	}).Context(ctx).Do()
	if err != nil {
		return errors.PersistenceError(fmt.Sprintf("insertAll into %s failed", table), err)
	}

	if len(resp.InsertErrors) > 0 {
		rowErrs := &warehouse.RowErrors{Table: table}
		for _, insertErr := range resp.InsertErrors {
			for _, proto := range insertErr.Errors {
				rowErrs.Errors = append(rowErrs.Errors, warehouse.RowError{
					Index:    int(insertErr.Index),
					Reason:   proto.Reason,
					Message:  proto.Message,
					Location: proto.Location,
				})
			}
		}
		s.logger.WithContext(ctx).Warn("BigQuery rejected rows",
			logging.Field{Key: "table", Value: table.String()},
			logging.Field{Key: "rejected", Value: len(rowErrs.Errors)},
			logging.Field{Key: "rows", Value: batch.Len()},
		)
		return rowErrs
	}

	s.logger.WithContext(ctx).Debug("Rows appended",
		logging.Field{Key: "table", Value: table.String()},
		logging.Field{Key: "rows", Value: batch.Len()},
	)
	return nil
}

// Health checks that the configured dataset is reachable
func (s *Sink) Health(ctx context.Context) error {
	_, err := s.service.Datasets.Get(s.table.Project, s.table.Dataset).Context(ctx).Do()
	return err
}

func (s *Sink) Close() error {
	return nil
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return stderrors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}

var _ warehouse.Sink = (*Sink)(nil)
