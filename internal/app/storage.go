package app

import (
	"context"
	"fmt"

	"app-groups-sync/internal/common/logging"
	"app-groups-sync/internal/warehouse"
	_ "app-groups-sync/internal/warehouse/bigquery"
	_ "app-groups-sync/internal/warehouse/postgres"
	_ "app-groups-sync/internal/warehouse/sqlite"
)

func (app *App) warehouseConfig() warehouse.Config {
	return warehouse.Config{
		ProjectID:       app.Config.BigQueryProjectID,
		Dataset:         app.Config.BigQueryDataset,
		Table:           app.Config.BigQueryTable,
		CredentialsFile: app.Config.BigQueryCredentialsFile,
		Endpoint:        app.Config.BigQueryEndpoint,
		PostgresURL:     app.Config.PostgresURL,
		SQLitePath:      app.Config.SQLitePath,
	}
}

func (app *App) initializeSink(ctx context.Context) error {
	cfg := app.warehouseConfig()

	sink, err := warehouse.Create(app.Config.WarehouseType, cfg, app.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize warehouse: %w", err)
	}

	if err := sink.Health(ctx); err != nil {
		// The sink may come up later; /health reports it until then.
		app.Logger.Warn("Warehouse not reachable at startup",
			logging.Field{Key: "warehouse", Value: sink.Name()},
			logging.Field{Key: "error", Value: err.Error()},
		)
	}

	app.Sink = sink
	app.Logger.Info("Warehouse: "+sink.Name(),
		logging.Field{Key: "table", Value: cfg.TableRef().String()},
	)
	return nil
}
