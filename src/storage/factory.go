package storage

import (
	"fmt"

	"dashboard-observer/src/interfaces"
	"dashboard-observer/src/logger"
	"dashboard-observer/src/models"
)

// New returns the configured backend, or nil for db_type "none".
func New(cfg *models.MConfig, log *logger.Logger) (interfaces.IDatabase, error) {
	switch cfg.Storage.DBType {
	case "sqlite", "":
		return NewAsyncSQLiteDB(cfg, log)
	case "postgres":
		return NewPostgresDB(cfg, log)
	case "none":
		return nil, nil
	}
	return nil, fmt.Errorf("unsupported db_type %q", cfg.Storage.DBType)
}
