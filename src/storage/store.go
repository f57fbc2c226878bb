package storage

import (
	"trade-sync/src/helpers"
	"trade-sync/src/interfaces"
	"trade-sync/src/logger"
	"trade-sync/src/models"
)

// NewSessionStore builds the store selected by storage.db_type. The store
// still needs Initialize.
func NewSessionStore(cfg *models.MConfig, log *logger.Logger) (interfaces.ISessionStore, error) {
	switch cfg.Storage.DBType {
	case "sqlite":
		db, err := NewAsyncSQLiteDB(cfg, log)
		if err != nil {
			return nil, err
		}
		return db, nil
	case "postgres":
		db, err := NewPostgresDB(cfg, log)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, helpers.NewConfigurationError("unsupported db_type "+cfg.Storage.DBType, nil)
	}
}
