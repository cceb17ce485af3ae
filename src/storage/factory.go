package storage

import (
	"fmt"

	"dex-datafeed/src/interfaces"
	"dex-datafeed/src/logger"
	"dex-datafeed/src/models"
)

// NewArchive builds and initializes the archive selected by storage.db_type.
func NewArchive(cfg *models.MConfig, log *logger.Logger) (interfaces.IBarArchive, error) {
	var (
		db  interfaces.IBarArchive
		err error
	)

	switch cfg.Storage.DBType {
	case "postgres":
		db, err = NewPostgresDB(cfg, log)
	case "sqlite", "":
		db, err = NewAsyncSQLiteDB(cfg, log)
	default:
		return nil, fmt.Errorf("unsupported db_type %q", cfg.Storage.DBType)
	}
	if err != nil {
		return nil, err
	}

	if err := db.Initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize %s: %w", db.Name(), err)
	}
	return db, nil
}
