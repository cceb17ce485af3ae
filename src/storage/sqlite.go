package storage

import (
	"context"
	"fmt"
	"time"

	"dex-datafeed/src/logger"
	"dex-datafeed/src/models"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// -----------------------------------------------------------------------------

type AsyncSQLiteDB struct {
	Config *models.MConfig
	DB     *sqlx.DB
	Logger *logger.Logger
	store  *barStore
}

// -----------------------------------------------------------------------------

func NewAsyncSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*AsyncSQLiteDB, error) {
	if cfg.Storage.DBPath == "" {
		return nil, fmt.Errorf("sqlite: empty db_path")
	}
	if log == nil {
		log = logger.NewLogger(cfg, "SQLite")
	}
	return &AsyncSQLiteDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Name() string {
	return "sqlite"
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Initialize() error {
	db, err := sqlx.Open("sqlite", d.Config.Storage.DBPath)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}

	// single writer
	db.SetMaxOpenConns(1)
	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	d.store = &barStore{
		db:            db,
		table:         "bars",
		retentionDays: d.Config.Storage.RetentionDays,
		logger:        d.Logger,
		now:           time.Now,
	}
	if err := d.store.createTable(context.Background()); err != nil {
		db.Close()
		d.DB, d.store = nil, nil
		return err
	}

	d.Logger.Info("SQLite archive ready at %s", d.Config.Storage.DBPath)
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) WriteBars(ctx context.Context, ticker, resolution string, bars []models.MBar) error {
	return d.store.writeBars(ctx, ticker, resolution, bars)
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) GetBars(ctx context.Context, ticker, resolution string, fromMs, toMs int64) ([]models.MBar, error) {
	return d.store.getBars(ctx, ticker, resolution, fromMs, toMs)
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) CleanupOldData() error {
	_, err := d.store.cleanup()
	return err
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
