package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dex-datafeed/src/logger"
	"dex-datafeed/src/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config *models.MConfig
	DB     *sqlx.DB
	Schema string
	Logger *logger.Logger
	store  *barStore
}

// -----------------------------------------------------------------------------

// NewPostgresDB stores bars in a schema named after the executable.
func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	if cfg.Storage.DBConnectionString == "" {
		return nil, fmt.Errorf("postgres: empty db_connection_string")
	}

	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable name: %w", err)
	}
	name := filepath.Base(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	if log == nil {
		log = logger.NewLogger(cfg, "Postgres")
	}

	return &PostgresDB{
		Config: cfg,
		Schema: sanitizeIdentifier(name),
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Name() string {
	return "postgres"
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	db, err := sqlx.Open("postgres", d.Config.Storage.DBConnectionString)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}

	if _, err := db.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		db.Close()
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	d.store = &barStore{
		db:            db,
		table:         fmt.Sprintf(`"%s"."bars"`, d.Schema),
		retentionDays: d.Config.Storage.RetentionDays,
		logger:        d.Logger,
		now:           time.Now,
	}
	if err := d.store.createTable(context.Background()); err != nil {
		db.Close()
		d.store = nil
		return err
	}
	d.DB = db

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) WriteBars(ctx context.Context, ticker, resolution string, bars []models.MBar) error {
	return d.store.writeBars(ctx, ticker, resolution, bars)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) GetBars(ctx context.Context, ticker, resolution string, fromMs, toMs int64) ([]models.MBar, error) {
	return d.store.getBars(ctx, ticker, resolution, fromMs, toMs)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) CleanupOldData() error {
	_, err := d.store.cleanup()
	return err
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------

// sanitizeIdentifier keeps letters, digits and underscores.
func sanitizeIdentifier(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "datafeed"
	}
	return b.String()
}
