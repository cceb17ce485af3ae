package storage

import (
	"context"
	"fmt"
	"time"

	"dex-datafeed/src/helpers"
	"dex-datafeed/src/logger"
	"dex-datafeed/src/models"

	"github.com/jmoiron/sqlx"
)

const defaultRetentionDays = 30

// barRow is the bars table layout.
type barRow struct {
	Ticker     string  `db:"ticker"`
	Resolution string  `db:"resolution"`
	BarTime    int64   `db:"bar_time"`
	Open       float64 `db:"open"`
	High       float64 `db:"high"`
	Low        float64 `db:"low"`
	Close      float64 `db:"close"`
	Volume     float64 `db:"volume"`
}

func (r barRow) toBar() models.MBar {
	return models.MBar{Time: r.BarTime, Open: r.Open, High: r.High, Low: r.Low, Close: r.Close, Volume: r.Volume}
}

// -----------------------------------------------------------------------------

// barStore holds the driver-independent bar queries. Queries are written with
// '?' placeholders and rebound for the driver.
type barStore struct {
	db            *sqlx.DB
	table         string
	retentionDays int
	logger        *logger.Logger
	now           func() time.Time
}

// -----------------------------------------------------------------------------

func (s *barStore) createTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			ticker TEXT NOT NULL,
			resolution TEXT NOT NULL,
			bar_time BIGINT NOT NULL,
			open DOUBLE PRECISION,
			high DOUBLE PRECISION,
			low DOUBLE PRECISION,
			close DOUBLE PRECISION,
			volume DOUBLE PRECISION,
			PRIMARY KEY (ticker, resolution, bar_time)
		);
	`, s.table)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return helpers.NewStorageError(fmt.Sprintf("failed to create %s", s.table), err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// writeBars upserts bars in one transaction. A live update rewrites its bucket.
func (s *barStore) writeBars(ctx context.Context, ticker, resolution string, bars []models.MBar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return helpers.NewStorageError("begin", err)
	}
	defer tx.Rollback()

	query := s.db.Rebind(fmt.Sprintf(`
		INSERT INTO %s (ticker, resolution, bar_time, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (ticker, resolution, bar_time) DO UPDATE SET
			open = excluded.open,
			high = excluded.high,
			low = excluded.low,
			close = excluded.close,
			volume = excluded.volume
	`, s.table))

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return helpers.NewStorageError("prepare upsert", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, ticker, resolution, b.Time, b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return helpers.NewStorageError(fmt.Sprintf("upsert %s@%d", ticker, b.Time), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return helpers.NewStorageError("commit", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *barStore) getBars(ctx context.Context, ticker, resolution string, fromMs, toMs int64) ([]models.MBar, error) {
	query := s.db.Rebind(fmt.Sprintf(`
		SELECT ticker, resolution, bar_time, open, high, low, close, volume
		FROM %s
		WHERE ticker = ? AND resolution = ? AND bar_time >= ? AND bar_time <= ?
		ORDER BY bar_time ASC
	`, s.table))

	var rows []barRow
	if err := s.db.SelectContext(ctx, &rows, query, ticker, resolution, fromMs, toMs); err != nil {
		return nil, helpers.NewStorageError(fmt.Sprintf("select %s/%s", ticker, resolution), err)
	}

	bars := make([]models.MBar, 0, len(rows))
	for _, r := range rows {
		bars = append(bars, r.toBar())
	}
	return bars, nil
}

// -----------------------------------------------------------------------------

func (s *barStore) cleanup() (int64, error) {
	days := s.retentionDays
	if days <= 0 {
		days = defaultRetentionDays
	}
	cutoff := s.now().UTC().AddDate(0, 0, -days).UnixMilli()

	res, err := s.db.Exec(s.db.Rebind(fmt.Sprintf("DELETE FROM %s WHERE bar_time < ?", s.table)), cutoff)
	if err != nil {
		return 0, helpers.NewStorageError(fmt.Sprintf("cleanup %s", s.table), err)
	}
	n, _ := res.RowsAffected()
	s.logger.Info("Cleanup removed %d bars older than %d days", n, days)
	return n, nil
}
