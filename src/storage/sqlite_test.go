package storage

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"dex-datafeed/src/helpers"
	"dex-datafeed/src/logger"
	"dex-datafeed/src/models"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *AsyncSQLiteDB {
	t.Helper()
	cfg := &models.MConfig{
		LogLevel: "ERROR",
		Storage: models.MStorageConfig{
			Enabled:       true,
			DBType:        "sqlite",
			DBPath:        filepath.Join(t.TempDir(), "bars.db"),
			RetentionDays: 7,
		},
	}
	db, err := NewAsyncSQLiteDB(cfg, logger.NewLoggerWithWriter(cfg, "SQLite", io.Discard))
	require.NoError(t, err)
	require.NoError(t, db.Initialize())
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteWriteAndGetBars(t *testing.T) {
	db := newTestSQLite(t)
	ctx := context.Background()

	bars := []models.MBar{
		{Time: 60000, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
		{Time: 120000, Open: 1.5, High: 3, Low: 1, Close: 2.5, Volume: 20},
		{Time: 180000, Open: 2.5, High: 2.5, Low: 2, Close: 2, Volume: 5},
	}
	require.NoError(t, db.WriteBars(ctx, "0xcake", "1", bars))

	got, err := db.GetBars(ctx, "0xcake", "1", 60000, 120000)
	require.NoError(t, err)
	assert.Equal(t, bars[:2], got)

	other, err := db.GetBars(ctx, "0xcake", "5", 0, 1<<40)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSQLiteUpsertRewritesBucket(t *testing.T) {
	db := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, db.WriteBars(ctx, "0xcake", "60", []models.MBar{{Time: 3600000, Open: 1, High: 1, Low: 1, Close: 1}}))
	require.NoError(t, db.WriteBars(ctx, "0xcake", "60", []models.MBar{{Time: 3600000, Open: 1, High: 4, Low: 0.5, Close: 3}}))

	got, err := db.GetBars(ctx, "0xcake", "60", 0, 1<<40)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 4.0, got[0].High)
	assert.Equal(t, 3.0, got[0].Close)
}

func TestSQLiteCleanupOldData(t *testing.T) {
	db := newTestSQLite(t)
	ctx := context.Background()

	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	db.store.now = func() time.Time { return now }

	old := now.AddDate(0, 0, -30).UnixMilli()
	recent := now.AddDate(0, 0, -1).UnixMilli()
	require.NoError(t, db.WriteBars(ctx, "0xcake", "1D", []models.MBar{
		{Time: old, Open: 1, High: 1, Low: 1, Close: 1},
		{Time: recent, Open: 2, High: 2, Low: 2, Close: 2},
	}))

	require.NoError(t, db.CleanupOldData())

	got, err := db.GetBars(ctx, "0xcake", "1D", 0, now.UnixMilli())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, recent, got[0].Time)
}

func TestSQLiteEmptyWriteIsNoop(t *testing.T) {
	db := newTestSQLite(t)
	assert.NoError(t, db.WriteBars(context.Background(), "0xcake", "1", nil))
}

func TestNewArchiveRejectsUnknownType(t *testing.T) {
	_, err := NewArchive(&models.MConfig{Storage: models.MStorageConfig{DBType: "mongo"}}, nil)
	assert.Error(t, err)
}

func TestNewArchiveSQLite(t *testing.T) {
	cfg := &models.MConfig{LogLevel: "ERROR", Storage: models.MStorageConfig{DBType: "sqlite", DBPath: filepath.Join(t.TempDir(), "a.db")}}
	db, err := NewArchive(cfg, logger.NewLoggerWithWriter(cfg, "SQLite", io.Discard))
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, "sqlite", db.Name())
}

func TestPostgresRequiresConnectionString(t *testing.T) {
	_, err := NewPostgresDB(&models.MConfig{}, nil)
	assert.Error(t, err)
}

func TestSanitizeIdentifier(t *testing.T) {
	assert.Equal(t, "dex_datafeed", sanitizeIdentifier("dex-datafeed"))
	assert.Equal(t, "main", sanitizeIdentifier("Main"))
	assert.Equal(t, "datafeed", sanitizeIdentifier(""))
}

func TestStorageErrorsAreTyped(t *testing.T) {
	db := newTestSQLite(t)
	require.NoError(t, db.Close())

	err := db.WriteBars(context.Background(), "0xcake", "1", []models.MBar{{Time: 1}})
	require.Error(t, err)
	var se *helpers.StorageError
	assert.ErrorAs(t, err, &se)
}

func TestSQLiteInitializeFailureReleasesDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bars.db")

	// an index named bars blocks CREATE TABLE bars even with IF NOT EXISTS
	seed, err := sqlx.Open("sqlite", path)
	require.NoError(t, err)
	_, err = seed.Exec(`CREATE TABLE other (x INTEGER); CREATE INDEX bars ON other (x);`)
	require.NoError(t, err)
	require.NoError(t, seed.Close())

	cfg := &models.MConfig{
		LogLevel: "ERROR",
		Storage:  models.MStorageConfig{Enabled: true, DBType: "sqlite", DBPath: path, RetentionDays: 7},
	}
	db, err := NewAsyncSQLiteDB(cfg, logger.NewLoggerWithWriter(cfg, "SQLite", io.Discard))
	require.NoError(t, err)

	err = db.Initialize()
	require.Error(t, err)
	assert.True(t, helpers.IsStorage(err))
	assert.Nil(t, db.DB)
	assert.NoError(t, db.Close())

	archive, err := NewArchive(cfg, logger.NewLoggerWithWriter(cfg, "SQLite", io.Discard))
	assert.Error(t, err)
	assert.Nil(t, archive)
}
