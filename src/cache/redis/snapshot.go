package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"dex-datafeed/src/helpers"
	"dex-datafeed/src/logger"
	"dex-datafeed/src/models"

	"github.com/go-redis/redis/v8"
)

const (
	keyPrefix  = "datafeed:lastbar:"
	defaultTTL = 24 * time.Hour
)

// SnapshotSink keeps the newest bar per ticker/resolution in a redis hash.
type SnapshotSink struct {
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSnapshotSink(cfg models.MRedisConfig, log *logger.Logger) *SnapshotSink {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	return NewSnapshotSinkWithClient(client, time.Duration(cfg.TTLSeconds)*time.Second, log)
}

// -----------------------------------------------------------------------------

func NewSnapshotSinkWithClient(client *redis.Client, ttl time.Duration, log *logger.Logger) *SnapshotSink {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if log == nil {
		log = logger.NewLogger(nil, "RedisSnapshot")
	}
	return &SnapshotSink{client: client, ttl: ttl, logger: log}
}

// -----------------------------------------------------------------------------

func Key(ticker, resolution string) string {
	return keyPrefix + ticker + ":" + resolution
}

// -----------------------------------------------------------------------------

func (s *SnapshotSink) Name() string {
	return "redis"
}

// -----------------------------------------------------------------------------

// Ping checks connectivity.
func (s *SnapshotSink) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return helpers.NewStorageError("redis ping", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// snapshotScript writes the bar unless the stored one is newer, so an older
// history page never replaces a live bar.
var snapshotScript = redis.NewScript(`
local stored = redis.call('HGET', KEYS[1], 'time')
if stored and tonumber(stored) > tonumber(ARGV[1]) then
    return 0
end
redis.call('HSET', KEYS[1], 'time', ARGV[1], 'bar', ARGV[2], 'updated_at', ARGV[3])
redis.call('EXPIRE', KEYS[1], ARGV[4])
return 1
`)

// WriteBars stores the last bar of the batch when it is not older than the stored one.
func (s *SnapshotSink) WriteBars(ctx context.Context, ticker, resolution string, bars []models.MBar) error {
	if len(bars) == 0 {
		return nil
	}

	last := bars[len(bars)-1]
	payload, err := json.Marshal(last)
	if err != nil {
		return fmt.Errorf("encode bar: %w", err)
	}

	key := Key(ticker, resolution)
	ttl := int64(s.ttl / time.Second)
	if ttl < 1 {
		ttl = 1
	}

	written, err := snapshotScript.Run(ctx, s.client, []string{key}, last.Time, payload, time.Now().Unix(), ttl).Int()
	if err != nil {
		return helpers.NewStorageError(fmt.Sprintf("redis snapshot %s", key), err)
	}
	if written == 0 {
		s.logger.Debug("Kept newer snapshot for %s over bar %d", key, last.Time)
	}
	return nil
}

// -----------------------------------------------------------------------------

// LastBar returns the stored bar, or ok=false when none exists.
func (s *SnapshotSink) LastBar(ctx context.Context, ticker, resolution string) (models.MBar, bool, error) {
	raw, err := s.client.HGet(ctx, Key(ticker, resolution), "bar").Bytes()
	if err == redis.Nil {
		return models.MBar{}, false, nil
	}
	if err != nil {
		return models.MBar{}, false, helpers.NewStorageError("redis read", err)
	}

	var bar models.MBar
	if err := json.Unmarshal(raw, &bar); err != nil {
		return models.MBar{}, false, fmt.Errorf("decode bar: %w", err)
	}
	return bar, true, nil
}

// -----------------------------------------------------------------------------

func (s *SnapshotSink) Close() error {
	return s.client.Close()
}
