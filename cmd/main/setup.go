package main

import (
	"context"
	"time"

	"dex-datafeed/src/cache/redis"
	"dex-datafeed/src/data_source/bitquery"
	"dex-datafeed/src/data_source/pancakeswap"
	"dex-datafeed/src/interfaces"
	"dex-datafeed/src/logger"
	"dex-datafeed/src/models"
	"dex-datafeed/src/network"
	"dex-datafeed/src/publisher/kafka"
	"dex-datafeed/src/storage"
)

// -----------------------------------------------------------------------------

// setupNetwork initializes the network manager
func setupNetwork(config *models.MConfig) interfaces.INetworkManager {
	networkLogger := logger.NewLogger(config, "NetworkManager")
	return network.NewAsyncNetworkManager(config, networkLogger)
}

// -----------------------------------------------------------------------------

// setupSources builds the quote source (history, symbol info, reference rate)
// and the stream source (latest swap) on a shared network manager.
func setupSources(config *models.MConfig, networkManager interfaces.INetworkManager) (interfaces.IQuoteSource, interfaces.IStreamSource) {
	quotes := bitquery.NewBitquerySource(config.QuoteSource, networkManager, logger.NewLogger(config, "BitquerySource"))

	referenceAsset := config.QuoteSource.ReferenceAsset
	stream := pancakeswap.NewPancakeSwapSource(config.StreamSource, referenceAsset, networkManager, logger.NewLogger(config, "PancakeSwapSource"))

	return quotes, stream
}

// -----------------------------------------------------------------------------

// setupSinks opens every enabled bar sink. A sink that fails to start is
// logged and skipped. The archive is also returned for retention and reads.
func setupSinks(config *models.MConfig, appLogger *logger.Logger) ([]interfaces.IBarSink, interfaces.IBarArchive) {
	var sinks []interfaces.IBarSink
	var archive interfaces.IBarArchive

	if config.Storage.Enabled {
		db, err := storage.NewArchive(config, logger.NewLogger(config, "BarArchive"))
		if err != nil {
			appLogger.Error("Failed to init bar archive: %v", err)
		} else {
			archive = db
			sinks = append(sinks, db)
			appLogger.Info("Bar archive enabled (%s)", db.Name())
		}
	}

	if config.Redis.Enabled {
		snap := redis.NewSnapshotSink(config.Redis, logger.NewLogger(config, "RedisSnapshot"))
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := snap.Ping(ctx)
		cancel()
		if err != nil {
			appLogger.Error("Redis unavailable at %s: %v", config.Redis.Addr, err)
			snap.Close()
		} else {
			sinks = append(sinks, snap)
			appLogger.Info("Redis snapshot sink enabled (%s)", config.Redis.Addr)
		}
	}

	if config.Kafka.Enabled {
		pub, err := kafka.NewBarPublisher(config.Kafka, logger.NewLogger(config, "KafkaPublisher"))
		if err != nil {
			appLogger.Error("Failed to init kafka publisher: %v", err)
		} else {
			sinks = append(sinks, pub)
			appLogger.Info("Kafka publisher enabled (%v)", config.Kafka.Brokers)
		}
	}

	return sinks, archive
}

// -----------------------------------------------------------------------------

// runCleanup applies archive retention until ctx is done.
func runCleanup(ctx context.Context, archive interfaces.IBarArchive, every time.Duration, appLogger *logger.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		if err := archive.CleanupOldData(); err != nil {
			appLogger.Error("Archive cleanup failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
