package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dex-datafeed/src/config"
	"dex-datafeed/src/datafeed"
	"dex-datafeed/src/logger"
	"dex-datafeed/src/server"
)

// -----------------------------------------------------------------------------

func main() {

	// 1. Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	// 2. Load config from YAML file (+ .env and environment overrides)
	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// 3. Setup logger
	appLogger := logger.NewLogger(conf.MConfig, conf.Name)

	// 4. Setup Components
	networkManager := setupNetwork(conf.MConfig)
	quotes, stream := setupSources(conf.MConfig, networkManager)
	sinks, archive := setupSinks(conf.MConfig, appLogger)

	feed := datafeed.NewDatafeed(conf.Datafeed, quotes, stream, logger.NewLogger(conf.MConfig, "Datafeed"), sinks...)

	// 5. Warm the reference rate; history answers no_data until it is known
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	readyCtx, readyCancel := context.WithTimeout(ctx, 30*time.Second)
	if _, err := feed.OnReady(readyCtx); err != nil {
		appLogger.Warning("Reference rate not available yet: %v", err)
	}
	readyCancel()

	// 6. Start Servers
	srv := server.NewFastAPIServer(conf.MConfig, feed, logger.NewLogger(conf.MConfig, "FastAPIServer"))
	if archive != nil {
		srv.SetArchive(archive)
	}
	grpcServer := startServers(srv, feed, conf.MConfig, appLogger)

	// 7. Archive retention
	if archive != nil {
		go runCleanup(ctx, archive, time.Hour, appLogger)
	}

	appLogger.Info("Datafeed running. Waiting for shutdown signal...")
	<-ctx.Done()

	// 8. Shutdown
	appLogger.Info("Shutting down...")
	grpcServer.GracefulStop()
	if err := srv.Stop(); err != nil {
		appLogger.Error("Server shutdown: %v", err)
	}
	if err := feed.Close(); err != nil {
		appLogger.Error("Datafeed shutdown: %v", err)
	}
	appLogger.Info("Shutdown complete.")
}
