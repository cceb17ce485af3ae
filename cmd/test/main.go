package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"dex-datafeed/src/config"
	"dex-datafeed/src/datafeed"
	"dex-datafeed/src/logger"
	"dex-datafeed/src/models"
)

// Smoke run against the live upstreams: resolve, one history page, a few
// realtime ticks, then unsubscribe.
func main() {
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	symbolName := flag.String("symbol", "Pancake v2:0x0e09fabb73bd3ade0a17ecc321fd13a19e81ce82", "exchange:token address")
	resolution := flag.String("resolution", "1", "bar resolution")
	listen := flag.Duration("listen", 45*time.Second, "how long to wait for realtime bars")
	flag.Parse()

	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	appLogger := logger.NewLogger(conf.MConfig, "SmokeTest")

	feed := setupFeed(conf.MConfig)
	defer feed.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	// 1. onReady
	cfg, err := feed.OnReady(ctx)
	if err != nil {
		appLogger.Warning("onReady: %v", err)
	}
	appLogger.Info("Supported resolutions: %v", cfg.SupportedResolutions)

	// 2. resolveSymbol
	symbol, err := feed.ResolveSymbol(ctx, *symbolName)
	if err != nil {
		appLogger.Critical("resolveSymbol: %v", err)
		os.Exit(1)
	}
	appLogger.Info("Resolved %s (%s) pricescale=%d", symbol.FullName(), symbol.Description, symbol.PriceScale)

	// 3. getBars, the last 24 hours
	now := time.Now().Unix()
	res, err := feed.GetBars(ctx, symbol, *resolution, models.MPeriodParams{
		From:             now - 24*60*60,
		To:               now,
		FirstDataRequest: true,
	})
	if err != nil {
		appLogger.Critical("getBars: %v", err)
		os.Exit(1)
	}
	appLogger.Info("History: %d bars (noData=%v)", len(res.Bars), res.NoData)
	if n := len(res.Bars); n > 0 {
		last := res.Bars[n-1]
		appLogger.Info("Last bar: t=%d o=%f h=%f l=%f c=%f", last.Time, last.Open, last.High, last.Low, last.Close)
	}

	// 4. subscribeBars
	runSubscription(feed, symbol, *resolution, *listen, appLogger)
}

// -----------------------------------------------------------------------------

func runSubscription(feed *datafeed.Datafeed, symbol models.MSymbolDescriptor, resolution string, listen time.Duration, appLogger *logger.Logger) {
	ticks := make(chan models.MBar, 16)
	uid := "smoke-" + symbol.Ticker

	if _, err := feed.SubscribeBars(symbol, resolution, uid, func(bar models.MBar) {
		select {
		case ticks <- bar:
		default:
		}
	}); err != nil {
		appLogger.Critical("subscribeBars: %v", err)
		return
	}
	defer feed.UnsubscribeBars(uid)

	deadline := time.After(listen)
	for {
		select {
		case bar := <-ticks:
			appLogger.Info("Tick: t=%d c=%f h=%f l=%f", bar.Time, bar.Close, bar.High, bar.Low)
		case <-deadline:
			appLogger.Info("Done listening, unsubscribing %s", uid)
			return
		}
	}
}
