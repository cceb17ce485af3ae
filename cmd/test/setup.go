package main

import (
	"dex-datafeed/src/data_source/bitquery"
	"dex-datafeed/src/data_source/pancakeswap"
	"dex-datafeed/src/datafeed"
	"dex-datafeed/src/logger"
	"dex-datafeed/src/models"
	"dex-datafeed/src/network"
)

// -----------------------------------------------------------------------------

// setupFeed wires both upstream sources without any sinks.
func setupFeed(config *models.MConfig) *datafeed.Datafeed {
	networkManager := network.NewAsyncNetworkManager(config, logger.NewLogger(config, "NetworkManager"))

	quotes := bitquery.NewBitquerySource(config.QuoteSource, networkManager, logger.NewLogger(config, "BitquerySource"))
	stream := pancakeswap.NewPancakeSwapSource(config.StreamSource, config.QuoteSource.ReferenceAsset, networkManager, logger.NewLogger(config, "PancakeSwapSource"))

	return datafeed.NewDatafeed(config.Datafeed, quotes, stream, logger.NewLogger(config, "Datafeed"))
}
