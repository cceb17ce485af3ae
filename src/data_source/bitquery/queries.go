package bitquery

import (
	"time"

	"dex-datafeed/src/network"
)

const timeLayout = "2006-01-02T15:04:05Z"

const tokenInfoQuery = `query ($network: EthereumNetwork!, $exchange: String!, $base: String!) {
  ethereum(network: $network) {
    dexTrades(
      options: {desc: ["block.height", "transaction.index"], limit: 1}
      exchangeName: {is: $exchange}
      baseCurrency: {is: $base}
    ) {
      block { height timestamp { time(format: "%Y-%m-%dT%H:%M:%SZ") } }
      transaction { index }
      baseCurrency { address name symbol decimals }
    }
  }
}`

const referenceQuoteQuery = `query ($network: EthereumNetwork!, $base: String!, $quote: String!) {
  ethereum(network: $network) {
    dexTrades(
      options: {desc: ["block.height", "transaction.index"], limit: 1}
      baseCurrency: {is: $base}
      quoteCurrency: {is: $quote}
    ) {
      block { height timestamp { time(format: "%Y-%m-%dT%H:%M:%SZ") } }
      transaction { index }
      baseCurrency { symbol }
      quoteCurrency { symbol }
      quotePrice
    }
  }
}`

const aggregatesQuery = `query ($network: EthereumNetwork!, $exchange: String!, $base: String!, $quote: String!, $since: ISO8601DateTime, $till: ISO8601DateTime, $interval: Int, $minTradeUsd: Float) {
  ethereum(network: $network) {
    dexTrades(
      options: {asc: "timeInterval.minute"}
      date: {since: $since, till: $till}
      exchangeName: {is: $exchange}
      baseCurrency: {is: $base}
      quoteCurrency: {is: $quote}
      tradeAmountUsd: {gt: $minTradeUsd}
    ) {
      timeInterval { minute(count: $interval, format: "%Y-%m-%dT%H:%M:%SZ") }
      volume: quoteAmount
      high: quotePrice(calculate: maximum)
      low: quotePrice(calculate: minimum)
      open: minimum(of: block, get: quote_price)
      close: maximum(of: block, get: quote_price)
    }
  }
}`

// -----------------------------------------------------------------------------

// TokenInfoQuery selects the latest trade of a base asset on one exchange.
type TokenInfoQuery struct {
	Network   string
	Exchange  string
	BaseAsset string
}

func (q TokenInfoQuery) Request() network.GraphQLRequest {
	return network.GraphQLRequest{
		Query: tokenInfoQuery,
		Variables: map[string]interface{}{
			"network":  q.Network,
			"exchange": q.Exchange,
			"base":     q.BaseAsset,
		},
	}
}

// -----------------------------------------------------------------------------

// ReferenceQuoteQuery selects the latest reference/fiat trade on any exchange.
type ReferenceQuoteQuery struct {
	Network    string
	BaseAsset  string
	QuoteAsset string
}

func (q ReferenceQuoteQuery) Request() network.GraphQLRequest {
	return network.GraphQLRequest{
		Query: referenceQuoteQuery,
		Variables: map[string]interface{}{
			"network": q.Network,
			"base":    q.BaseAsset,
			"quote":   q.QuoteAsset,
		},
	}
}

// -----------------------------------------------------------------------------

// AggregatesQuery selects OHLCV buckets of IntervalMinutes within [Since, Till].
type AggregatesQuery struct {
	Network         string
	Exchange        string
	BaseAsset       string
	QuoteAsset      string
	Since           time.Time
	Till            time.Time
	IntervalMinutes int
	MinTradeUSD     float64
}

func (q AggregatesQuery) Request() network.GraphQLRequest {
	return network.GraphQLRequest{
		Query: aggregatesQuery,
		Variables: map[string]interface{}{
			"network":     q.Network,
			"exchange":    q.Exchange,
			"base":        q.BaseAsset,
			"quote":       q.QuoteAsset,
			"since":       q.Since.UTC().Format(timeLayout),
			"till":        q.Till.UTC().Format(timeLayout),
			"interval":    q.IntervalMinutes,
			"minTradeUsd": q.MinTradeUSD,
		},
	}
}
