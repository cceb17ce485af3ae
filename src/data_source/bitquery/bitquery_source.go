package bitquery

import (
	"context"
	"fmt"
	"time"

	"dex-datafeed/src/helpers"
	"dex-datafeed/src/interfaces"
	"dex-datafeed/src/logger"
	"dex-datafeed/src/models"
	"dex-datafeed/src/network"
)

const (
	DefaultEndpoint       = "https://graphql.bitquery.io"
	DefaultNetwork        = "bsc"
	DefaultReferenceAsset = "0xbb4cdb9cbd36b01bd1cbaebf2de08d9173bc095c" // WBNB
	DefaultFiatAsset      = "0xe9e7cea3dedca5984780bafc599bd69add087d56" // BUSD
	DefaultMinTradeUSD    = 10
)

// BitquerySource implements interfaces.IQuoteSource on the Bitquery GraphQL API.
type BitquerySource struct {
	Config models.MQuoteSourceConfig
	Logger *logger.Logger
	client *network.GraphQLClient
}

// -----------------------------------------------------------------------------

func NewBitquerySource(cfg models.MQuoteSourceConfig, netMgr interfaces.INetworkManager, log *logger.Logger) *BitquerySource {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Network == "" {
		cfg.Network = DefaultNetwork
	}
	if cfg.ReferenceAsset == "" {
		cfg.ReferenceAsset = DefaultReferenceAsset
	}
	if cfg.FiatAsset == "" {
		cfg.FiatAsset = DefaultFiatAsset
	}
	if log == nil {
		log = logger.NewLogger(nil, "BitquerySource")
	}

	headers := map[string]string{}
	if cfg.APIKey != "" {
		headers["X-API-KEY"] = cfg.APIKey
	}

	return &BitquerySource{
		Config: cfg,
		Logger: log,
		client: network.NewGraphQLClient(netMgr, cfg.Endpoint, headers),
	}
}

// -----------------------------------------------------------------------------

func (s *BitquerySource) Name() string {
	return "bitquery"
}

// -----------------------------------------------------------------------------

type blockInfo struct {
	Height    int64 `json:"height"`
	Timestamp struct {
		Time string `json:"time"`
	} `json:"timestamp"`
}

type tokenInfoResponse struct {
	Ethereum struct {
		DexTrades []struct {
			Block       blockInfo `json:"block"`
			Transaction struct {
				Index int64 `json:"index"`
			} `json:"transaction"`
			BaseCurrency models.MCurrency `json:"baseCurrency"`
		} `json:"dexTrades"`
	} `json:"ethereum"`
}

// LatestTrade returns nil, nil when the exchange has no trade of baseAsset.
func (s *BitquerySource) LatestTrade(ctx context.Context, exchange, baseAsset string) (*models.MTokenTrade, error) {
	q := TokenInfoQuery{Network: s.Config.Network, Exchange: exchange, BaseAsset: baseAsset}

	var resp tokenInfoResponse
	if err := s.client.Do(ctx, q.Request(), helpers.RateLimitHint, &resp); err != nil {
		return nil, fmt.Errorf("token info for %s:%s: %w", exchange, baseAsset, err)
	}

	trades := resp.Ethereum.DexTrades
	if len(trades) == 0 {
		return nil, nil
	}

	t := trades[0]
	return &models.MTokenTrade{
		BlockHeight:  t.Block.Height,
		BlockTime:    t.Block.Timestamp.Time,
		TxIndex:      t.Transaction.Index,
		BaseCurrency: t.BaseCurrency,
	}, nil
}

// -----------------------------------------------------------------------------

type referenceQuoteResponse struct {
	Ethereum struct {
		DexTrades []struct {
			Block        blockInfo `json:"block"`
			BaseCurrency struct {
				Symbol string `json:"symbol"`
			} `json:"baseCurrency"`
			QuoteCurrency struct {
				Symbol string `json:"symbol"`
			} `json:"quoteCurrency"`
			QuotePrice models.FlexFloat `json:"quotePrice"`
		} `json:"dexTrades"`
	} `json:"ethereum"`
}

// LatestReferenceQuote returns nil, nil when no reference trade exists.
func (s *BitquerySource) LatestReferenceQuote(ctx context.Context) (*models.MReferenceQuote, error) {
	q := ReferenceQuoteQuery{
		Network:    s.Config.Network,
		BaseAsset:  s.Config.ReferenceAsset,
		QuoteAsset: s.Config.FiatAsset,
	}

	var resp referenceQuoteResponse
	if err := s.client.Do(ctx, q.Request(), helpers.RateLimitHint, &resp); err != nil {
		return nil, fmt.Errorf("reference quote: %w", err)
	}

	trades := resp.Ethereum.DexTrades
	if len(trades) == 0 {
		return nil, nil
	}

	t := trades[0]
	return &models.MReferenceQuote{
		BlockHeight: t.Block.Height,
		BlockTime:   t.Block.Timestamp.Time,
		BaseSymbol:  t.BaseCurrency.Symbol,
		QuoteSymbol: t.QuoteCurrency.Symbol,
		QuotePrice:  float64(t.QuotePrice),
	}, nil
}

// -----------------------------------------------------------------------------

type aggregatesResponse struct {
	Ethereum struct {
		DexTrades []struct {
			TimeInterval struct {
				Minute string `json:"minute"`
			} `json:"timeInterval"`
			Volume models.FlexFloat `json:"volume"`
			High   models.FlexFloat `json:"high"`
			Low    models.FlexFloat `json:"low"`
			Open   models.FlexFloat `json:"open"`
			Close  models.FlexFloat `json:"close"`
		} `json:"dexTrades"`
	} `json:"ethereum"`
}

// Aggregates returns OHLCV buckets priced in the reference asset, ascending by bucket.
func (s *BitquerySource) Aggregates(ctx context.Context, query models.MAggregateQuery) ([]models.MRawAggregate, error) {
	if query.IntervalMinutes <= 0 {
		return nil, fmt.Errorf("invalid aggregate interval: %d", query.IntervalMinutes)
	}

	minTrade := s.Config.MinTradeUSD
	if minTrade <= 0 {
		minTrade = DefaultMinTradeUSD
	}

	q := AggregatesQuery{
		Network:         s.Config.Network,
		Exchange:        query.Exchange,
		BaseAsset:       query.BaseAsset,
		QuoteAsset:      s.Config.ReferenceAsset,
		Since:           time.Unix(query.From, 0),
		Till:            time.Unix(query.To, 0),
		IntervalMinutes: query.IntervalMinutes,
		MinTradeUSD:     minTrade,
	}

	var resp aggregatesResponse
	if err := s.client.Do(ctx, q.Request(), helpers.RateLimitHint, &resp); err != nil {
		return nil, fmt.Errorf("aggregates for %s:%s: %w", query.Exchange, query.BaseAsset, err)
	}

	out := make([]models.MRawAggregate, 0, len(resp.Ethereum.DexTrades))
	for _, t := range resp.Ethereum.DexTrades {
		out = append(out, models.MRawAggregate{
			Minute: t.TimeInterval.Minute,
			Open:   t.Open,
			Close:  t.Close,
			High:   float64(t.High),
			Low:    float64(t.Low),
			Volume: float64(t.Volume),
		})
	}

	s.Logger.Debug("Fetched %d aggregates for %s:%s (%dm)", len(out), query.Exchange, query.BaseAsset, query.IntervalMinutes)
	return out, nil
}
