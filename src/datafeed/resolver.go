package datafeed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dex-datafeed/src/helpers"
	"dex-datafeed/src/interfaces"
	"dex-datafeed/src/metrics"
	"dex-datafeed/src/models"
)

const (
	DefaultPriceScale int64 = 10000000
	DefaultMinMove    int64 = 1
)

// SymbolResolver turns "<exchange>:<token>" into a symbol descriptor.
type SymbolResolver struct {
	source               interfaces.IQuoteSource
	priceScale           int64
	minMove              int64
	supportedResolutions []string
	intradayMultipliers  []string
}

// -----------------------------------------------------------------------------

func NewSymbolResolver(source interfaces.IQuoteSource, cfg models.MDatafeedConfig) *SymbolResolver {
	r := &SymbolResolver{
		source:               source,
		priceScale:           cfg.PriceScale,
		minMove:              cfg.MinMove,
		supportedResolutions: cfg.SupportedResolutions,
		intradayMultipliers:  cfg.IntradayMultipliers,
	}
	if r.priceScale <= 0 {
		r.priceScale = DefaultPriceScale
	}
	if r.minMove <= 0 {
		r.minMove = DefaultMinMove
	}
	if len(r.supportedResolutions) == 0 {
		r.supportedResolutions = DefaultSupportedResolutions
	}
	if len(r.intradayMultipliers) == 0 {
		r.intradayMultipliers = DefaultIntradayMultipliers
	}
	return r
}

// -----------------------------------------------------------------------------

// SplitSymbol splits on the first ':' into exchange and token.
func SplitSymbol(symbolName string) (exchange, token string, err error) {
	exchange, token, found := strings.Cut(symbolName, ":")
	if !found || exchange == "" || token == "" {
		return "", "", helpers.NewMalformedSymbolError(symbolName)
	}
	return exchange, token, nil
}

// -----------------------------------------------------------------------------

// Resolve looks up the latest trade of the token. Malformed names fail without a network call.
func (r *SymbolResolver) Resolve(ctx context.Context, symbolName string) (models.MSymbolDescriptor, error) {
	exchange, token, err := SplitSymbol(symbolName)
	if err != nil {
		return models.MSymbolDescriptor{}, err
	}

	start := time.Now()
	trade, err := r.source.LatestTrade(ctx, exchange, token)
	metrics.UpstreamDuration.WithLabelValues("token_info").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamErrorsTotal.WithLabelValues("token_info").Inc()
		if helpers.IsUpstreamQuery(err) {
			return models.MSymbolDescriptor{}, err
		}
		return models.MSymbolDescriptor{}, helpers.NewUpstreamQueryError(fmt.Sprintf("resolve %s", symbolName), err)
	}
	if trade == nil {
		return models.MSymbolDescriptor{}, helpers.NewUnknownSymbolError(symbolName)
	}

	base := trade.BaseCurrency
	return models.MSymbolDescriptor{
		Ticker:               token,
		Name:                 base.Symbol + "/USD",
		Description:          base.Name,
		Type:                 "crypto",
		Exchange:             exchange,
		Session:              "24x7",
		Timezone:             "Etc/UTC",
		MinMove:              r.minMove,
		PriceScale:           r.priceScale,
		HasIntraday:          true,
		IntradayMultipliers:  append([]string(nil), r.intradayMultipliers...),
		SupportedResolutions: append([]string(nil), r.supportedResolutions...),
		DataStatus:           "streaming",
	}, nil
}

// -----------------------------------------------------------------------------

// SymbolRef builds a descriptor holding only exchange and ticker, enough for
// GetBars and SubscribeBars without an upstream lookup.
func SymbolRef(symbolName string) (models.MSymbolDescriptor, error) {
	exchange, token, err := SplitSymbol(symbolName)
	if err != nil {
		return models.MSymbolDescriptor{}, err
	}
	return models.MSymbolDescriptor{Ticker: token, Exchange: exchange}, nil
}
