package pancakeswap

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"dex-datafeed/src/interfaces"
	"dex-datafeed/src/logger"
	"dex-datafeed/src/models"
	"dex-datafeed/src/network"
)

const (
	DefaultEndpoint       = "https://bsc.streamingfast.io/subgraphs/name/pancakeswap/exchange-v2"
	DefaultReferenceAsset = "0xbb4cdb9cbd36b01bd1cbaebf2de08d9173bc095c" // WBNB
)

const latestSwapQuery = `query ($token0: String!, $token1: String!) {
  swaps(first: 1, orderBy: timestamp, orderDirection: desc, where: {token0: $token0, token1: $token1}) {
    timestamp
    token0 { id symbol name }
    token1 { id symbol name }
    amount0In
    amount1In
    amount0Out
    amount1Out
    amountUSD
  }
}`

// -----------------------------------------------------------------------------

// LatestSwapQuery selects the newest swap of Token against ReferenceAsset.
type LatestSwapQuery struct {
	Token          string
	ReferenceAsset string
}

func (q LatestSwapQuery) Request() network.GraphQLRequest {
	return network.GraphQLRequest{
		Query: latestSwapQuery,
		Variables: map[string]interface{}{
			"token0": strings.ToLower(q.Token),
			"token1": strings.ToLower(q.ReferenceAsset),
		},
	}
}

// -----------------------------------------------------------------------------

// PancakeSwapSource implements interfaces.IStreamSource on the PancakeSwap v2 subgraph.
type PancakeSwapSource struct {
	referenceAsset string
	Logger         *logger.Logger
	client         *network.GraphQLClient
}

// -----------------------------------------------------------------------------

func NewPancakeSwapSource(cfg models.MStreamSourceConfig, referenceAsset string, netMgr interfaces.INetworkManager, log *logger.Logger) *PancakeSwapSource {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if referenceAsset == "" {
		referenceAsset = DefaultReferenceAsset
	}
	if log == nil {
		log = logger.NewLogger(nil, "PancakeSwapSource")
	}

	return &PancakeSwapSource{
		referenceAsset: referenceAsset,
		Logger:         log,
		client:         network.NewGraphQLClient(netMgr, endpoint, nil),
	}
}

// -----------------------------------------------------------------------------

func (s *PancakeSwapSource) Name() string {
	return "pancakeswap"
}

// -----------------------------------------------------------------------------

type swapsResponse struct {
	Swaps []struct {
		Timestamp  string            `json:"timestamp"`
		Token0     models.MSwapToken `json:"token0"`
		Token1     models.MSwapToken `json:"token1"`
		Amount0In  string            `json:"amount0In"`
		Amount1In  string            `json:"amount1In"`
		Amount0Out string            `json:"amount0Out"`
		Amount1Out string            `json:"amount1Out"`
		AmountUSD  string            `json:"amountUSD"`
	} `json:"swaps"`
}

// LatestSwap returns nil, nil when the pool has no swaps.
func (s *PancakeSwapSource) LatestSwap(ctx context.Context, token string) (*models.MSwap, error) {
	q := LatestSwapQuery{Token: token, ReferenceAsset: s.referenceAsset}

	var resp swapsResponse
	if err := s.client.Do(ctx, q.Request(), "subgraph query failed", &resp); err != nil {
		return nil, fmt.Errorf("latest swap for %s: %w", token, err)
	}

	if len(resp.Swaps) == 0 {
		return nil, nil
	}

	w := resp.Swaps[0]
	ts, err := strconv.ParseInt(w.Timestamp, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("latest swap for %s: invalid timestamp %q: %w", token, w.Timestamp, err)
	}

	return &models.MSwap{
		Timestamp:  ts,
		Token0:     w.Token0,
		Token1:     w.Token1,
		Amount0In:  w.Amount0In,
		Amount1In:  w.Amount1In,
		Amount0Out: w.Amount0Out,
		Amount1Out: w.Amount1Out,
		AmountUSD:  w.AmountUSD,
	}, nil
}
