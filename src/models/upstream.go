package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// FlexFloat decodes a JSON number or a quoted numeric string.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid numeric string %q: %w", s, err)
		}
		*f = FlexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = FlexFloat(v)
	return nil
}

// MCurrency is a token as reported by the quote source.
type MCurrency struct {
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// MTokenTrade is the most recent trade for an exchange/base-asset pair.
type MTokenTrade struct {
	BlockHeight  int64     `json:"block_height"`
	BlockTime    string    `json:"block_time"`
	TxIndex      int64     `json:"tx_index"`
	BaseCurrency MCurrency `json:"base_currency"`
}

// MReferenceQuote is the most recent reference-asset trade against its fiat pair.
type MReferenceQuote struct {
	BlockHeight int64   `json:"block_height"`
	BlockTime   string  `json:"block_time"`
	BaseSymbol  string  `json:"base_symbol"`
	QuoteSymbol string  `json:"quote_symbol"`
	QuotePrice  float64 `json:"quote_price"`
}

// MRawAggregate is one time-bucketed OHLCV record, priced in the reference asset.
type MRawAggregate struct {
	Minute string    `json:"minute"`
	Open   FlexFloat `json:"open"`
	Close  FlexFloat `json:"close"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Volume float64   `json:"volume"`
}

// MAggregateQuery parameterizes the OHLCV aggregate query.
type MAggregateQuery struct {
	BaseAsset       string
	Exchange        string
	From            int64 // unix seconds
	To              int64 // unix seconds
	IntervalMinutes int
}

// MSwapToken is one side of a swap pair.
type MSwapToken struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// MSwap is the most recent swap event from the stream source.
// Amounts are decimal strings as emitted by the subgraph.
type MSwap struct {
	Timestamp  int64      `json:"timestamp"`
	Token0     MSwapToken `json:"token0"`
	Token1     MSwapToken `json:"token1"`
	Amount0In  string     `json:"amount0In"`
	Amount1In  string     `json:"amount1In"`
	Amount0Out string     `json:"amount0Out"`
	Amount1Out string     `json:"amount1Out"`
	AmountUSD  string     `json:"amountUSD"`
}
