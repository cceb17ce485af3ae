package models

import "time"

// MSymbolDescriptor describes a resolved symbol. Identified by Exchange:Ticker.
type MSymbolDescriptor struct {
	Ticker               string   `json:"ticker"`
	Name                 string   `json:"name"`
	Description          string   `json:"description"`
	Type                 string   `json:"type"`
	Exchange             string   `json:"exchange"`
	Session              string   `json:"session"`
	Timezone             string   `json:"timezone"`
	MinMove              int64    `json:"minmov"`
	PriceScale           int64    `json:"pricescale"`
	HasIntraday          bool     `json:"has_intraday"`
	IntradayMultipliers  []string `json:"intraday_multipliers"`
	SupportedResolutions []string `json:"supported_resolutions"`
	DataStatus           string   `json:"data_status"`
}

// FullName returns the exchange-qualified identifier.
func (s MSymbolDescriptor) FullName() string {
	return s.Exchange + ":" + s.Ticker
}

// MPriceReference is the cached quote-asset to fiat conversion rate.
type MPriceReference struct {
	Symbol     string    `json:"symbol"`
	Rate       float64   `json:"rate"`
	ObservedAt time.Time `json:"observed_at"`
}

// MExchangeDescriptor is advertised in the datafeed configuration.
type MExchangeDescriptor struct {
	Value string `json:"value"`
	Name  string `json:"name"`
	Desc  string `json:"desc"`
}

// MDatafeedConfiguration is returned by onReady.
type MDatafeedConfiguration struct {
	SupportedResolutions []string              `json:"supported_resolutions"`
	SupportsSearch       bool                  `json:"supports_search"`
	SupportsGroupRequest bool                  `json:"supports_group_request"`
	SupportsMarks        bool                  `json:"supports_marks"`
	SupportsTime         bool                  `json:"supports_time"`
	Exchanges            []MExchangeDescriptor `json:"exchanges,omitempty"`
}

// MSearchResult is one entry of a symbol search.
type MSearchResult struct {
	Symbol      string `json:"symbol"`
	FullName    string `json:"full_name"`
	Description string `json:"description"`
	Exchange    string `json:"exchange"`
	Type        string `json:"type"`
}
