package models

// MBar is one OHLCV candle. Time is the bucket start in epoch milliseconds.
type MBar struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// MPeriodParams is the window requested by the charting surface, in unix seconds.
type MPeriodParams struct {
	From             int64 `json:"from"`
	To               int64 `json:"to"`
	CountBack        int   `json:"countBack"`
	FirstDataRequest bool  `json:"firstDataRequest"`
}

// MHistoryResult is the outcome of a getBars call.
// NoData tells the caller not to ask again before an earlier window.
type MHistoryResult struct {
	Bars   []MBar `json:"bars"`
	NoData bool   `json:"noData"`
}
