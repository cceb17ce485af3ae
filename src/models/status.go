package models

import "time"

// MSubscriptionStatus describes one active live subscription.
type MSubscriptionStatus struct {
	UID        string    `json:"uid"`
	Ticker     string    `json:"ticker"`
	Resolution string    `json:"resolution"`
	StartedAt  time.Time `json:"started_at"`
	Ticks      int64     `json:"ticks"`
	Failures   int64     `json:"failures"`
}

// MDatafeedStatus is reported by health and control surfaces.
type MDatafeedStatus struct {
	Reference     *MPriceReference      `json:"reference,omitempty"`
	CachedSymbols int                   `json:"cached_symbols"`
	Subscriptions []MSubscriptionStatus `json:"subscriptions"`
}
