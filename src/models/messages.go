package models

// -----------------------------------------------------------------------------
// Websocket messages
// -----------------------------------------------------------------------------

// MBarUpdate is pushed to websocket clients for every live bar.
type MBarUpdate struct {
	Type       string `json:"type"` // "bar"
	UID        string `json:"uid"`
	Symbol     string `json:"symbol"`
	Resolution string `json:"resolution"`
	Bar        MBar   `json:"bar"`
}

// MStatusMessage acknowledges client commands or reports failures.
type MStatusMessage struct {
	Type    string `json:"type"` // "subscribed", "unsubscribed", "error"
	UID     string `json:"uid,omitempty"`
	Message string `json:"message,omitempty"`
}

// -----------------------------------------------------------------------------
// SubscribeCommand for client messages
// -----------------------------------------------------------------------------

type MSubscribeCommand struct {
	Command    string `json:"command"`
	Symbol     string `json:"symbol"`
	Resolution string `json:"resolution"`
	UID        string `json:"uid"`
}
