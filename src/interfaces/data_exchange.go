package interfaces

// -----------------------------------------------------------------------------
// IDataExchanger pushes live updates to connected listeners.
// -----------------------------------------------------------------------------

type IDataExchanger interface {
	// -----------------------------------------------------------------------------
	// Broadcast pushes a payload to every connected listener.
	Broadcast(payload interface{})

	// -----------------------------------------------------------------------------
	// Start the server. Blocks until the server stops.
	Start() error

	// -----------------------------------------------------------------------------
	// Stop the server gracefully
	Stop() error
}
