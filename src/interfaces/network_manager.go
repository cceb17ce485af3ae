package interfaces

import "context"

// -----------------------------------------------------------------------------
// INetworkManager defines the contract for outbound HTTP requests.
// -----------------------------------------------------------------------------

type INetworkManager interface {

	// -----------------------------------------------------------------------------

	// Post sends payload as a JSON request body with the given headers.
	// Returns the response body as bytes or an error.
	Post(ctx context.Context, url string, headers map[string]string, payload []byte) ([]byte, error)
}
