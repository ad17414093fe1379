package interfaces

import "context"

// -----------------------------------------------------------------------------
// INetworkManager defines the contract for authenticated HTTP requests with retry logic.
// -----------------------------------------------------------------------------

type INetworkManager interface {

	// -----------------------------------------------------------------------------

	// Get performs a GET request against the backend path with query parameters.
	// Returns the response body as bytes or an error.
	Get(ctx context.Context, path string, params map[string]string) ([]byte, error)
}
