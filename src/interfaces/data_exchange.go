package interfaces

import "dashboard-observer/src/models"

// -----------------------------------------------------------------------------
// IDataExchanger defines the interface for sharing dashboard state with external systems (Server/Push/Broker).
// -----------------------------------------------------------------------------

type IDataExchanger interface {
	// -----------------------------------------------------------------------------
	// Broadcast pushes a message to external listeners and updates cached state.
	Broadcast(message *models.MPushMessage)

	// -----------------------------------------------------------------------------
	// Start the exchanger
	Start() error

	// -----------------------------------------------------------------------------
	// Stop the exchanger gracefully
	Stop() error
}
