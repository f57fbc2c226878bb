package interfaces

// -----------------------------------------------------------------------------
// IDataExchanger is a server that exposes client state to external renderers.
// -----------------------------------------------------------------------------

type IDataExchanger interface {
	IEventSink

	// -----------------------------------------------------------------------------
	// Start the server
	Start() error

	// -----------------------------------------------------------------------------
	// Stop the server gracefully
	Stop() error
}
