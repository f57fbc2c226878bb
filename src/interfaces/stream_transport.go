package interfaces

import "context"

// -----------------------------------------------------------------------------
// IStreamDialer opens streaming connections. The websocket implementation
// lives in src/stream; tests substitute an in-memory one.
// -----------------------------------------------------------------------------

type IStreamDialer interface {
	// Dial opens one connection to url.
	Dial(ctx context.Context, url string) (IStreamConn, error)
}

// -----------------------------------------------------------------------------
// IStreamConn is one open streaming connection carrying text frames.
// -----------------------------------------------------------------------------

type IStreamConn interface {
	// ReadMessage blocks until the next frame arrives or the connection fails.
	ReadMessage() ([]byte, error)

	// -----------------------------------------------------------------------------

	// WriteMessage sends one text frame.
	WriteMessage(data []byte) error

	// -----------------------------------------------------------------------------

	// Close releases the connection; a blocked ReadMessage returns an error.
	Close() error
}
