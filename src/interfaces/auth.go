package interfaces

import "context"

// -----------------------------------------------------------------------------
// ITokenSource hands out the current bearer token ("" when logged out).
// -----------------------------------------------------------------------------

type ITokenSource interface {
	Token() string
}

// -----------------------------------------------------------------------------
// IAccountRefresher requests an out-of-band account refresh. Implementations
// must not block.
// -----------------------------------------------------------------------------

type IAccountRefresher interface {
	RequestRefresh()
}

// -----------------------------------------------------------------------------
// IAcknowledger is the synchronous user acknowledgment step required before
// switching to live trading.
// -----------------------------------------------------------------------------

type IAcknowledger interface {
	Acknowledge(ctx context.Context, warning string) bool
}
