package interfaces

import (
	"context"

	"trade-sync/src/models"
)

// -----------------------------------------------------------------------------
// IMarketBackend covers the unauthenticated market endpoints.
// -----------------------------------------------------------------------------

type IMarketBackend interface {
	ListMarkets(ctx context.Context) ([]string, error)
	LatestPrices(ctx context.Context) (map[string]models.MPriceSnapshot, error)
}

// -----------------------------------------------------------------------------
// IAuthBackend covers signup and login.
// -----------------------------------------------------------------------------

type IAuthBackend interface {
	Signup(ctx context.Context, creds models.MCredentials) error
	Login(ctx context.Context, creds models.MCredentials) (string, error)
}

// -----------------------------------------------------------------------------
// IAccountBackend covers the endpoints refreshed by the account poller and
// the trading mode switch.
// -----------------------------------------------------------------------------

type IAccountBackend interface {
	Balance(ctx context.Context) (models.MBalance, error)
	Portfolio(ctx context.Context) ([]models.MPosition, error)
	Orders(ctx context.Context) ([]models.MOrder, error)
	PlaceOrder(ctx context.Context, req models.MOrderRequest) (models.MOrder, error)
	TradingMode(ctx context.Context) (models.MTradingModeResponse, error)

	// SetTradingMode returns the decoded body for accepted and rejected
	// switches alike; err is set only when no body could be read.
	SetTradingMode(ctx context.Context, mode models.MTradingMode) (models.MTradingModeResponse, error)
}

// -----------------------------------------------------------------------------
// ICommandBackend covers the AI command and confirmation endpoints.
// -----------------------------------------------------------------------------

type ICommandBackend interface {
	SubmitCommand(ctx context.Context, command string) (models.MCommandResponse, error)
	ConfirmCommand(ctx context.Context, confirmationID string) (models.MCommandResponse, error)
	DeclineCommand(ctx context.Context, confirmationID string) (models.MCommandResponse, error)
}

// -----------------------------------------------------------------------------
// IBackend is the full REST surface of the trading backend.
// -----------------------------------------------------------------------------

type IBackend interface {
	IMarketBackend
	IAuthBackend
	IAccountBackend
	ICommandBackend
}
