package interfaces

import (
	"context"

	"trade-sync/src/models"
)

// -----------------------------------------------------------------------------
// IDashboardSession is what the local dashboard server reads and drives.
// -----------------------------------------------------------------------------

type IDashboardSession interface {
	Snapshot() models.MDashboardSnapshot
	Prices() map[string]models.MPriceSnapshot
	Account() models.MAccountSnapshot
	TradingMode() models.MTradingModeState
	StreamStats() models.MStreamStats
	ActiveConfirmations() []models.MConfirmation
	ConfirmationHistory() []models.MConfirmation
	Confirmation(id string) (models.MConfirmation, bool)
	Activity() []models.MActivityEntry
	LoggedIn() bool

	// -----------------------------------------------------------------------------

	SubmitCommand(ctx context.Context, text string) (models.MSubmitResult, error)
	ResolveConfirmation(ctx context.Context, id string, accept bool) (models.MConfirmation, error)
	SwitchTradingMode(ctx context.Context, mode models.MTradingMode, ack IAcknowledger) (models.MTradingModeState, error)
	PlaceOrder(ctx context.Context, req models.MOrderRequest) (models.MOrder, error)

	// -----------------------------------------------------------------------------

	Login(ctx context.Context, email, password string) error
	Signup(ctx context.Context, email, password string) error
	Logout() error
}
