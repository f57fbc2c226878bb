package interfaces

import "trade-sync/src/models"

// -----------------------------------------------------------------------------
// IEventSink receives every UI-facing notification. Renderers (dashboard
// server, console, activity log, tests) implement it; components call it
// outside their own locks.
// -----------------------------------------------------------------------------

type IEventSink interface {
	OnPriceChanged(change models.MPriceChange)
	OnConnectionStateChanged(state models.MConnectionState)
	OnConfirmationOpened(c models.MConfirmation)
	OnConfirmationUpdated(c models.MConfirmation)
	OnCommandResult(outcome models.MCommandOutcome)
	OnAccountUpdated(snapshot models.MAccountSnapshot)
	OnTradingModeChanged(state models.MTradingModeState)
	OnError(source string, err error)
}
