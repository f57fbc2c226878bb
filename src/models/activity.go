package models

import "time"

// MActivityEntry is one line of the dashboard activity log.
type MActivityEntry struct {
	Time    time.Time `json:"time"`
	Source  string    `json:"source"`
	Message string    `json:"message"`
	IsError bool      `json:"is_error"`
	IsTick  bool      `json:"is_tick"`
}

// -----------------------------------------------------------------------------
// Dashboard event envelope (relayed to websocket clients)
// -----------------------------------------------------------------------------

const (
	EventPrice        = "price"
	EventConnection   = "connection"
	EventConfirmation = "confirmation"
	EventCommand      = "command"
	EventAccount      = "account"
	EventTradingMode  = "trading_mode"
	EventError        = "error"
	EventSnapshot     = "snapshot"
)

type MDashboardEvent struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp int64       `json:"timestamp"`
}

// MTradingModeState is what renderers show for the mode indicator.
type MTradingModeState struct {
	Mode       MTradingMode `json:"mode"`
	LiveBanner bool         `json:"live_banner"`
	Message    string       `json:"message,omitempty"`
}

// MDashboardSnapshot is the full state sent to a dashboard client on connect.
type MDashboardSnapshot struct {
	Prices        map[string]MPriceSnapshot `json:"prices"`
	Account       MAccountSnapshot          `json:"account"`
	TradingMode   MTradingModeState         `json:"trading_mode"`
	Stream        MStreamStats              `json:"stream"`
	Confirmations []MConfirmation           `json:"confirmations"`
	LoggedIn      bool                      `json:"logged_in"`
}
