package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MTradingMode is the execution context of the account.
type MTradingMode string

const (
	TradingModeUnknown MTradingMode = ""
	TradingModePaper   MTradingMode = "PAPER"
	TradingModeLive    MTradingMode = "LIVE"
)

// ParseTradingMode accepts the backend's mode names case-insensitively.
func ParseTradingMode(s string) (MTradingMode, bool) {
	switch MTradingMode(strings.ToUpper(strings.TrimSpace(s))) {
	case TradingModePaper:
		return TradingModePaper, true
	case TradingModeLive:
		return TradingModeLive, true
	}
	return TradingModeUnknown, false
}

// MPosition is one portfolio line.
type MPosition struct {
	ID            int64           `json:"id,omitempty"`
	Symbol        string          `json:"symbol"`
	Quantity      decimal.Decimal `json:"quantity"`
	AvgEntryPrice decimal.Decimal `json:"avgEntryPrice"`
}

// MOrder mirrors the backend order record.
type MOrder struct {
	ID          int64               `json:"id,omitempty"`
	Symbol      string              `json:"symbol"`
	Side        string              `json:"side"`
	Type        string              `json:"type,omitempty"`
	Status      string              `json:"status"`
	Quantity    decimal.Decimal     `json:"quantity"`
	LimitPrice  decimal.NullDecimal `json:"limitPrice"`
	FilledPrice decimal.NullDecimal `json:"filledPrice"`
	Fee         decimal.NullDecimal `json:"fee"`
	Timestamp   string              `json:"timestamp,omitempty"`
}

// Summary is a one-line description of the order.
func (o MOrder) Summary() string {
	s := fmt.Sprintf("order #%d: %s %s %s %s", o.ID, o.Side, o.Quantity.String(), o.Symbol, o.Status)
	switch {
	case o.FilledPrice.Valid:
		s += " @ " + o.FilledPrice.Decimal.String()
	case o.LimitPrice.Valid:
		s += " limit " + o.LimitPrice.Decimal.String()
	}
	return s
}

// MOrderRequest is the body of POST /trade/orders.
type MOrderRequest struct {
	Symbol     string              `json:"symbol"`
	Side       string              `json:"side"`
	Type       string              `json:"type"`
	Quantity   decimal.Decimal     `json:"quantity"`
	LimitPrice decimal.NullDecimal `json:"limitPrice"`
}

// MBalance is the body of GET /account/balance.
type MBalance struct {
	Balance decimal.Decimal `json:"balance"`
}

// MTradingModeRequest is the body of POST /account/trading-mode.
type MTradingModeRequest struct {
	Mode MTradingMode `json:"mode"`
}

// MTradingModeResponse is returned by both GET and POST /account/trading-mode,
// including rejected switches, so Mode is always the backend's current value.
type MTradingModeResponse struct {
	Mode            string `json:"mode"`
	KrakenConnected bool   `json:"krakenConnected"`
	Message         string `json:"message"`
}

// MAccountSnapshot is the account state refreshed wholesale by the poller.
type MAccountSnapshot struct {
	Balance     decimal.Decimal `json:"balance"`
	Portfolio   []MPosition     `json:"portfolio"`
	Orders      []MOrder        `json:"orders"`
	TradingMode MTradingMode    `json:"trading_mode"`
	LiveBanner  bool            `json:"live_banner"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Clone returns a copy that does not share slices with the receiver.
func (a MAccountSnapshot) Clone() MAccountSnapshot {
	c := a
	c.Portfolio = append([]MPosition(nil), a.Portfolio...)
	c.Orders = append([]MOrder(nil), a.Orders...)
	return c
}
