package utils

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"trade-sync/src/models"
)

// -----------------------------------------------------------------------------
// ActivityLog keeps the most recent user-facing events as text. Price
// updates without a direction are not logged.
// -----------------------------------------------------------------------------

type ActivityLog struct {
	mu  sync.RWMutex
	buf *RingBuffer[models.MActivityEntry]
	now func() time.Time
}

// -----------------------------------------------------------------------------

func NewActivityLog(capacity int) *ActivityLog {
	return &ActivityLog{
		buf: NewRingBuffer[models.MActivityEntry](capacity),
		now: time.Now,
	}
}

// -----------------------------------------------------------------------------

func (a *ActivityLog) add(source, message string, isError, isTick bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.buf.Append(models.MActivityEntry{
		Time:    a.now(),
		Source:  source,
		Message: message,
		IsError: isError,
		IsTick:  isTick,
	})
}

// Entries returns the log, newest first.
func (a *ActivityLog) Entries() []models.MActivityEntry {
	a.mu.RLock()
	all := a.buf.GetAll()
	a.mu.RUnlock()

	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	return all
}

// Len returns how many entries are held.
func (a *ActivityLog) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.buf.Size()
}

// -----------------------------------------------------------------------------
// IEventSink
// -----------------------------------------------------------------------------

func (a *ActivityLog) OnPriceChanged(change models.MPriceChange) {
	if change.Direction == models.DirectionNone {
		return
	}
	a.add("stream", fmt.Sprintf("%s %s %s", change.Symbol, change.Direction, FormatPrice(change.Snapshot.Last)), false, true)
}

func (a *ActivityLog) OnConnectionStateChanged(state models.MConnectionState) {
	a.add("stream", "Connection "+state.String(), state == models.StateRetrying, false)
}

func (a *ActivityLog) OnConfirmationOpened(c models.MConfirmation) {
	a.add("confirm", fmt.Sprintf("Confirmation %s: %s", c.ID, c.Message), false, false)
}

func (a *ActivityLog) OnConfirmationUpdated(c models.MConfirmation) {
	msg := fmt.Sprintf("Confirmation %s %s", c.ID, c.Status)
	if c.ResultMessage != "" {
		msg += ": " + c.ResultMessage
	}
	a.add("confirm", msg, c.Status == models.ConfirmationFailed, false)
}

func (a *ActivityLog) OnCommandResult(outcome models.MCommandOutcome) {
	msg := outcome.Message
	if details := outcome.Details(); len(details) > 0 {
		msg += " (" + strings.Join(details, "; ") + ")"
	}
	a.add("command", msg, !outcome.Success, false)
}

func (a *ActivityLog) OnAccountUpdated(snapshot models.MAccountSnapshot) {}

func (a *ActivityLog) OnTradingModeChanged(state models.MTradingModeState) {
	mode := string(state.Mode)
	if state.Mode == models.TradingModeUnknown {
		mode = "cleared"
	}
	msg := "Trading mode " + mode
	if state.Message != "" {
		msg += ": " + state.Message
	}
	a.add("account", msg, false, false)
}

func (a *ActivityLog) OnError(source string, err error) {
	a.add(source, err.Error(), true, false)
}

// -----------------------------------------------------------------------------

// FormatPrice renders a price with more decimals for small values.
func FormatPrice(v float64) string {
	switch {
	case v == 0:
		return "0"
	case v < 1 && v > -1:
		return fmt.Sprintf("%.6f", v)
	case v < 100 && v > -100:
		return fmt.Sprintf("%.4f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}
