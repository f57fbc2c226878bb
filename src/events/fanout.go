package events

import (
	"sync"

	"trade-sync/src/interfaces"
	"trade-sync/src/models"
)

// Fanout forwards every event to all registered sinks, in registration order.
type Fanout struct {
	mu    sync.RWMutex
	sinks []interfaces.IEventSink
}

func NewFanout(sinks ...interfaces.IEventSink) *Fanout {
	f := &Fanout{}
	for _, s := range sinks {
		f.Add(s)
	}
	return f
}

// Add registers a sink. Nil sinks are ignored.
func (f *Fanout) Add(s interfaces.IEventSink) {
	if s == nil {
		return
	}
	f.mu.Lock()
	f.sinks = append(f.sinks, s)
	f.mu.Unlock()
}

func (f *Fanout) each(fn func(interfaces.IEventSink)) {
	f.mu.RLock()
	sinks := f.sinks
	f.mu.RUnlock()
	for _, s := range sinks {
		fn(s)
	}
}

func (f *Fanout) OnPriceChanged(change models.MPriceChange) {
	f.each(func(s interfaces.IEventSink) { s.OnPriceChanged(change) })
}

func (f *Fanout) OnConnectionStateChanged(state models.MConnectionState) {
	f.each(func(s interfaces.IEventSink) { s.OnConnectionStateChanged(state) })
}

func (f *Fanout) OnConfirmationOpened(c models.MConfirmation) {
	f.each(func(s interfaces.IEventSink) { s.OnConfirmationOpened(c) })
}

func (f *Fanout) OnConfirmationUpdated(c models.MConfirmation) {
	f.each(func(s interfaces.IEventSink) { s.OnConfirmationUpdated(c) })
}

func (f *Fanout) OnCommandResult(outcome models.MCommandOutcome) {
	f.each(func(s interfaces.IEventSink) { s.OnCommandResult(outcome) })
}

func (f *Fanout) OnAccountUpdated(snapshot models.MAccountSnapshot) {
	f.each(func(s interfaces.IEventSink) { s.OnAccountUpdated(snapshot) })
}

func (f *Fanout) OnTradingModeChanged(state models.MTradingModeState) {
	f.each(func(s interfaces.IEventSink) { s.OnTradingModeChanged(state) })
}

func (f *Fanout) OnError(source string, err error) {
	f.each(func(s interfaces.IEventSink) { s.OnError(source, err) })
}

// Nop discards every event.
type Nop struct{}

func (Nop) OnPriceChanged(models.MPriceChange) {}
func (Nop) OnConnectionStateChanged(models.MConnectionState) {}
func (Nop) OnConfirmationOpened(models.MConfirmation) {}
func (Nop) OnConfirmationUpdated(models.MConfirmation) {}
func (Nop) OnCommandResult(models.MCommandOutcome) {}
func (Nop) OnAccountUpdated(models.MAccountSnapshot) {}
func (Nop) OnTradingModeChanged(models.MTradingModeState) {}
func (Nop) OnError(string, error) {}
