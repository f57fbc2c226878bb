package events

import (
	"sync"
	"time"

	"trade-sync/src/models"
)

// ErrorEvent is one OnError call.
type ErrorEvent struct {
	Source string
	Err    error
}

// Recorder keeps every event it receives. Tests use it as the sink of the
// component under test.
type Recorder struct {
	mu        sync.Mutex
	prices    []models.MPriceChange
	states    []models.MConnectionState
	opened    []models.MConfirmation
	updated   []models.MConfirmation
	outcomes  []models.MCommandOutcome
	accounts  []models.MAccountSnapshot
	modes     []models.MTradingModeState
	errorList []ErrorEvent
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) OnPriceChanged(change models.MPriceChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prices = append(r.prices, change)
}

func (r *Recorder) OnConnectionStateChanged(state models.MConnectionState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func (r *Recorder) OnConfirmationOpened(c models.MConfirmation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened = append(r.opened, c)
}

func (r *Recorder) OnConfirmationUpdated(c models.MConfirmation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updated = append(r.updated, c)
}

func (r *Recorder) OnCommandResult(outcome models.MCommandOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *Recorder) OnAccountUpdated(snapshot models.MAccountSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts = append(r.accounts, snapshot.Clone())
}

func (r *Recorder) OnTradingModeChanged(state models.MTradingModeState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modes = append(r.modes, state)
}

func (r *Recorder) OnError(source string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errorList = append(r.errorList, ErrorEvent{Source: source, Err: err})
}

func (r *Recorder) Prices() []models.MPriceChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.MPriceChange(nil), r.prices...)
}

func (r *Recorder) States() []models.MConnectionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.MConnectionState(nil), r.states...)
}

func (r *Recorder) Opened() []models.MConfirmation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.MConfirmation(nil), r.opened...)
}

func (r *Recorder) Updated() []models.MConfirmation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.MConfirmation(nil), r.updated...)
}

func (r *Recorder) Outcomes() []models.MCommandOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.MCommandOutcome(nil), r.outcomes...)
}

func (r *Recorder) Accounts() []models.MAccountSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.MAccountSnapshot(nil), r.accounts...)
}

func (r *Recorder) Modes() []models.MTradingModeState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.MTradingModeState(nil), r.modes...)
}

func (r *Recorder) Errors() []ErrorEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ErrorEvent(nil), r.errorList...)
}

// WaitFor polls cond until it returns true or timeout elapses.
func (r *Recorder) WaitFor(timeout time.Duration, cond func(*Recorder) bool) bool {
	deadline := time.Now().Add(timeout)
	for {
		if cond(r) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(5 * time.Millisecond)
	}
}
