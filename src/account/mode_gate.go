package account

import (
	"context"
	"sync"

	"trade-sync/src/helpers"
	"trade-sync/src/interfaces"
	"trade-sync/src/logger"
	"trade-sync/src/models"
)

// LiveWarning is shown to the user before switching to live trading.
const LiveWarning = "LIVE trading places real orders with real funds on the connected exchange. Continue?"

// -----------------------------------------------------------------------------
// ModeGate guards the trading mode transition. The displayed mode only ever
// changes to a value the backend reported.
// -----------------------------------------------------------------------------

type ModeGate struct {
	Backend   interfaces.IAccountBackend
	Tokens    interfaces.ITokenSource
	Refresher interfaces.IAccountRefresher
	Sink      interfaces.IEventSink
	Logger    *logger.Logger

	mu    sync.RWMutex
	state models.MTradingModeState
	// generation advances on every applied switch reply and on Reset. Poll
	// results read under an older generation are stale.
	generation uint64
}

// -----------------------------------------------------------------------------

func NewModeGate(backend interfaces.IAccountBackend, tokens interfaces.ITokenSource, sink interfaces.IEventSink, log *logger.Logger) *ModeGate {
	return &ModeGate{
		Backend: backend,
		Tokens:  tokens,
		Sink:    sink,
		Logger:  log,
	}
}

// -----------------------------------------------------------------------------

// Switch asks the backend for target. LIVE requires ack to agree first; a
// refusal returns ErrNotAcknowledged and issues no call. A rejected switch
// still updates the display from the backend's reply and returns a
// CommandError carrying the backend's message.
func (g *ModeGate) Switch(ctx context.Context, target models.MTradingMode, ack interfaces.IAcknowledger) (models.MTradingModeState, error) {
	if target != models.TradingModePaper && target != models.TradingModeLive {
		return g.State(), helpers.NewCommandError("invalid mode. Must be PAPER or LIVE")
	}
	if g.Tokens == nil || g.Tokens.Token() == "" {
		return g.State(), helpers.NewAuthorizationError("login required to change trading mode")
	}

	if target == models.TradingModeLive {
		if ack == nil || !ack.Acknowledge(ctx, LiveWarning) {
			g.Logger.Info("Switch to LIVE not acknowledged")
			return g.State(), helpers.ErrNotAcknowledged
		}
	}

	g.mu.RLock()
	issued := g.generation
	g.mu.RUnlock()

	resp, err := g.Backend.SetTradingMode(ctx, target)
	if err != nil {
		g.Logger.Warning("Trading mode switch to %s failed: %v", target, err)
		return g.State(), err
	}

	state, _ := g.apply(resp, issued, true)
	if g.Refresher != nil {
		g.Refresher.RequestRefresh()
	}

	if state.Mode != target {
		return state, helpers.NewCommandError(resp.Message)
	}
	g.Logger.Info("Trading mode is now %s", state.Mode)
	return state, nil
}

// -----------------------------------------------------------------------------

// Generation identifies the latest applied switch. Pollers read it before
// fetching the mode and hand it back to ObserveAt.
func (g *ModeGate) Generation() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.generation
}

// Observe records a mode reported by a poll issued now.
func (g *ModeGate) Observe(resp models.MTradingModeResponse) models.MTradingModeState {
	return g.ObserveAt(g.Generation(), resp)
}

// ObserveAt records a mode reported by a poll issued at generation. A poll
// issued before the latest switch reply or reset is dropped. Returns the
// resulting state.
func (g *ModeGate) ObserveAt(generation uint64, resp models.MTradingModeResponse) models.MTradingModeState {
	state, _ := g.apply(resp, generation, false)
	return state
}

// Reset forgets the displayed mode, as after a logout. Replies to requests
// issued before the reset are dropped.
func (g *ModeGate) Reset() {
	g.mu.Lock()
	changed := g.state != models.MTradingModeState{}
	g.state = models.MTradingModeState{}
	g.generation++
	g.mu.Unlock()

	if changed && g.Sink != nil {
		g.Sink.OnTradingModeChanged(models.MTradingModeState{})
	}
}

// -----------------------------------------------------------------------------

// apply stores the mode in resp unless generation is older than the gate's.
// A switch reply advances the generation and is always announced.
func (g *ModeGate) apply(resp models.MTradingModeResponse, generation uint64, fromSwitch bool) (models.MTradingModeState, bool) {
	mode, ok := models.ParseTradingMode(resp.Mode)
	if !ok {
		g.Logger.Warning("Backend reported unknown trading mode %q", resp.Mode)
		return g.State(), false
	}

	g.mu.Lock()
	if generation < g.generation {
		state := g.state
		g.mu.Unlock()
		g.Logger.Debug("Dropping stale trading mode %s", mode)
		return state, false
	}
	if fromSwitch {
		g.generation++
	}
	changed := g.state.Mode != mode
	g.state = models.MTradingModeState{
		Mode:       mode,
		LiveBanner: mode == models.TradingModeLive,
		Message:    resp.Message,
	}
	state := g.state
	g.mu.Unlock()

	if (changed || fromSwitch) && g.Sink != nil {
		g.Sink.OnTradingModeChanged(state)
	}
	return state, changed
}

// -----------------------------------------------------------------------------

func (g *ModeGate) State() models.MTradingModeState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}
