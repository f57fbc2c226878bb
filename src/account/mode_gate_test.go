package account

import (
	"context"
	"testing"

	"trade-sync/src/events"
	"trade-sync/src/helpers"
	"trade-sync/src/logger"
	"trade-sync/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGate(backend *fakeAccountBackend, token string) (*ModeGate, *events.Recorder) {
	rec := events.NewRecorder()
	return NewModeGate(backend, staticToken(token), rec, logger.NewLogger("ERROR", "gate-test")), rec
}

func TestDeclinedAcknowledgmentIssuesNoCall(t *testing.T) {
	backend := &fakeAccountBackend{mode: models.TradingModePaper}
	gate, rec := newGate(backend, "tok")
	gate.Observe(models.MTradingModeResponse{Mode: "PAPER"})

	state, err := gate.Switch(context.Background(), models.TradingModeLive, fixedAck(false))
	assert.ErrorIs(t, err, helpers.ErrNotAcknowledged)
	assert.Equal(t, models.TradingModePaper, state.Mode)
	assert.False(t, state.LiveBanner)
	assert.Equal(t, models.TradingModePaper, gate.State().Mode)
	assert.Empty(t, backend.switches())
	assert.Len(t, rec.Modes(), 1)
}

func TestNilAcknowledgerCountsAsDeclined(t *testing.T) {
	backend := &fakeAccountBackend{mode: models.TradingModePaper}
	gate, _ := newGate(backend, "tok")

	_, err := gate.Switch(context.Background(), models.TradingModeLive, nil)
	assert.ErrorIs(t, err, helpers.ErrNotAcknowledged)
	assert.Empty(t, backend.switches())
}

func TestAcknowledgedSwitchShowsBackendMode(t *testing.T) {
	backend := &fakeAccountBackend{mode: models.TradingModePaper}
	gate, rec := newGate(backend, "tok")

	state, err := gate.Switch(context.Background(), models.TradingModeLive, fixedAck(true))
	require.NoError(t, err)
	assert.Equal(t, models.TradingModeLive, state.Mode)
	assert.True(t, state.LiveBanner)
	assert.Equal(t, []models.MTradingMode{models.TradingModeLive}, backend.switches())

	modes := rec.Modes()
	require.Len(t, modes, 1)
	assert.True(t, modes[0].LiveBanner)
}

func TestRejectedSwitchKeepsBackendMode(t *testing.T) {
	backend := &fakeAccountBackend{mode: models.TradingModePaper, rejectLive: true}
	gate, rec := newGate(backend, "tok")

	state, err := gate.Switch(context.Background(), models.TradingModeLive, fixedAck(true))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Kraken")
	assert.Equal(t, models.TradingModePaper, state.Mode)
	assert.False(t, state.LiveBanner)
	assert.Equal(t, []models.MTradingMode{models.TradingModeLive}, backend.switches())

	modes := rec.Modes()
	require.Len(t, modes, 1)
	assert.Equal(t, models.TradingModePaper, modes[0].Mode)
}

func TestPaperNeedsNoAcknowledgment(t *testing.T) {
	backend := &fakeAccountBackend{mode: models.TradingModeLive}
	gate, _ := newGate(backend, "tok")
	gate.Observe(models.MTradingModeResponse{Mode: "LIVE"})

	state, err := gate.Switch(context.Background(), models.TradingModePaper, nil)
	require.NoError(t, err)
	assert.Equal(t, models.TradingModePaper, state.Mode)
	assert.False(t, state.LiveBanner)
}

func TestSwitchWithoutTokenIsBlocked(t *testing.T) {
	backend := &fakeAccountBackend{mode: models.TradingModePaper}
	gate, _ := newGate(backend, "")

	_, err := gate.Switch(context.Background(), models.TradingModePaper, nil)
	assert.True(t, helpers.IsAuthorization(err))
	assert.Empty(t, backend.switches())
}

func TestObserveIgnoresUnknownModes(t *testing.T) {
	gate, rec := newGate(&fakeAccountBackend{}, "tok")
	gate.Observe(models.MTradingModeResponse{Mode: "live"})
	gate.Observe(models.MTradingModeResponse{Mode: "LIVE"})
	gate.Observe(models.MTradingModeResponse{Mode: "MARGIN"})

	assert.Equal(t, models.TradingModeLive, gate.State().Mode)
	assert.Len(t, rec.Modes(), 1)
}

func TestStalePollResultIsDropped(t *testing.T) {
	backend := &fakeAccountBackend{mode: models.TradingModePaper}
	gate, rec := newGate(backend, "tok")

	issued := gate.Generation()
	_, err := gate.Switch(context.Background(), models.TradingModeLive, fixedAck(true))
	require.NoError(t, err)

	state := gate.ObserveAt(issued, models.MTradingModeResponse{Mode: "PAPER"})
	assert.Equal(t, models.TradingModeLive, state.Mode)
	assert.True(t, gate.State().LiveBanner)
	assert.Len(t, rec.Modes(), 1)

	state = gate.ObserveAt(gate.Generation(), models.MTradingModeResponse{Mode: "PAPER"})
	assert.Equal(t, models.TradingModePaper, state.Mode)
}
