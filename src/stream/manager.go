package stream

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"trade-sync/src/helpers"
	"trade-sync/src/interfaces"
	"trade-sync/src/logger"
	"trade-sync/src/models"

	"github.com/cenkalti/backoff/v5"
)

// ITickApplier consumes decoded ticks.
type ITickApplier interface {
	ApplyTick(tick models.MTick) (models.MPriceChange, error)
}

// -----------------------------------------------------------------------------
// ConnectionManager owns the single streaming connection: it dials,
// subscribes to the full market list on every open, forwards ticks and
// reconnects after a fixed delay forever. Cancelling the context given to
// Run is the only way to stop it.
// -----------------------------------------------------------------------------

type ConnectionManager struct {
	URL            string
	Dialer         interfaces.IStreamDialer
	Symbols        func() []string
	Ticks          ITickApplier
	Sink           interfaces.IEventSink
	Logger         *logger.Logger
	ReconnectDelay time.Duration

	running      atomic.Bool
	done         chan struct{}
	mu           sync.RWMutex
	stats        models.MStreamStats
	subscription []string
}

// -----------------------------------------------------------------------------

func NewConnectionManager(
	url string,
	dialer interfaces.IStreamDialer,
	symbols func() []string,
	ticks ITickApplier,
	sink interfaces.IEventSink,
	log *logger.Logger,
	reconnectDelay time.Duration,
) *ConnectionManager {
	return &ConnectionManager{
		URL:            url,
		Dialer:         dialer,
		Symbols:        symbols,
		Ticks:          ticks,
		Sink:           sink,
		Logger:         log,
		ReconnectDelay: reconnectDelay,
		done:           make(chan struct{}),
	}
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Start runs the connection loop in its own goroutine. Done is closed when
// the loop exits.
func (m *ConnectionManager) Start(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return helpers.ErrAlreadyRunning
	}
	go func() {
		defer close(m.done)
		m.run(ctx)
	}()
	return nil
}

// Done is closed once a started loop has exited.
func (m *ConnectionManager) Done() <-chan struct{} {
	return m.done
}

// -----------------------------------------------------------------------------

func (m *ConnectionManager) run(ctx context.Context) {
	defer m.setState(models.StateDisconnected)

	delay := backoff.NewConstantBackOff(m.ReconnectDelay)
	attempt := 0

	for ctx.Err() == nil {
		if attempt > 0 {
			m.mu.Lock()
			m.stats.Reconnects++
			m.mu.Unlock()
		}
		attempt++

		err := m.connectOnce(ctx)
		if ctx.Err() != nil {
			return
		}

		wait := delay.NextBackOff()
		m.recordError(err)
		m.setState(models.StateRetrying)
		m.Logger.Warning("Connection lost (%v). Retrying in %v", err, wait)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// -----------------------------------------------------------------------------

// connectOnce dials, subscribes and reads until the connection fails. It
// always returns a non-nil error.
func (m *ConnectionManager) connectOnce(ctx context.Context) error {
	m.setState(models.StateConnecting)

	conn, err := m.Dialer.Dial(ctx, m.URL)
	if err != nil {
		return helpers.NewTransportError("dial "+m.URL, err)
	}
	defer conn.Close()

	// Unblock ReadMessage when the client is torn down.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	m.mu.Lock()
	m.stats.Connects++
	m.stats.LastConnected = time.Now().Unix()
	m.mu.Unlock()
	m.setState(models.StateConnected)
	m.Logger.Info("Connected to stream %s", m.URL)

	symbols := m.currentSymbols()
	frame, err := EncodeSubscribe(symbols)
	if err != nil {
		return helpers.NewProtocolError("encode subscribe", err)
	}
	m.mu.Lock()
	m.subscription = symbols
	m.mu.Unlock()
	if err := conn.WriteMessage(frame); err != nil {
		return helpers.NewTransportError("send subscribe", err)
	}

	for {
		data, err := conn.ReadMessage()
		if err != nil {
			return helpers.NewTransportError("read", err)
		}
		m.handleMessage(data)
	}
}

// -----------------------------------------------------------------------------
// Message handling
// -----------------------------------------------------------------------------

func (m *ConnectionManager) handleMessage(data []byte) {
	msg, err := DecodeServerMessage(data)
	if err != nil {
		m.ignore(err)
		return
	}

	switch msg.Type {
	case models.StreamTypeTick:
		if _, err := m.Ticks.ApplyTick(*msg.Tick); err != nil {
			m.ignore(err)
			return
		}
		m.mu.Lock()
		m.stats.TicksApplied++
		m.mu.Unlock()
	case models.StreamTypeSubscribed:
		m.Logger.Info("Subscribed to: %s", strings.Join(msg.Subscribed.Symbols, ", "))
	}
}

func (m *ConnectionManager) ignore(err error) {
	m.mu.Lock()
	m.stats.Ignored++
	m.mu.Unlock()
	m.Logger.Warning("Ignoring stream message: %v", err)
	if m.Sink != nil {
		m.Sink.OnError("stream", err)
	}
}

// -----------------------------------------------------------------------------
// State
// -----------------------------------------------------------------------------

func (m *ConnectionManager) setState(state models.MConnectionState) {
	m.mu.Lock()
	changed := m.stats.State != state
	m.stats.State = state
	m.mu.Unlock()

	if changed && m.Sink != nil {
		m.Sink.OnConnectionStateChanged(state)
	}
}

func (m *ConnectionManager) recordError(err error) {
	if err == nil {
		return
	}
	m.mu.Lock()
	m.stats.LastError = err.Error()
	m.mu.Unlock()
}

func (m *ConnectionManager) currentSymbols() []string {
	if m.Symbols == nil {
		return []string{}
	}
	symbols := append([]string{}, m.Symbols()...)
	return symbols
}

// State returns the current connection state.
func (m *ConnectionManager) State() models.MConnectionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats.State
}

// Stats returns a copy of the lifecycle counters.
func (m *ConnectionManager) Stats() models.MStreamStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// Subscription returns the symbol list sent on the latest open.
func (m *ConnectionManager) Subscription() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.subscription...)
}
