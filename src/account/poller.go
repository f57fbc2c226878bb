package account

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"trade-sync/src/helpers"
	"trade-sync/src/interfaces"
	"trade-sync/src/logger"
	"trade-sync/src/models"
)

// -----------------------------------------------------------------------------
// Poller refreshes the account state on a fixed interval while a token is
// present. Each of the four fetches is independent: a failure keeps the
// previous value of that slice only.
// -----------------------------------------------------------------------------

type Poller struct {
	Backend  interfaces.IAccountBackend
	Tokens   interfaces.ITokenSource
	Modes    *ModeGate
	Sink     interfaces.IEventSink
	Logger   *logger.Logger
	Interval time.Duration

	mu       sync.RWMutex
	snapshot models.MAccountSnapshot
	epoch    uint64 // advanced by Reset; results of older cycles are dropped
	refresh  chan struct{}
	running  atomic.Bool
	done     chan struct{}
}

// -----------------------------------------------------------------------------

func NewPoller(
	backend interfaces.IAccountBackend,
	tokens interfaces.ITokenSource,
	modes *ModeGate,
	sink interfaces.IEventSink,
	log *logger.Logger,
	interval time.Duration,
) *Poller {
	return &Poller{
		Backend:  backend,
		Tokens:   tokens,
		Modes:    modes,
		Sink:     sink,
		Logger:   log,
		Interval: interval,
		refresh:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// -----------------------------------------------------------------------------

// Start polls immediately and then every Interval until ctx is done.
func (p *Poller) Start(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return helpers.ErrAlreadyRunning
	}
	go func() {
		defer close(p.done)
		p.run(ctx)
	}()
	return nil
}

// Done is closed once a started poller has exited.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

// -----------------------------------------------------------------------------

func (p *Poller) run(ctx context.Context) {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	p.PollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-p.refresh:
		}
		p.PollOnce(ctx)
	}
}

// -----------------------------------------------------------------------------

// RequestRefresh schedules an extra poll. Requests made while one is already
// queued are merged.
func (p *Poller) RequestRefresh() {
	select {
	case p.refresh <- struct{}{}:
	default:
	}
}

// -----------------------------------------------------------------------------

// PollOnce runs one cycle and reports how many fetches succeeded. Without a
// token nothing is fetched.
func (p *Poller) PollOnce(ctx context.Context) int {
	if p.Tokens == nil || p.Tokens.Token() == "" {
		return 0
	}

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		modeGen   uint64
	)
	if p.Modes != nil {
		modeGen = p.Modes.Generation()
	}
	p.mu.RLock()
	epoch := p.epoch
	p.mu.RUnlock()

	// store applies fn to the snapshot unless a Reset happened meanwhile.
	store := func(fn func(*models.MAccountSnapshot)) {
		p.mu.Lock()
		if p.epoch == epoch {
			fn(&p.snapshot)
		}
		p.mu.Unlock()
	}
	fetch := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				p.Logger.Warning("Account %s refresh failed: %v", name, err)
				return
			}
			successes.Add(1)
		}()
	}

	fetch("balance", func() error {
		balance, err := p.Backend.Balance(ctx)
		if err != nil {
			return err
		}
		store(func(a *models.MAccountSnapshot) { a.Balance = balance.Balance })
		return nil
	})
	fetch("portfolio", func() error {
		positions, err := p.Backend.Portfolio(ctx)
		if err != nil {
			return err
		}
		store(func(a *models.MAccountSnapshot) { a.Portfolio = positions })
		return nil
	})
	fetch("orders", func() error {
		orders, err := p.Backend.Orders(ctx)
		if err != nil {
			return err
		}
		store(func(a *models.MAccountSnapshot) { a.Orders = orders })
		return nil
	})
	fetch("trading mode", func() error {
		resp, err := p.Backend.TradingMode(ctx)
		if err != nil {
			return err
		}
		var state models.MTradingModeState
		if p.Modes != nil {
			state = p.Modes.ObserveAt(modeGen, resp)
		} else {
			mode, ok := models.ParseTradingMode(resp.Mode)
			if !ok {
				return helpers.NewProtocolError("unknown trading mode "+resp.Mode, nil)
			}
			state = models.MTradingModeState{Mode: mode, LiveBanner: mode == models.TradingModeLive}
		}
		store(func(a *models.MAccountSnapshot) {
			a.TradingMode = state.Mode
			a.LiveBanner = state.LiveBanner
		})
		return nil
	})
	wg.Wait()

	n := int(successes.Load())
	if n == 0 {
		return 0
	}

	p.mu.Lock()
	if p.epoch != epoch {
		p.mu.Unlock()
		return 0
	}
	p.snapshot.UpdatedAt = time.Now()
	snapshot := p.snapshot.Clone()
	p.mu.Unlock()

	if p.Sink != nil {
		p.Sink.OnAccountUpdated(snapshot)
	}
	return n
}

// -----------------------------------------------------------------------------

// Snapshot returns a copy of the latest account state.
func (p *Poller) Snapshot() models.MAccountSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot.Clone()
}

// -----------------------------------------------------------------------------

// Reset clears the account state, as after a logout. A cycle still in flight
// does not write its results back.
func (p *Poller) Reset() {
	p.mu.Lock()
	p.snapshot = models.MAccountSnapshot{}
	p.epoch++
	p.mu.Unlock()

	if p.Sink != nil {
		p.Sink.OnAccountUpdated(models.MAccountSnapshot{})
	}
}
