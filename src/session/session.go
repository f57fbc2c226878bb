package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"trade-sync/src/account"
	"trade-sync/src/auth"
	"trade-sync/src/confirm"
	"trade-sync/src/events"
	"trade-sync/src/helpers"
	"trade-sync/src/interfaces"
	"trade-sync/src/logger"
	"trade-sync/src/models"
	"trade-sync/src/network"
	"trade-sync/src/prices"
	"trade-sync/src/storage"
	"trade-sync/src/stream"
	"trade-sync/src/utils"
)

const (
	marketRetryDelay = time.Second
	handshakeTimeout = 10 * time.Second
)

// Options overrides the defaults derived from the config. Zero values keep
// the defaults.
type Options struct {
	Dialer         interfaces.IStreamDialer
	Store          interfaces.ISessionStore
	Sinks          []interfaces.IEventSink
	ReconnectDelay time.Duration
	PollInterval   time.Duration
}

// -----------------------------------------------------------------------------
// Client owns one instance of every component and wires them together.
// -----------------------------------------------------------------------------

type Client struct {
	Config *models.MConfig
	Logger *logger.Logger

	Store         interfaces.ISessionStore
	Auth          *auth.Session
	Backend       *network.BackendClient
	Cache         *prices.Cache
	Dispatcher    *prices.Dispatcher
	Events        *events.Fanout
	Stream        *stream.ConnectionManager
	Modes         *account.ModeGate
	Poller        *account.Poller
	Orders        *account.OrderDesk
	Confirmations *confirm.Coordinator
	ActivityLog   *utils.ActivityLog

	started   atomic.Bool
	stopped   atomic.Bool
	startDone chan struct{} // closed when Start returns
	mu        sync.Mutex
	markets []string
	cancel  context.CancelFunc
	running []<-chan struct{}
}

// -----------------------------------------------------------------------------

// New builds the client and initializes its store. Nothing runs until Start.
func New(cfg *models.MConfig, log *logger.Logger, opts Options) (*Client, error) {
	proxy, err := helpers.ProxyFunc(cfg.Backend.Proxy)
	if err != nil {
		return nil, err
	}

	store := opts.Store
	if store == nil {
		if store, err = storage.NewSessionStore(cfg, log.Named("storage")); err != nil {
			return nil, err
		}
	}
	if err := store.Initialize(); err != nil {
		return nil, err
	}

	c := &Client{
		Config:      cfg,
		Logger:      log,
		Store:       store,
		ActivityLog: utils.NewActivityLog(utils.ActivityLogCapacity),
		startDone:   make(chan struct{}),
	}

	c.Events = events.NewFanout(c.ActivityLog)
	for _, s := range opts.Sinks {
		c.Events.Add(s)
	}

	c.Auth = auth.NewSession(nil, store, log.Named("auth"))
	c.Backend = network.NewBackendClient(cfg, c.Auth, log.Named("network"))
	c.Auth.Backend = c.Backend

	c.Cache = prices.NewCache()
	c.Dispatcher = prices.NewDispatcher(c.Cache, c.Events, log.Named("prices"))

	dialer := opts.Dialer
	if dialer == nil {
		ws := stream.NewWebsocketDialer(handshakeTimeout)
		ws.Dialer.Proxy = proxy
		dialer = ws
	}
	reconnect := opts.ReconnectDelay
	if reconnect <= 0 {
		reconnect = time.Duration(cfg.Stream.ReconnectDelaySeconds) * time.Second
	}
	c.Stream = stream.NewConnectionManager(cfg.Backend.StreamURL, dialer, c.Symbols, c.Dispatcher, c.Events, log.Named("stream"), reconnect)

	interval := opts.PollInterval
	if interval <= 0 {
		interval = time.Duration(cfg.Account.PollIntervalSeconds) * time.Second
	}
	c.Modes = account.NewModeGate(c.Backend, c.Auth, c.Events, log.Named("trading-mode"))
	c.Poller = account.NewPoller(c.Backend, c.Auth, c.Modes, c.Events, log.Named("account"), interval)
	c.Modes.Refresher = c.Poller
	c.Orders = account.NewOrderDesk(c.Backend, c.Auth, c.Poller, c.Events, log.Named("orders"))

	c.Confirmations = confirm.NewCoordinator(c.Backend, c.Auth, c.Poller, store, c.Events, log.Named("confirm"))
	return c, nil
}

// AddSink registers another event sink (dashboard, console, health).
func (c *Client) AddSink(s interfaces.IEventSink) {
	c.Events.Add(s)
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Start restores persisted state, loads the market list (retrying until ctx
// ends), seeds the price cache and starts the stream and the poller. It
// returns once both are running.
func (c *Client) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return helpers.ErrAlreadyRunning
	}
	defer close(c.startDone)

	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	if c.stopped.Load() {
		c.mu.Unlock()
		cancel()
		return context.Canceled
	}
	c.cancel = cancel
	c.mu.Unlock()

	if err := c.Auth.Restore(); err != nil {
		c.Logger.Warning("Failed to restore session: %v", err)
	}
	if err := c.Confirmations.Restore(); err != nil {
		c.Logger.Warning("Failed to restore confirmations: %v", err)
	}

	markets, err := helpers.RetryWithBackoff(ctx, "load markets", 0, marketRetryDelay, c.Logger, func() ([]string, error) {
		return c.Backend.ListMarkets(ctx)
	})
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.markets = append([]string(nil), markets...)
	c.mu.Unlock()
	c.Logger.Info("Loaded %d markets", len(markets))

	if latest, err := c.Backend.LatestPrices(ctx); err != nil {
		c.Logger.Warning("Initial prices unavailable: %v", err)
		c.Events.OnError("prices", err)
	} else {
		c.Cache.Seed(latest)
	}

	if err := c.Stream.Start(ctx); err != nil {
		return err
	}
	c.track(c.Stream.Done())

	if err := c.Poller.Start(ctx); err != nil {
		return err
	}
	c.track(c.Poller.Done())
	return nil
}

func (c *Client) track(done <-chan struct{}) {
	c.mu.Lock()
	c.running = append(c.running, done)
	c.mu.Unlock()
}

// -----------------------------------------------------------------------------

// Stop cancels the client lifetime, waits for a Start in progress to return,
// then for every loop and background call to exit, and closes the store.
func (c *Client) Stop() error {
	c.mu.Lock()
	if !c.stopped.CompareAndSwap(false, true) {
		c.mu.Unlock()
		return nil
	}
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if c.started.Load() {
		<-c.startDone
	}

	c.mu.Lock()
	running := c.running
	c.running = nil
	c.mu.Unlock()

	for _, done := range running {
		<-done
	}
	c.Confirmations.Wait()
	return c.Store.Close()
}

// -----------------------------------------------------------------------------

// Symbols is the subscription list: the market list, or the cached symbols
// when the market list is not loaded.
func (c *Client) Symbols() []string {
	c.mu.Lock()
	markets := append([]string(nil), c.markets...)
	c.mu.Unlock()
	if len(markets) > 0 {
		return markets
	}
	return c.Cache.Symbols()
}

// -----------------------------------------------------------------------------
// IDashboardSession Implementation
// -----------------------------------------------------------------------------

func (c *Client) Snapshot() models.MDashboardSnapshot {
	return models.MDashboardSnapshot{
		Prices:        c.Prices(),
		Account:       c.Account(),
		TradingMode:   c.TradingMode(),
		Stream:        c.StreamStats(),
		Confirmations: c.ActiveConfirmations(),
		LoggedIn:      c.LoggedIn(),
	}
}

func (c *Client) Prices() map[string]models.MPriceSnapshot {
	return c.Cache.Snapshot()
}

func (c *Client) Account() models.MAccountSnapshot {
	return c.Poller.Snapshot()
}

func (c *Client) TradingMode() models.MTradingModeState {
	return c.Modes.State()
}

func (c *Client) StreamStats() models.MStreamStats {
	return c.Stream.Stats()
}

func (c *Client) ActiveConfirmations() []models.MConfirmation {
	return c.Confirmations.Active()
}

func (c *Client) ConfirmationHistory() []models.MConfirmation {
	return c.Confirmations.History()
}

func (c *Client) Confirmation(id string) (models.MConfirmation, bool) {
	return c.Confirmations.Get(id)
}

func (c *Client) Activity() []models.MActivityEntry {
	return c.ActivityLog.Entries()
}

func (c *Client) LoggedIn() bool {
	return c.Auth.HasToken()
}

// -----------------------------------------------------------------------------

func (c *Client) SubmitCommand(ctx context.Context, text string) (models.MSubmitResult, error) {
	return c.Confirmations.SubmitCommand(ctx, text)
}

func (c *Client) ResolveConfirmation(ctx context.Context, id string, accept bool) (models.MConfirmation, error) {
	return c.Confirmations.Resolve(ctx, id, accept)
}

func (c *Client) SwitchTradingMode(ctx context.Context, mode models.MTradingMode, ack interfaces.IAcknowledger) (models.MTradingModeState, error) {
	return c.Modes.Switch(ctx, mode, ack)
}

func (c *Client) PlaceOrder(ctx context.Context, req models.MOrderRequest) (models.MOrder, error) {
	return c.Orders.Place(ctx, req)
}

// -----------------------------------------------------------------------------

// Login stores the new token and asks for an immediate account refresh.
func (c *Client) Login(ctx context.Context, email, password string) error {
	if err := c.Auth.Login(ctx, email, password); err != nil {
		return err
	}
	c.Poller.RequestRefresh()
	return nil
}

func (c *Client) Signup(ctx context.Context, email, password string) error {
	return c.Auth.Signup(ctx, email, password)
}

// Logout drops the token and everything fetched with it: the account
// snapshot and the trading mode.
func (c *Client) Logout() error {
	err := c.Auth.Logout()
	c.Poller.Reset()
	c.Modes.Reset()
	return err
}
