package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"trade-sync/src/account"
	"trade-sync/src/config"
	"trade-sync/src/events"
	"trade-sync/src/helpers"
	"trade-sync/src/interfaces"
	"trade-sync/src/logger"
	"trade-sync/src/models"
	"trade-sync/src/testbackend"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 3 * time.Second

func f(v float64) *float64 { return &v }

type ack bool

func (a ack) Acknowledge(context.Context, string) bool { return bool(a) }

func newConfig(t *testing.T, baseURL, dbPath string) *models.MConfig {
	t.Helper()
	cfg := config.Defaults()
	cfg.LogLevel = "ERROR"
	cfg.Backend.BaseURL = baseURL
	cfg.Backend.StreamURL = "ws" + strings.TrimPrefix(baseURL, "http") + "/ws/prices"
	cfg.Backend.RequestTimeout = 2
	cfg.Storage.DBPath = dbPath
	return cfg
}

func newTestClient(t *testing.T, cfg *models.MConfig) (*Client, *events.Recorder) {
	t.Helper()
	rec := events.NewRecorder()
	c, err := New(cfg, logger.NewLogger("ERROR", "session-test"), Options{
		Sinks:          []interfaces.IEventSink{rec},
		ReconnectDelay: 20 * time.Millisecond,
		PollInterval:   50 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { c.Stop() })
	return c, rec
}

// startBackend serves b and returns a client configured against it.
func startBackend(t *testing.T, b *testbackend.Backend) (*Client, *events.Recorder) {
	t.Helper()
	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)
	return newTestClient(t, newConfig(t, srv.URL, filepath.Join(t.TempDir(), "session.db")))
}

func startClient(t *testing.T, c *Client) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	require.NoError(t, c.Start(ctx))
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, waitTimeout, 5*time.Millisecond, msg)
}

// -----------------------------------------------------------------------------

func TestTickScenarioDirections(t *testing.T) {
	b := testbackend.New(logger.NewLogger("ERROR", "backend"))
	b.Ticks = []models.MTick{
		{Symbol: "BTC-USD", Last: f(100)},
		{Symbol: "BTC-USD", Last: f(105)},
		{Symbol: "BTC-USD", Last: f(105)},
	}
	c, rec := startBackend(t, b)
	startClient(t, c)

	eventually(t, func() bool { return len(rec.Prices()) >= 3 }, "ticks not applied")

	changes := rec.Prices()
	assert.Equal(t, models.DirectionUp, changes[1].Direction)
	assert.Equal(t, models.DirectionNone, changes[2].Direction)

	snap, ok := c.Cache.Get("BTC-USD")
	require.True(t, ok)
	assert.Equal(t, 105.0, snap.Last)
	assert.Equal(t, [][]string{{"BTC-USD", "ETH-USD"}}, b.Subscriptions())
}

func TestSeededPricesAreTheBaseline(t *testing.T) {
	b := testbackend.New(logger.NewLogger("ERROR", "backend"))
	b.Latest = map[string]testbackend.Ticker{"BTC-USD": {Symbol: "BTC-USD", Last: f(100), Bid: f(99), Ask: f(101)}}
	b.Ticks = []models.MTick{{Symbol: "BTC-USD", Last: f(99.5), Change24h: f(-0.4)}}
	c, rec := startBackend(t, b)
	startClient(t, c)

	eventually(t, func() bool { return len(rec.Prices()) == 1 }, "tick not applied")

	change := rec.Prices()[0]
	assert.Equal(t, models.DirectionDown, change.Direction)
	assert.Nil(t, change.Snapshot.Bid)
	assert.Equal(t, models.TickVariantChange24h, change.Snapshot.Variant)
}

func TestDeclineScenario(t *testing.T) {
	b := testbackend.New(logger.NewLogger("ERROR", "backend"))
	b.AddUser("trader@example.com", "secret")
	b.CommandReplies["buy 1 BTC"] = models.MCommandResponse{
		Success:              true,
		RequiresConfirmation: true,
		Message:              "Confirm buy 1 BTC at $105?",
		ConfirmationID:       "c-42",
	}
	c, rec := startBackend(t, b)
	startClient(t, c)
	ctx := context.Background()

	require.NoError(t, c.Login(ctx, "trader@example.com", "secret"))

	result, err := c.SubmitCommand(ctx, "buy 1 BTC")
	require.NoError(t, err)
	require.NotNil(t, result.Confirmation)
	assert.Equal(t, "c-42", result.Confirmation.ID)

	open, ok := c.Confirmation("c-42")
	require.True(t, ok)
	assert.Equal(t, models.ConfirmationPending, open.Status)
	assert.Equal(t, "Confirm buy 1 BTC at $105?", open.Message)
	require.Len(t, rec.Opened(), 1)

	declined, err := c.ResolveConfirmation(ctx, "c-42", false)
	require.NoError(t, err)
	assert.Equal(t, models.ConfirmationDeclined, declined.Status)

	c.Confirmations.Wait()
	assert.Equal(t, 0, b.CallCount(http.MethodPost, "/ai/confirm/c-42"))
	assert.Equal(t, 1, b.CallCount(http.MethodDelete, "/ai/confirm/c-42"))
	assert.False(t, b.Pending("c-42"))

	_, err = c.ResolveConfirmation(ctx, "c-42", true)
	assert.ErrorIs(t, err, helpers.ErrConfirmationClosed)
	assert.Empty(t, c.ActiveConfirmations())
}

func TestAcceptResolvesAndReportsBackendResult(t *testing.T) {
	b := testbackend.New(logger.NewLogger("ERROR", "backend"))
	b.AddUser("trader@example.com", "secret")
	b.CommandReplies["sell 0.5 BTC"] = models.MCommandResponse{
		Success:              true,
		RequiresConfirmation: true,
		ConfirmationMessage:  "Sell 0.5 BTC at market?",
		ConfirmationID:       "c-7",
	}
	b.ConfirmReplies["c-7"] = models.MCommandResponse{Success: true, Message: "Order executed: SELL 0.5 of BTC-USD"}
	c, rec := startBackend(t, b)
	startClient(t, c)
	ctx := context.Background()

	require.NoError(t, c.Login(ctx, "trader@example.com", "secret"))
	_, err := c.SubmitCommand(ctx, "sell 0.5 BTC")
	require.NoError(t, err)

	resolved, err := c.ResolveConfirmation(ctx, "c-7", true)
	require.NoError(t, err)
	assert.Equal(t, models.ConfirmationResolved, resolved.Status)
	assert.Equal(t, "Order executed: SELL 0.5 of BTC-USD", resolved.ResultMessage)
	assert.Equal(t, 1, b.CallCount(http.MethodPost, "/ai/confirm/c-7"))

	outcomes := rec.Outcomes()
	require.NotEmpty(t, outcomes)
	assert.True(t, outcomes[len(outcomes)-1].Success)
}

func TestCommandsBlockedWithoutLogin(t *testing.T) {
	b := testbackend.New(logger.NewLogger("ERROR", "backend"))
	c, _ := startBackend(t, b)
	startClient(t, c)

	_, err := c.SubmitCommand(context.Background(), "buy 1 BTC")
	require.Error(t, err)
	assert.True(t, helpers.IsAuthorization(err))

	_, err = c.SwitchTradingMode(context.Background(), models.TradingModePaper, ack(true))
	assert.True(t, helpers.IsAuthorization(err))

	assert.Equal(t, 0, b.CallCount(http.MethodPost, "/ai/command"))
	assert.Equal(t, 0, b.CallCount(http.MethodPost, "/account/trading-mode"))
	assert.False(t, c.LoggedIn())
}

func TestLiveSwitchRequiresAcknowledgment(t *testing.T) {
	b := testbackend.New(logger.NewLogger("ERROR", "backend"))
	b.KrakenConnected = true
	b.AddUser("trader@example.com", "secret")
	c, _ := startBackend(t, b)
	startClient(t, c)
	ctx := context.Background()
	require.NoError(t, c.Login(ctx, "trader@example.com", "secret"))

	_, err := c.SwitchTradingMode(ctx, models.TradingModeLive, ack(false))
	assert.ErrorIs(t, err, helpers.ErrNotAcknowledged)
	assert.Equal(t, 0, b.CallCount(http.MethodPost, "/account/trading-mode"))

	state, err := c.SwitchTradingMode(ctx, models.TradingModeLive, ack(true))
	require.NoError(t, err)
	assert.Equal(t, models.TradingModeLive, state.Mode)
	assert.True(t, state.LiveBanner)
	assert.Equal(t, models.TradingModeLive, b.Mode())
}

func TestReconnectResubscribes(t *testing.T) {
	b := testbackend.New(logger.NewLogger("ERROR", "backend"))
	c, rec := startBackend(t, b)
	startClient(t, c)

	eventually(t, func() bool { return len(b.Subscriptions()) == 1 }, "no initial subscribe")
	b.DropStreams()
	eventually(t, func() bool { return len(b.Subscriptions()) == 2 }, "no resubscribe after drop")

	subs := b.Subscriptions()
	assert.Equal(t, subs[0], subs[1])
	eventually(t, func() bool { return c.StreamStats().Reconnects >= 1 }, "reconnect not counted")
	assert.Contains(t, rec.States(), models.StateRetrying)
}

func TestAccountPolledAfterLogin(t *testing.T) {
	b := testbackend.New(logger.NewLogger("ERROR", "backend"))
	b.AddUser("trader@example.com", "secret")
	c, _ := startBackend(t, b)
	startClient(t, c)

	require.NoError(t, c.Login(context.Background(), "trader@example.com", "secret"))
	eventually(t, func() bool { return !c.Account().UpdatedAt.IsZero() }, "account never refreshed")

	snap := c.Snapshot()
	assert.True(t, snap.LoggedIn)
	assert.Equal(t, "10000", snap.Account.Balance.String())
	assert.Equal(t, models.TradingModePaper, snap.TradingMode.Mode)
}

func TestTokenSurvivesRestart(t *testing.T) {
	b := testbackend.New(logger.NewLogger("ERROR", "backend"))
	b.AddUser("trader@example.com", "secret")
	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)
	dbPath := filepath.Join(t.TempDir(), "session.db")

	first, _ := newTestClient(t, newConfig(t, srv.URL, dbPath))
	startClient(t, first)
	require.NoError(t, first.Login(context.Background(), "trader@example.com", "secret"))
	require.NoError(t, first.Stop())

	second, _ := newTestClient(t, newConfig(t, srv.URL, dbPath))
	startClient(t, second)
	assert.True(t, second.LoggedIn())
}

func TestStartGivesUpWhenContextEnds(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, _ := newTestClient(t, newConfig(t, url, filepath.Join(t.TempDir(), "session.db")))
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	assert.Error(t, c.Start(ctx))
	assert.Error(t, c.Start(context.Background()))
}

func TestStopWaitsForStartInProgress(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, _ := newTestClient(t, newConfig(t, url, filepath.Join(t.TempDir(), "session.db")))
	result := make(chan error, 1)
	go func() { result <- c.Start(context.Background()) }()
	eventually(t, c.started.Load, "start never began")

	require.NoError(t, c.Stop())
	select {
	case err := <-result:
		assert.Error(t, err)
	default:
		t.Fatal("Stop returned while Start was still running")
	}
	assert.Empty(t, c.running)
}

func TestStartAfterStopDoesNothing(t *testing.T) {
	b := testbackend.New(logger.NewLogger("ERROR", "backend"))
	c, _ := startBackend(t, b)
	require.NoError(t, c.Stop())

	assert.ErrorIs(t, c.Start(context.Background()), context.Canceled)
	assert.Zero(t, b.CallCount(http.MethodGet, "/markets"))
}

func TestLogoutClearsAccountState(t *testing.T) {
	b := testbackend.New(logger.NewLogger("ERROR", "backend"))
	b.AddUser("trader@example.com", "secret")
	b.KrakenConnected = true
	c, rec := startBackend(t, b)
	startClient(t, c)

	require.NoError(t, c.Login(context.Background(), "trader@example.com", "secret"))
	_, err := c.SwitchTradingMode(context.Background(), models.TradingModeLive, ack(true))
	require.NoError(t, err)
	eventually(t, func() bool { return c.Account().LiveBanner }, "account never showed LIVE")

	require.NoError(t, c.Logout())
	assert.False(t, c.LoggedIn())

	snap := c.Snapshot()
	assert.True(t, snap.Account.Balance.IsZero())
	assert.Empty(t, snap.Account.Orders)
	assert.False(t, snap.Account.LiveBanner)
	assert.Equal(t, models.TradingModeUnknown, snap.TradingMode.Mode)
	assert.False(t, snap.TradingMode.LiveBanner)

	modes := rec.Modes()
	assert.Equal(t, models.MTradingModeState{}, modes[len(modes)-1])

	// nothing is polled back in without a token
	time.Sleep(150 * time.Millisecond)
	assert.True(t, c.Account().Balance.IsZero())
	assert.Equal(t, models.TradingModeUnknown, c.TradingMode().Mode)
}

func TestPlaceOrderRefreshesOrders(t *testing.T) {
	b := testbackend.New(logger.NewLogger("ERROR", "backend"))
	b.AddUser("trader@example.com", "secret")
	c, rec := startBackend(t, b)
	startClient(t, c)
	ctx := context.Background()

	req, err := account.ParseOrder("buy", "0.5", "BTC-USD", "")
	require.NoError(t, err)
	_, err = c.PlaceOrder(ctx, req)
	assert.True(t, helpers.IsAuthorization(err))
	assert.Zero(t, b.CallCount(http.MethodPost, "/trade/orders"))

	require.NoError(t, c.Login(ctx, "trader@example.com", "secret"))
	order, err := c.PlaceOrder(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "BTC-USD", order.Symbol)
	assert.Equal(t, "MARKET", order.Type)

	eventually(t, func() bool { return len(c.Account().Orders) == 1 }, "placed order never polled in")

	unknown, err := account.ParseOrder("sell", "1", "DOGE-USD", "")
	require.NoError(t, err)
	_, err = c.PlaceOrder(ctx, unknown)
	require.Error(t, err)

	var placed, failed int
	for _, o := range rec.Outcomes() {
		if o.Order != nil {
			placed++
		}
		if !o.Success {
			failed++
		}
	}
	assert.Equal(t, 1, placed)
	assert.Equal(t, 1, failed)
}
