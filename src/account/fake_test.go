package account

import (
	"context"
	"errors"
	"sync"

	"trade-sync/src/models"

	"github.com/shopspring/decimal"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

type fixedAck bool

func (a fixedAck) Acknowledge(ctx context.Context, warning string) bool { return bool(a) }

// fakeAccountBackend serves canned account data. The mode field is the
// backend's authoritative trading mode.
type fakeAccountBackend struct {
	mu           sync.Mutex
	balance      decimal.Decimal
	positions    []models.MPosition
	orders       []models.MOrder
	mode         models.MTradingMode
	rejectLive   bool
	failBalance  bool
	balanceCalls int
	modeSwitches []models.MTradingMode
	placed       []models.MOrderRequest
	rejectOrders bool

	// When modeRead is set, TradingMode closes it after reading the mode and
	// then waits for releaseMode before replying.
	modeRead    chan struct{}
	releaseMode chan struct{}
}

func (f *fakeAccountBackend) Balance(ctx context.Context) (models.MBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balanceCalls++
	if f.failBalance {
		return models.MBalance{}, errors.New("balance unavailable")
	}
	return models.MBalance{Balance: f.balance}, nil
}

func (f *fakeAccountBackend) Portfolio(ctx context.Context) ([]models.MPosition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.MPosition(nil), f.positions...), nil
}

func (f *fakeAccountBackend) Orders(ctx context.Context) ([]models.MOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.MOrder(nil), f.orders...), nil
}

func (f *fakeAccountBackend) PlaceOrder(ctx context.Context, req models.MOrderRequest) (models.MOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.placed = append(f.placed, req)
	if f.rejectOrders {
		return models.MOrder{}, errors.New("insufficient balance")
	}
	order := models.MOrder{
		ID:         int64(len(f.orders) + 1),
		Symbol:     req.Symbol,
		Side:       req.Side,
		Type:       req.Type,
		Status:     "OPEN",
		Quantity:   req.Quantity,
		LimitPrice: req.LimitPrice,
	}
	f.orders = append(f.orders, order)
	return order, nil
}

func (f *fakeAccountBackend) placedOrders() []models.MOrderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.MOrderRequest(nil), f.placed...)
}

func (f *fakeAccountBackend) TradingMode(ctx context.Context) (models.MTradingModeResponse, error) {
	f.mu.Lock()
	mode := f.mode
	read, release := f.modeRead, f.releaseMode
	f.modeRead = nil
	f.mu.Unlock()

	if read != nil {
		close(read)
		<-release
	}
	return models.MTradingModeResponse{Mode: string(mode)}, nil
}

func (f *fakeAccountBackend) SetTradingMode(ctx context.Context, mode models.MTradingMode) (models.MTradingModeResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modeSwitches = append(f.modeSwitches, mode)
	if mode == models.TradingModeLive && f.rejectLive {
		return models.MTradingModeResponse{Mode: string(f.mode), Message: "Cannot switch to LIVE mode: Kraken API connection failed."}, nil
	}
	f.mode = mode
	return models.MTradingModeResponse{Mode: string(mode), Message: "ok"}, nil
}

func (f *fakeAccountBackend) switches() []models.MTradingMode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.MTradingMode(nil), f.modeSwitches...)
}

func (f *fakeAccountBackend) setFailBalance(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failBalance = v
}

func (f *fakeAccountBackend) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balanceCalls
}
