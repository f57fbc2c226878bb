package account

import (
	"context"
	"strings"

	"trade-sync/src/helpers"
	"trade-sync/src/interfaces"
	"trade-sync/src/logger"
	"trade-sync/src/models"

	"github.com/shopspring/decimal"
)

const (
	SideBuy  = "BUY"
	SideSell = "SELL"

	OrderMarket = "MARKET"
	OrderLimit  = "LIMIT"
)

// -----------------------------------------------------------------------------
// OrderDesk places manual orders. A placed order triggers an account refresh
// so the order list and balance follow without waiting for the next poll.
// -----------------------------------------------------------------------------

type OrderDesk struct {
	Backend   interfaces.IAccountBackend
	Tokens    interfaces.ITokenSource
	Refresher interfaces.IAccountRefresher
	Sink      interfaces.IEventSink
	Logger    *logger.Logger
}

// -----------------------------------------------------------------------------

func NewOrderDesk(
	backend interfaces.IAccountBackend,
	tokens interfaces.ITokenSource,
	refresher interfaces.IAccountRefresher,
	sink interfaces.IEventSink,
	log *logger.Logger,
) *OrderDesk {
	return &OrderDesk{
		Backend:   backend,
		Tokens:    tokens,
		Refresher: refresher,
		Sink:      sink,
		Logger:    log,
	}
}

// -----------------------------------------------------------------------------

// ParseOrder builds a request from user input such as "buy 0.5 BTC-USD" with
// an optional limit price. Without a limit the order is a market order.
func ParseOrder(side, quantity, symbol, limit string) (models.MOrderRequest, error) {
	qty, err := decimal.NewFromString(strings.TrimSpace(quantity))
	if err != nil {
		return models.MOrderRequest{}, helpers.NewCommandError("invalid quantity " + quantity)
	}
	req := models.MOrderRequest{Symbol: symbol, Side: side, Quantity: qty}

	if limit = strings.TrimSpace(limit); limit != "" {
		price, err := decimal.NewFromString(limit)
		if err != nil {
			return models.MOrderRequest{}, helpers.NewCommandError("invalid limit price " + limit)
		}
		req.LimitPrice = decimal.NewNullDecimal(price)
	}
	return Normalize(req)
}

// Normalize upper-cases the request, derives the order type and validates it.
func Normalize(req models.MOrderRequest) (models.MOrderRequest, error) {
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	req.Side = strings.ToUpper(strings.TrimSpace(req.Side))
	req.Type = strings.ToUpper(strings.TrimSpace(req.Type))
	if req.Type == "" {
		req.Type = OrderMarket
		if req.LimitPrice.Valid {
			req.Type = OrderLimit
		}
	}

	switch {
	case req.Symbol == "":
		return req, helpers.NewCommandError("order needs a symbol")
	case req.Side != SideBuy && req.Side != SideSell:
		return req, helpers.NewCommandError("side must be BUY or SELL")
	case !req.Quantity.IsPositive():
		return req, helpers.NewCommandError("quantity must be positive")
	case req.Type != OrderMarket && req.Type != OrderLimit:
		return req, helpers.NewCommandError("type must be MARKET or LIMIT")
	case req.Type == OrderLimit && (!req.LimitPrice.Valid || !req.LimitPrice.Decimal.IsPositive()):
		return req, helpers.NewCommandError("limit order needs a positive limit price")
	case req.Type == OrderMarket && req.LimitPrice.Valid:
		return req, helpers.NewCommandError("market order takes no limit price")
	}
	return req, nil
}

// -----------------------------------------------------------------------------

// Place validates req and sends it. The result is reported to the sink as a
// command outcome carrying the order.
func (d *OrderDesk) Place(ctx context.Context, req models.MOrderRequest) (models.MOrder, error) {
	req, err := Normalize(req)
	if err != nil {
		return models.MOrder{}, err
	}
	if d.Tokens == nil || d.Tokens.Token() == "" {
		return models.MOrder{}, helpers.NewAuthorizationError("login required to place orders")
	}

	order, err := d.Backend.PlaceOrder(ctx, req)
	if err != nil {
		d.Logger.Warning("Order %s %s %s failed: %v", req.Side, req.Quantity, req.Symbol, err)
		d.emit(models.MCommandOutcome{Success: false, Message: "Order failed: " + err.Error()})
		return models.MOrder{}, err
	}

	d.Logger.Info("Placed %s", order.Summary())
	d.emit(models.MCommandOutcome{Success: true, Message: "Order placed", Order: &order})
	if d.Refresher != nil {
		d.Refresher.RequestRefresh()
	}
	return order, nil
}

func (d *OrderDesk) emit(outcome models.MCommandOutcome) {
	if d.Sink != nil {
		d.Sink.OnCommandResult(outcome)
	}
}
