package network

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"trade-sync/src/helpers"
	"trade-sync/src/interfaces"
	"trade-sync/src/logger"
	"trade-sync/src/models"
	"trade-sync/src/prices"

	"github.com/cenkalti/backoff/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

const (
	retryBaseDelay  = 500 * time.Millisecond
	maxErrorBodyLen = 256
)

// -----------------------------------------------------------------------------
// BackendClient talks to the trading backend's REST API. GETs are retried on
// transport failures and 5xx replies; writes are sent once.
// -----------------------------------------------------------------------------

type BackendClient struct {
	Config  *models.MConfig
	Tokens  interfaces.ITokenSource
	Client  *http.Client
	Logger  *logger.Logger
	baseURL string
}

// -----------------------------------------------------------------------------

func NewBackendClient(cfg *models.MConfig, tokens interfaces.ITokenSource, log *logger.Logger) *BackendClient {
	bc := &BackendClient{
		Config:  cfg,
		Tokens:  tokens,
		Logger:  log,
		baseURL: strings.TrimRight(cfg.Backend.BaseURL, "/"),
	}
	bc.Client = bc.createClient()
	return bc
}

// -----------------------------------------------------------------------------

func (bc *BackendClient) createClient() *http.Client {
	proxy, err := helpers.ProxyFunc(bc.Config.Backend.Proxy)
	if err != nil {
		bc.Logger.Warning("Ignoring proxy setting: %v", err)
		proxy = http.ProxyFromEnvironment
	}

	transport := &http.Transport{
		Proxy:               proxy,
		MaxIdleConnsPerHost: 8,
		IdleConnTimeout:     90 * time.Second,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   time.Duration(bc.Config.Backend.RequestTimeout) * time.Second,
	}
}

// -----------------------------------------------------------------------------
// Request plumbing
// -----------------------------------------------------------------------------

type request struct {
	method string
	path   string
	body   interface{}
	auth   bool
	// decode4xx accepts a JSON body on 4xx replies as a regular result.
	decode4xx bool
}

// -----------------------------------------------------------------------------

func (bc *BackendClient) token(auth bool) (string, error) {
	if !auth {
		return "", nil
	}
	if bc.Tokens == nil || bc.Tokens.Token() == "" {
		return "", helpers.NewAuthorizationError("login required")
	}
	return bc.Tokens.Token(), nil
}

// -----------------------------------------------------------------------------

// send performs a single HTTP exchange and decodes the reply into out.
func (bc *BackendClient) send(ctx context.Context, r request, out interface{}) error {
	token, err := bc.token(r.auth)
	if err != nil {
		return err
	}

	var payload io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return helpers.NewProtocolError("encode "+r.path, err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, bc.baseURL+r.path, payload)
	if err != nil {
		return helpers.NewTransportError("build "+r.path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := bc.Client.Do(req)
	if err != nil {
		return helpers.NewTransportError(r.method+" "+r.path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return helpers.NewTransportError("read "+r.path, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return bc.decode(r.path, body, out)

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		bc.Logger.Warning("%s %s rejected with %d", r.method, r.path, resp.StatusCode)
		return &helpers.AuthorizationError{TradeSyncError: helpers.TradeSyncError{
			Message: fmt.Sprintf("%s %s: status %d %s", r.method, r.path, resp.StatusCode, snippet(body)),
		}}

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		if r.decode4xx && out != nil {
			if err := bc.decode(r.path, body, out); err == nil {
				return nil
			}
		}
		return helpers.NewCommandError(fmt.Sprintf("%s %s: status %d %s", r.method, r.path, resp.StatusCode, snippet(body)))

	default:
		return helpers.NewTransportError(fmt.Sprintf("%s %s: bad status %d", r.method, r.path, resp.StatusCode), nil)
	}
}

// -----------------------------------------------------------------------------

func (bc *BackendClient) decode(path string, body []byte, out interface{}) error {
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return helpers.NewProtocolError("decode "+path, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// get retries transport errors and 5xx replies. Anything the backend answered
// deliberately is returned at once.
func (bc *BackendClient) get(ctx context.Context, path string, auth bool, out interface{}) error {
	_, err := helpers.RetryWithBackoff(ctx, "GET "+path, uint(bc.Config.Backend.MaxRetries)+1, retryBaseDelay, bc.Logger,
		func() (struct{}, error) {
			err := bc.send(ctx, request{method: http.MethodGet, path: path, auth: auth}, out)
			if err != nil && !helpers.IsTransport(err) {
				return struct{}{}, backoff.Permanent(err)
			}
			return struct{}{}, err
		})
	return err
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBodyLen {
		s = s[:maxErrorBodyLen]
	}
	return s
}

// -----------------------------------------------------------------------------
// Markets
// -----------------------------------------------------------------------------

// latestTicker is the backend's ticker record in /prices/latest.
type latestTicker struct {
	Symbol    string   `json:"symbol"`
	TsEpochMs int64    `json:"tsEpochMs"`
	Bid       *float64 `json:"bid"`
	Ask       *float64 `json:"ask"`
	Last      *float64 `json:"last"`
	Change24h *float64 `json:"change24h"`
}

func (bc *BackendClient) ListMarkets(ctx context.Context) ([]string, error) {
	var markets []string
	if err := bc.get(ctx, "/markets", false, &markets); err != nil {
		return nil, err
	}
	return markets, nil
}

// -----------------------------------------------------------------------------

// LatestPrices returns the last known ticker per symbol. Entries without a
// last price are skipped.
func (bc *BackendClient) LatestPrices(ctx context.Context) (map[string]models.MPriceSnapshot, error) {
	var tickers map[string]latestTicker
	if err := bc.get(ctx, "/prices/latest", false, &tickers); err != nil {
		return nil, err
	}

	out := make(map[string]models.MPriceSnapshot, len(tickers))
	for key, t := range tickers {
		if t.Last == nil {
			continue
		}
		symbol := key
		if symbol == "" {
			symbol = t.Symbol
		}
		out[symbol] = prices.SnapshotFromTick(models.MTick{
			Symbol:    symbol,
			Last:      t.Last,
			Bid:       t.Bid,
			Ask:       t.Ask,
			Change24h: t.Change24h,
			Timestamp: t.TsEpochMs,
		})
	}
	return out, nil
}

// -----------------------------------------------------------------------------
// Auth
// -----------------------------------------------------------------------------

func (bc *BackendClient) Signup(ctx context.Context, creds models.MCredentials) error {
	return bc.send(ctx, request{method: http.MethodPost, path: "/auth/signup", body: creds}, nil)
}

// -----------------------------------------------------------------------------

func (bc *BackendClient) Login(ctx context.Context, creds models.MCredentials) (string, error) {
	var resp models.MLoginResponse
	if err := bc.send(ctx, request{method: http.MethodPost, path: "/auth/login", body: creds}, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", helpers.NewProtocolError("login response without token", nil)
	}
	return resp.Token, nil
}

// -----------------------------------------------------------------------------
// Account
// -----------------------------------------------------------------------------

func (bc *BackendClient) Balance(ctx context.Context) (models.MBalance, error) {
	var balance models.MBalance
	err := bc.get(ctx, "/account/balance", true, &balance)
	return balance, err
}

// -----------------------------------------------------------------------------

func (bc *BackendClient) Portfolio(ctx context.Context) ([]models.MPosition, error) {
	var positions []models.MPosition
	err := bc.get(ctx, "/trade/portfolio", true, &positions)
	return positions, err
}

// -----------------------------------------------------------------------------

func (bc *BackendClient) Orders(ctx context.Context) ([]models.MOrder, error) {
	var orders []models.MOrder
	err := bc.get(ctx, "/trade/orders", true, &orders)
	return orders, err
}

// -----------------------------------------------------------------------------

func (bc *BackendClient) PlaceOrder(ctx context.Context, order models.MOrderRequest) (models.MOrder, error) {
	var placed models.MOrder
	err := bc.send(ctx, request{method: http.MethodPost, path: "/trade/orders", body: order, auth: true}, &placed)
	return placed, err
}

// -----------------------------------------------------------------------------

func (bc *BackendClient) TradingMode(ctx context.Context) (models.MTradingModeResponse, error) {
	var resp models.MTradingModeResponse
	err := bc.get(ctx, "/account/trading-mode", true, &resp)
	return resp, err
}

// -----------------------------------------------------------------------------

func (bc *BackendClient) SetTradingMode(ctx context.Context, mode models.MTradingMode) (models.MTradingModeResponse, error) {
	var resp models.MTradingModeResponse
	err := bc.send(ctx, request{
		method:    http.MethodPost,
		path:      "/account/trading-mode",
		body:      models.MTradingModeRequest{Mode: mode},
		auth:      true,
		decode4xx: true,
	}, &resp)
	return resp, err
}

// -----------------------------------------------------------------------------
// AI commands
// -----------------------------------------------------------------------------

func (bc *BackendClient) SubmitCommand(ctx context.Context, command string) (models.MCommandResponse, error) {
	var resp models.MCommandResponse
	err := bc.send(ctx, request{
		method:    http.MethodPost,
		path:      "/ai/command",
		body:      models.MCommandRequest{Command: command},
		auth:      true,
		decode4xx: true,
	}, &resp)
	return resp, err
}

// -----------------------------------------------------------------------------

func (bc *BackendClient) ConfirmCommand(ctx context.Context, confirmationID string) (models.MCommandResponse, error) {
	var resp models.MCommandResponse
	err := bc.send(ctx, request{
		method:    http.MethodPost,
		path:      "/ai/confirm/" + url.PathEscape(confirmationID),
		auth:      true,
		decode4xx: true,
	}, &resp)
	return resp, err
}

// -----------------------------------------------------------------------------

func (bc *BackendClient) DeclineCommand(ctx context.Context, confirmationID string) (models.MCommandResponse, error) {
	var resp models.MCommandResponse
	err := bc.send(ctx, request{
		method:    http.MethodDelete,
		path:      "/ai/confirm/" + url.PathEscape(confirmationID),
		auth:      true,
		decode4xx: true,
	}, &resp)
	return resp, err
}
