package testbackend

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"trade-sync/src/logger"
	"trade-sync/src/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// Ticker is one entry of GET /prices/latest.
type Ticker struct {
	Symbol    string   `json:"symbol"`
	TsEpochMs int64    `json:"tsEpochMs"`
	Bid       *float64 `json:"bid,omitempty"`
	Ask       *float64 `json:"ask,omitempty"`
	Last      *float64 `json:"last,omitempty"`
	Change24h *float64 `json:"change24h,omitempty"`
}

// -----------------------------------------------------------------------------
// Backend is an in-process fake of the trading backend: every REST endpoint
// the client calls plus the /ws/prices stream. Replies are scripted through
// the exported fields, which must be set before the first request.
// -----------------------------------------------------------------------------

type Backend struct {
	Logger *logger.Logger

	Markets   []string
	Latest    map[string]Ticker
	Balance   decimal.Decimal
	Portfolio []models.MPosition
	Orders    []models.MOrder

	// KrakenConnected gates switches to LIVE.
	KrakenConnected bool

	// CommandReplies maps command text to the /ai/command reply. Commands
	// without an entry get DefaultReply.
	CommandReplies map[string]models.MCommandResponse
	DefaultReply   models.MCommandResponse
	// ConfirmReplies maps confirmation ids to the /ai/confirm/{id} reply.
	ConfirmReplies map[string]models.MCommandResponse
	// ConfirmDelay holds confirm replies back, for in-flight assertions.
	ConfirmDelay time.Duration

	// Ticks are sent, in order, after each subscribe acknowledgment.
	Ticks        []models.MTick
	TickInterval time.Duration

	engine   *gin.Engine
	upgrader websocket.Upgrader

	mu            sync.Mutex
	users         map[string]string
	tokens        map[string]string
	mode          models.MTradingMode
	pending       map[string]string
	calls         []string
	subscriptions [][]string
	streams       map[*streamConn]struct{}
}

// -----------------------------------------------------------------------------

func New(log *logger.Logger) *Backend {
	gin.SetMode(gin.TestMode)

	b := &Backend{
		Logger:         log,
		Markets:        []string{"BTC-USD", "ETH-USD"},
		Latest:         map[string]Ticker{},
		Balance:        decimal.NewFromInt(10000),
		CommandReplies: map[string]models.MCommandResponse{},
		DefaultReply:   models.MCommandResponse{Success: true, Message: "Command processed successfully"},
		ConfirmReplies: map[string]models.MCommandResponse{},
		TickInterval:   10 * time.Millisecond,
		engine:         gin.New(),
		upgrader:       websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		users:          map[string]string{},
		tokens:         map[string]string{},
		mode:           models.TradingModePaper,
		pending:        map[string]string{},
		streams:        map[*streamConn]struct{}{},
	}

	b.engine.Use(gin.Recovery(), b.record)
	b.setupRoutes()
	return b
}

// -----------------------------------------------------------------------------

func (b *Backend) setupRoutes() {
	b.engine.GET("/markets", b.getMarkets)
	b.engine.GET("/prices/latest", b.getLatest)
	b.engine.POST("/auth/signup", b.postSignup)
	b.engine.POST("/auth/login", b.postLogin)
	b.engine.GET("/ws/prices", b.handleStream)

	authed := b.engine.Group("/", b.requireToken)
	authed.GET("/account/balance", b.getBalance)
	authed.GET("/account/trading-mode", b.getTradingMode)
	authed.POST("/account/trading-mode", b.postTradingMode)
	authed.GET("/trade/portfolio", b.getPortfolio)
	authed.GET("/trade/orders", b.getOrders)
	authed.POST("/trade/orders", b.postOrder)
	authed.POST("/ai/command", b.postCommand)
	authed.POST("/ai/confirm/:id", b.postConfirm)
	authed.DELETE("/ai/confirm/:id", b.deleteConfirm)
}

// Handler exposes the router for httptest servers.
func (b *Backend) Handler() http.Handler {
	return b.engine
}

// -----------------------------------------------------------------------------
// Scripting and inspection
// -----------------------------------------------------------------------------

// AddUser registers credentials and returns the token a login will issue.
func (b *Backend) AddUser(email, password string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[email] = password
	return b.tokenFor(email)
}

func (b *Backend) tokenFor(email string) string {
	token := "token-" + email
	b.tokens[token] = email
	return token
}

// Mode returns the server-side trading mode.
func (b *Backend) Mode() models.MTradingMode {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mode
}

// Calls returns every request seen, as "METHOD /path".
func (b *Backend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

// CallCount counts requests to one route.
func (b *Backend) CallCount(method, path string) int {
	want := method + " " + path
	n := 0
	for _, c := range b.Calls() {
		if c == want {
			n++
		}
	}
	return n
}

// Subscriptions returns the symbol lists of every subscribe message received.
func (b *Backend) Subscriptions() [][]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]string(nil), b.subscriptions...)
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (b *Backend) record(c *gin.Context) {
	b.mu.Lock()
	b.calls = append(b.calls, c.Request.Method+" "+c.Request.URL.Path)
	b.mu.Unlock()
	c.Next()
}

func (b *Backend) requireToken(c *gin.Context) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	b.mu.Lock()
	_, ok := b.tokens[token]
	b.mu.Unlock()
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	c.Next()
}

// -----------------------------------------------------------------------------
// Market and auth handlers
// -----------------------------------------------------------------------------

func (b *Backend) getMarkets(c *gin.Context) {
	c.JSON(http.StatusOK, b.Markets)
}

func (b *Backend) getLatest(c *gin.Context) {
	if symbol := c.Query("symbol"); symbol != "" {
		t, ok := b.Latest[symbol]
		if !ok {
			c.Status(http.StatusNotFound)
			return
		}
		c.JSON(http.StatusOK, t)
		return
	}
	c.JSON(http.StatusOK, b.Latest)
}

func (b *Backend) postSignup(c *gin.Context) {
	var creds models.MCredentials
	if err := c.ShouldBindJSON(&creds); err != nil || creds.Email == "" || creds.Password == "" {
		c.String(http.StatusBadRequest, "Email and password are required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.users[creds.Email]; exists {
		c.String(http.StatusBadRequest, "Email already registered")
		return
	}
	b.users[creds.Email] = creds.Password
	c.String(http.StatusOK, "User registered successfully")
}

func (b *Backend) postLogin(c *gin.Context) {
	var creds models.MCredentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.String(http.StatusBadRequest, "Invalid request")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if pw, ok := b.users[creds.Email]; !ok || pw != creds.Password {
		c.String(http.StatusUnauthorized, "Invalid credentials")
		return
	}
	c.JSON(http.StatusOK, models.MLoginResponse{Token: b.tokenFor(creds.Email)})
}

// -----------------------------------------------------------------------------
// Account handlers
// -----------------------------------------------------------------------------

func (b *Backend) getBalance(c *gin.Context) {
	c.JSON(http.StatusOK, models.MBalance{Balance: b.Balance})
}

func (b *Backend) getPortfolio(c *gin.Context) {
	positions := b.Portfolio
	if positions == nil {
		positions = []models.MPosition{}
	}
	c.JSON(http.StatusOK, positions)
}

func (b *Backend) getOrders(c *gin.Context) {
	b.mu.Lock()
	orders := append([]models.MOrder{}, b.Orders...)
	b.mu.Unlock()
	c.JSON(http.StatusOK, orders)
}

func (b *Backend) postOrder(c *gin.Context) {
	var req models.MOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !slices.Contains(b.Markets, req.Symbol) {
		c.String(http.StatusBadRequest, "Unknown symbol "+req.Symbol)
		return
	}
	order := models.MOrder{
		ID:         int64(len(b.Orders) + 1),
		Symbol:     req.Symbol,
		Side:       req.Side,
		Type:       req.Type,
		Status:     "NEW",
		Quantity:   req.Quantity,
		LimitPrice: req.LimitPrice,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	b.Orders = append(b.Orders, order)
	c.JSON(http.StatusOK, order)
}

func (b *Backend) getTradingMode(c *gin.Context) {
	c.JSON(http.StatusOK, models.MTradingModeResponse{
		Mode:            string(b.Mode()),
		KrakenConnected: b.KrakenConnected,
	})
}

// postTradingMode answers rejected switches with 400 and the current mode.
func (b *Backend) postTradingMode(c *gin.Context) {
	var req struct {
		Mode string `json:"mode"`
	}
	_ = c.ShouldBindJSON(&req)

	b.mu.Lock()
	defer b.mu.Unlock()

	mode, ok := models.ParseTradingMode(req.Mode)
	if !ok {
		c.JSON(http.StatusBadRequest, models.MTradingModeResponse{
			Mode:            string(b.mode),
			KrakenConnected: b.KrakenConnected,
			Message:         "Invalid mode. Use PAPER or LIVE",
		})
		return
	}
	if mode == models.TradingModeLive && !b.KrakenConnected {
		c.JSON(http.StatusBadRequest, models.MTradingModeResponse{
			Mode:            string(b.mode),
			KrakenConnected: false,
			Message:         "Cannot switch to LIVE mode: Kraken API connection failed. Check your API keys.",
		})
		return
	}

	b.mode = mode
	c.JSON(http.StatusOK, models.MTradingModeResponse{
		Mode:            string(mode),
		KrakenConnected: b.KrakenConnected,
		Message:         fmt.Sprintf("Switched to %s mode", mode),
	})
}

// -----------------------------------------------------------------------------
// AI command handlers
// -----------------------------------------------------------------------------

func (b *Backend) postCommand(c *gin.Context) {
	var req models.MCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Command) == "" {
		c.JSON(http.StatusBadRequest, models.MCommandResponse{Message: "Failed to process command: empty command"})
		return
	}

	reply, ok := b.CommandReplies[req.Command]
	if !ok {
		reply = b.DefaultReply
	}
	if reply.RequiresConfirmation {
		if reply.ConfirmationID == "" {
			reply.ConfirmationID = uuid.NewString()
		}
		b.mu.Lock()
		b.pending[reply.ConfirmationID] = req.Command
		b.mu.Unlock()
	}

	status := http.StatusOK
	if !reply.Success {
		status = http.StatusBadRequest
	}
	c.JSON(status, reply)
}

func (b *Backend) postConfirm(c *gin.Context) {
	id := c.Param("id")
	if b.ConfirmDelay > 0 {
		select {
		case <-time.After(b.ConfirmDelay):
		case <-c.Request.Context().Done():
			return
		}
	}

	b.mu.Lock()
	_, ok := b.pending[id]
	delete(b.pending, id)
	b.mu.Unlock()

	if !ok {
		c.JSON(http.StatusBadRequest, models.MCommandResponse{Message: "Failed to execute: Confirmation not found or expired"})
		return
	}

	reply, ok := b.ConfirmReplies[id]
	if !ok {
		reply = models.MCommandResponse{Success: true, Message: "Command executed successfully"}
	}
	status := http.StatusOK
	if !reply.Success {
		status = http.StatusBadRequest
	}
	c.JSON(status, reply)
}

func (b *Backend) deleteConfirm(c *gin.Context) {
	b.mu.Lock()
	delete(b.pending, c.Param("id"))
	b.mu.Unlock()
	c.JSON(http.StatusOK, models.MCommandResponse{Success: true, Message: "Command canceled"})
}

// Pending reports whether a confirmation id is still awaiting a decision.
func (b *Backend) Pending(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.pending[id]
	return ok
}
