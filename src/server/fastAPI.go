package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"trade-sync/src/interfaces"
	"trade-sync/src/logger"
	"trade-sync/src/models"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// -----------------------------------------------------------------------------
// FastAPIServer serves the client state to local renderers over REST and a
// websocket event feed.
// -----------------------------------------------------------------------------

type FastAPIServer struct {
	Config  *models.MConfig
	Logger  *logger.Logger
	Session interfaces.IDashboardSession
	engine  *gin.Engine
	http    *http.Server

	// WebSocket clients, owned by the hub goroutine
	clients     map[*Client]struct{}
	broadcast   chan models.MDashboardEvent
	register    chan *Client
	unregister  chan *Client
	quit        chan struct{}
	hubDone     chan struct{}
	hubStarted  atomic.Bool
	connections atomic.Int32
	dropped     atomic.Int64
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewFastAPIServer(cfg *models.MConfig, session interfaces.IDashboardSession, logger *logger.Logger) *FastAPIServer {
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &FastAPIServer{
		Config:  cfg,
		Logger:  logger,
		Session: session,
		engine:  gin.New(),
		clients: make(map[*Client]struct{}),
		// Bursts of ticks must not block the components emitting them
		broadcast:  make(chan models.MDashboardEvent, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		hubDone:    make(chan struct{}),
	}

	s.engine.Use(gin.Recovery())
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *FastAPIServer) setupRoutes() {
	api := s.engine.Group("/api")

	api.GET("/health", s.getHealth)
	api.GET("/prices", s.getPrices)
	api.GET("/account", s.getAccount)
	api.GET("/stream", s.getStream)
	api.GET("/activity", s.getActivity)
	api.GET("/trading-mode", s.getTradingMode)
	api.GET("/confirmations", s.getConfirmations)
	api.GET("/confirmations/:id", s.getConfirmation)

	api.POST("/command", s.postCommand)
	api.POST("/confirmations/:id/accept", s.postResolve(true))
	api.POST("/confirmations/:id/decline", s.postResolve(false))
	api.POST("/trading-mode", s.postTradingMode)
	api.POST("/orders", s.postOrder)
	api.POST("/login", s.postLogin)
	api.POST("/signup", s.postSignup)
	api.POST("/logout", s.postLogout)

	s.engine.GET("/ws", s.handleWebSocket)
}

// Handler exposes the router, mainly for tests.
func (s *FastAPIServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start serves until Stop is called.
func (s *FastAPIServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting dashboard server on %s", addr)

	s.StartHub()
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

// StartHub runs the websocket hub without the HTTP listener.
func (s *FastAPIServer) StartHub() {
	if s.hubStarted.CompareAndSwap(false, true) {
		go s.handleWebsockets()
	}
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) Stop() error {
	var err error
	if s.http != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = s.http.Shutdown(ctx)
	}

	if s.hubStarted.Load() {
		select {
		case <-s.quit:
		default:
			close(s.quit)
		}
		<-s.hubDone
	}
	return err
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) newLimiter() *rate.Limiter {
	perSecond := s.Config.Dashboard.PriceEventsPerSecond
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// -----------------------------------------------------------------------------
// Read handlers
// -----------------------------------------------------------------------------

func (s *FastAPIServer) getHealth(c *gin.Context) {
	stats := s.Session.StreamStats()
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"connections":    s.connections.Load(),
		"stream":         stats.State,
		"logged_in":      s.Session.LoggedIn(),
		"dropped_events": s.dropped.Load(),
	})
}

func (s *FastAPIServer) getPrices(c *gin.Context) {
	c.JSON(http.StatusOK, s.Session.Prices())
}

func (s *FastAPIServer) getAccount(c *gin.Context) {
	c.JSON(http.StatusOK, s.Session.Account())
}

func (s *FastAPIServer) getStream(c *gin.Context) {
	c.JSON(http.StatusOK, s.Session.StreamStats())
}

func (s *FastAPIServer) getActivity(c *gin.Context) {
	c.JSON(http.StatusOK, s.Session.Activity())
}

func (s *FastAPIServer) getTradingMode(c *gin.Context) {
	c.JSON(http.StatusOK, s.Session.TradingMode())
}

func (s *FastAPIServer) getConfirmations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"active":  s.Session.ActiveConfirmations(),
		"history": s.Session.ConfirmationHistory(),
	})
}

func (s *FastAPIServer) getConfirmation(c *gin.Context) {
	rec, ok := s.Session.Confirmation(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown confirmation"})
		return
	}
	c.JSON(http.StatusOK, rec)
}
