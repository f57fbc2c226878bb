package server

import (
	"context"
	"net/http"

	"trade-sync/src/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type commandRequest struct {
	Command string `json:"command" binding:"required"`
}

type tradingModeRequest struct {
	Mode         string `json:"mode" binding:"required"`
	Acknowledged bool   `json:"acknowledged"`
}

type orderRequest struct {
	Symbol     string              `json:"symbol" binding:"required"`
	Side       string              `json:"side" binding:"required"`
	Type       string              `json:"type"`
	Quantity   decimal.Decimal     `json:"quantity"`
	LimitPrice decimal.NullDecimal `json:"limit_price"`
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// bodyAck is the acknowledgment given in the request body.
type bodyAck bool

func (a bodyAck) Acknowledge(ctx context.Context, warning string) bool {
	return bool(a)
}

// -----------------------------------------------------------------------------
// Write handlers
// -----------------------------------------------------------------------------

func (s *FastAPIServer) postCommand(c *gin.Context) {
	var req commandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.Session.SubmitCommand(c.Request.Context(), req.Command)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) postResolve(accept bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := s.Session.ResolveConfirmation(c.Request.Context(), c.Param("id"), accept)
		if err != nil && rec.ID == "" {
			s.abortWithError(c, err)
			return
		}
		// A failed confirm still returns the record so the caller sees Failed.
		c.JSON(http.StatusOK, rec)
	}
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) postTradingMode(c *gin.Context) {
	var req tradingModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	mode, ok := models.ParseTradingMode(req.Mode)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be PAPER or LIVE"})
		return
	}

	state, err := s.Session.SwitchTradingMode(c.Request.Context(), mode, bodyAck(req.Acknowledged))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "trading_mode": state})
		return
	}
	c.JSON(http.StatusOK, state)
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) postOrder(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := s.Session.PlaceOrder(c.Request.Context(), models.MOrderRequest{
		Symbol:     req.Symbol,
		Side:       req.Side,
		Type:       req.Type,
		Quantity:   req.Quantity,
		LimitPrice: req.LimitPrice,
	})
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) postLogin(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.Session.Login(c.Request.Context(), req.Email, req.Password); err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logged_in": true})
}

func (s *FastAPIServer) postSignup(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.Session.Signup(c.Request.Context(), req.Email, req.Password); err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"registered": true})
}

func (s *FastAPIServer) postLogout(c *gin.Context) {
	if err := s.Session.Logout(); err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logged_in": false})
}
