package server

import (
	"errors"
	"net/http"

	"trade-sync/src/helpers"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------

// statusFor maps the client error taxonomy onto HTTP statuses.
func statusFor(err error) int {
	var (
		authErr      *helpers.AuthorizationError
		transportErr *helpers.TransportError
		protocolErr  *helpers.ProtocolError
		commandErr   *helpers.CommandError
	)

	switch {
	case errors.Is(err, helpers.ErrUnknownConfirmation):
		return http.StatusNotFound
	case errors.Is(err, helpers.ErrConfirmationClosed):
		return http.StatusConflict
	case errors.Is(err, helpers.ErrNotAcknowledged):
		return http.StatusPreconditionRequired
	case errors.As(err, &authErr):
		return http.StatusUnauthorized
	case errors.As(err, &transportErr):
		return http.StatusServiceUnavailable
	case errors.As(err, &protocolErr):
		return http.StatusBadGateway
	case errors.As(err, &commandErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.Logger.Warning("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
