package helpers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trade-sync/src/logger"

	"github.com/cenkalti/backoff/v5"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type TradeSyncError struct {
	Message string
	Cause   error
}

func (e *TradeSyncError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *TradeSyncError) Unwrap() error {
	return e.Cause
}

// Distinct error types for errors.As checks. Transport errors recover by
// themselves, protocol and command errors are shown to the user,
// authorization errors are raised before any call is made.
type ConfigurationError struct{ TradeSyncError }
type TransportError struct{ TradeSyncError }
type ProtocolError struct{ TradeSyncError }
type CommandError struct{ TradeSyncError }
type AuthorizationError struct{ TradeSyncError }
type DatabaseError struct{ TradeSyncError }

func NewConfigurationError(msg string, cause error) error {
	return &ConfigurationError{TradeSyncError{Message: msg, Cause: cause}}
}

func NewTransportError(msg string, cause error) error {
	return &TransportError{TradeSyncError{Message: msg, Cause: cause}}
}

func NewProtocolError(msg string, cause error) error {
	return &ProtocolError{TradeSyncError{Message: msg, Cause: cause}}
}

func NewCommandError(msg string) error {
	return &CommandError{TradeSyncError{Message: msg}}
}

func NewAuthorizationError(msg string) error {
	return &AuthorizationError{TradeSyncError{Message: msg, Cause: ErrNoToken}}
}

func NewDatabaseError(msg string, cause error) error {
	return &DatabaseError{TradeSyncError{Message: msg, Cause: cause}}
}

var (
	ErrNoToken             = errors.New("not authenticated")
	ErrNotAcknowledged     = errors.New("live trading not acknowledged")
	ErrConfirmationClosed  = errors.New("confirmation already acted on")
	ErrUnknownConfirmation = errors.New("unknown confirmation")
	ErrAlreadyRunning      = errors.New("already running")
)

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsProtocol reports whether err is (or wraps) a ProtocolError.
func IsProtocol(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// IsAuthorization reports whether err is (or wraps) an AuthorizationError.
func IsAuthorization(err error) bool {
	var ae *AuthorizationError
	return errors.As(err, &ae)
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff retries fn with exponential backoff until it succeeds,
// maxRetries attempts are used (0 means unlimited) or ctx is done.
func RetryWithBackoff[T any](ctx context.Context, operation string, maxRetries uint, baseDelay time.Duration, log *logger.Logger, fn func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = baseDelay
	b.MaxInterval = 30 * time.Second

	attempt := 0
	return backoff.Retry(ctx, func() (T, error) {
		attempt++
		return fn()
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(maxRetries),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, delay time.Duration) {
			if log != nil {
				log.Warning("Attempt %d failed for %s: %v. Retrying in %v", attempt, operation, err, delay)
			}
		}),
	)
}
