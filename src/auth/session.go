package auth

import (
	"context"
	"strings"
	"sync"

	"trade-sync/src/helpers"
	"trade-sync/src/interfaces"
	"trade-sync/src/logger"
	"trade-sync/src/models"
)

// -----------------------------------------------------------------------------
// Session holds the bearer token. It is the ITokenSource for the REST client
// and the authorization gate for commands and mode switches.
// -----------------------------------------------------------------------------

type Session struct {
	Backend interfaces.IAuthBackend
	Store   interfaces.ISessionStore
	Logger  *logger.Logger

	mu    sync.RWMutex
	token string
	email string
}

// -----------------------------------------------------------------------------

func NewSession(backend interfaces.IAuthBackend, store interfaces.ISessionStore, log *logger.Logger) *Session {
	return &Session{
		Backend: backend,
		Store:   store,
		Logger:  log,
	}
}

// -----------------------------------------------------------------------------

// Restore loads a token persisted by a previous run.
func (s *Session) Restore() error {
	if s.Store == nil {
		return nil
	}
	token, err := s.Store.LoadToken()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	if token != "" {
		s.Logger.Info("Restored saved session")
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *Session) Login(ctx context.Context, email, password string) error {
	creds, err := credentials(email, password)
	if err != nil {
		return err
	}

	token, err := s.Backend.Login(ctx, creds)
	if err != nil {
		return err
	}

	if s.Store != nil {
		if err := s.Store.SaveToken(token); err != nil {
			s.Logger.Error("Failed to persist token: %v", err)
		}
	}

	s.mu.Lock()
	s.token = token
	s.email = creds.Email
	s.mu.Unlock()

	s.Logger.Info("Logged in as %s", creds.Email)
	return nil
}

// -----------------------------------------------------------------------------

func (s *Session) Signup(ctx context.Context, email, password string) error {
	creds, err := credentials(email, password)
	if err != nil {
		return err
	}
	if err := s.Backend.Signup(ctx, creds); err != nil {
		return err
	}
	s.Logger.Info("Registered %s", creds.Email)
	return nil
}

// -----------------------------------------------------------------------------

func (s *Session) Logout() error {
	s.mu.Lock()
	s.token = ""
	s.email = ""
	s.mu.Unlock()

	if s.Store != nil {
		return s.Store.ClearToken()
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) HasToken() bool {
	return s.Token() != ""
}

// Email is the address used for the current login, "" after a restore.
func (s *Session) Email() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.email
}

// -----------------------------------------------------------------------------

func credentials(email, password string) (models.MCredentials, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return models.MCredentials{}, helpers.NewCommandError("email and password are required")
	}
	return models.MCredentials{Email: email, Password: password}, nil
}
