package auth

import (
	"context"
	"errors"
	"testing"

	"trade-sync/src/logger"
	"trade-sync/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuthBackend struct {
	logins  int
	signups int
	fail    error
}

func (f *fakeAuthBackend) Signup(ctx context.Context, creds models.MCredentials) error {
	f.signups++
	return f.fail
}

func (f *fakeAuthBackend) Login(ctx context.Context, creds models.MCredentials) (string, error) {
	f.logins++
	if f.fail != nil {
		return "", f.fail
	}
	return "jwt-" + creds.Email, nil
}

// memoryStore keeps only the token; journal calls are no-ops.
type memoryStore struct {
	token string
}

func (m *memoryStore) Initialize() error { return nil }
func (m *memoryStore) LoadToken() (string, error) { return m.token, nil }
func (m *memoryStore) SaveToken(token string) error { m.token = token; return nil }
func (m *memoryStore) ClearToken() error { m.token = ""; return nil }
func (m *memoryStore) PruneConfirmations(keep int) error { return nil }
func (m *memoryStore) Close() error { return nil }

func (m *memoryStore) SaveConfirmation(c models.MConfirmation) error { return nil }

func (m *memoryStore) LoadConfirmations(limit int) ([]models.MConfirmation, error) {
	return nil, nil
}

func TestLoginPersistsToken(t *testing.T) {
	backend := &fakeAuthBackend{}
	store := &memoryStore{}
	s := NewSession(backend, store, logger.NewLogger("ERROR", "auth-test"))

	assert.False(t, s.HasToken())
	require.NoError(t, s.Login(context.Background(), " trader@example.com ", "pw"))

	assert.True(t, s.HasToken())
	assert.Equal(t, "jwt-trader@example.com", s.Token())
	assert.Equal(t, "trader@example.com", s.Email())
	assert.Equal(t, "jwt-trader@example.com", store.token)

	require.NoError(t, s.Logout())
	assert.False(t, s.HasToken())
	assert.Empty(t, store.token)
}

func TestRestoreLoadsSavedToken(t *testing.T) {
	store := &memoryStore{token: "saved"}
	s := NewSession(&fakeAuthBackend{}, store, logger.NewLogger("ERROR", "auth-test"))

	require.NoError(t, s.Restore())
	assert.Equal(t, "saved", s.Token())
}

func TestLoginFailureKeepsPreviousState(t *testing.T) {
	backend := &fakeAuthBackend{fail: errors.New("invalid credentials")}
	s := NewSession(backend, &memoryStore{}, logger.NewLogger("ERROR", "auth-test"))

	assert.Error(t, s.Login(context.Background(), "a@b.c", "bad"))
	assert.False(t, s.HasToken())
}

func TestCredentialsRequired(t *testing.T) {
	backend := &fakeAuthBackend{}
	s := NewSession(backend, nil, logger.NewLogger("ERROR", "auth-test"))

	assert.Error(t, s.Login(context.Background(), "", "pw"))
	assert.Error(t, s.Signup(context.Background(), "a@b.c", ""))
	assert.Equal(t, 0, backend.logins+backend.signups)

	require.NoError(t, s.Signup(context.Background(), "a@b.c", "pw"))
	assert.Equal(t, 1, backend.signups)
}
