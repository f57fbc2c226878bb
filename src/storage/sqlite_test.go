package storage

import (
	"path/filepath"
	"testing"
	"time"

	"trade-sync/src/logger"
	"trade-sync/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T, path string) *AsyncSQLiteDB {
	t.Helper()
	cfg := &models.MConfig{Storage: models.MStorageConfig{DBType: "sqlite", DBPath: path}}
	store, err := NewSessionStore(cfg, logger.NewLogger("ERROR", "storage-test"))
	require.NoError(t, err)
	db := store.(*AsyncSQLiteDB)
	require.NoError(t, db.Initialize())
	t.Cleanup(func() { db.Close() })
	return db
}

func TestTokenRoundTripSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	db := newTestSQLite(t, path)

	token, err := db.LoadToken()
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, db.SaveToken("jwt-1"))
	require.NoError(t, db.SaveToken("jwt-2"))
	require.NoError(t, db.Close())

	reopened := newTestSQLite(t, path)
	token, err = reopened.LoadToken()
	require.NoError(t, err)
	assert.Equal(t, "jwt-2", token)

	require.NoError(t, reopened.ClearToken())
	token, err = reopened.LoadToken()
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestConfirmationJournalUpserts(t *testing.T) {
	db := newTestSQLite(t, filepath.Join(t.TempDir(), "journal.db"))
	created := time.Now().Add(-time.Minute)

	pending := models.MConfirmation{
		ID:             "c-42",
		Message:        "Confirm buy 1 BTC at $105?",
		Command:        "buy 1 BTC",
		Status:         models.ConfirmationPending,
		ActionsEnabled: true,
		CreatedAt:      created,
	}
	require.NoError(t, db.SaveConfirmation(pending))

	declined := pending
	declined.Status = models.ConfirmationDeclined
	declined.ActionsEnabled = false
	declined.ResolvedAt = time.Now()
	require.NoError(t, db.SaveConfirmation(declined))

	records, err := db.LoadConfirmations(10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	got := records[0]
	assert.Equal(t, "c-42", got.ID)
	assert.Equal(t, models.ConfirmationDeclined, got.Status)
	assert.False(t, got.ActionsEnabled)
	assert.Equal(t, "buy 1 BTC", got.Command)
	assert.Equal(t, "Confirm buy 1 BTC at $105?", got.Message)
	assert.True(t, got.CreatedAt.Equal(created))
	assert.False(t, got.ResolvedAt.IsZero())
}

func TestLoadConfirmationsNewestFirst(t *testing.T) {
	db := newTestSQLite(t, filepath.Join(t.TempDir(), "order.db"))

	for _, id := range []string{"c-1", "c-2", "c-3"} {
		require.NoError(t, db.SaveConfirmation(models.MConfirmation{
			ID:        id,
			Status:    models.ConfirmationResolved,
			CreatedAt: time.Now(),
		}))
	}

	records, err := db.LoadConfirmations(2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "c-3", records[0].ID)
	assert.Equal(t, "c-2", records[1].ID)
}

func TestPruneKeepsPendingAndNewestTerminal(t *testing.T) {
	db := newTestSQLite(t, filepath.Join(t.TempDir(), "prune.db"))

	require.NoError(t, db.SaveConfirmation(models.MConfirmation{ID: "open", Status: models.ConfirmationPending, ActionsEnabled: true}))
	for _, id := range []string{"t-1", "t-2", "t-3"} {
		require.NoError(t, db.SaveConfirmation(models.MConfirmation{ID: id, Status: models.ConfirmationFailed}))
	}

	require.NoError(t, db.PruneConfirmations(1))

	records, err := db.LoadConfirmations(10)
	require.NoError(t, err)
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	assert.ElementsMatch(t, []string{"open", "t-3"}, ids)
}

func TestUnsupportedDBType(t *testing.T) {
	_, err := NewSessionStore(&models.MConfig{Storage: models.MStorageConfig{DBType: "mysql"}}, logger.NewLogger("ERROR", "storage-test"))
	assert.Error(t, err)
}

func TestPostgresSchemaFromClientName(t *testing.T) {
	db, err := NewPostgresDB(&models.MConfig{Name: "Trade-Sync Desk 1"}, logger.NewLogger("ERROR", "storage-test"))
	require.NoError(t, err)
	assert.Equal(t, "trade_sync_desk_1", db.Schema)

	_, err = NewPostgresDB(&models.MConfig{Name: "---"}, logger.NewLogger("ERROR", "storage-test"))
	assert.Error(t, err)
}
