package interfaces

import "trade-sync/src/models"

// -----------------------------------------------------------------------------
// ISessionStore defines the contract for client-side persistence.
// -----------------------------------------------------------------------------

type ISessionStore interface {

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// LoadToken returns the persisted bearer token or "" if none.
	LoadToken() (string, error)

	// -----------------------------------------------------------------------------

	// SaveToken replaces the persisted bearer token.
	SaveToken(token string) error

	// -----------------------------------------------------------------------------

	// ClearToken removes the persisted bearer token.
	ClearToken() error

	// -----------------------------------------------------------------------------

	// SaveConfirmation upserts a confirmation record into the journal.
	SaveConfirmation(c models.MConfirmation) error

	// -----------------------------------------------------------------------------

	// LoadConfirmations returns the most recent journal records, newest first.
	LoadConfirmations(limit int) ([]models.MConfirmation, error)

	// -----------------------------------------------------------------------------

	// PruneConfirmations drops terminal records beyond the newest keep.
	PruneConfirmations(keep int) error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
