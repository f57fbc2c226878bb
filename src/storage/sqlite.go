package storage

import (
	"database/sql"
	"errors"
	"time"

	"trade-sync/src/helpers"
	"trade-sync/src/logger"
	"trade-sync/src/models"

	_ "modernc.org/sqlite"
)

const tokenKey = "bearer_token"

// -----------------------------------------------------------------------------

type AsyncSQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAsyncSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*AsyncSQLiteDB, error) {
	return &AsyncSQLiteDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return helpers.NewDatabaseError("open "+dsn, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return helpers.NewDatabaseError("ping "+dsn, err)
	}

	// A single writer avoids SQLITE_BUSY between the coordinator and auth.
	db.SetMaxOpenConns(1)
	d.DB = db

	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) createTables() error {
	query := `
		CREATE TABLE IF NOT EXISTS session (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewDatabaseError("create session", err)
	}

	query = `
		CREATE TABLE IF NOT EXISTS confirmations (
			id TEXT PRIMARY KEY,
			command TEXT,
			message TEXT,
			status TEXT NOT NULL,
			actions_enabled INTEGER NOT NULL,
			result_message TEXT,
			created_at INTEGER NOT NULL,
			resolved_at INTEGER,
			updated_at INTEGER NOT NULL
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewDatabaseError("create confirmations", err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Session token
// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) LoadToken() (string, error) {
	var token string
	err := d.DB.QueryRow(`SELECT value FROM session WHERE key = ?`, tokenKey).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", helpers.NewDatabaseError("load token", err)
	}
	return token, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) SaveToken(token string) error {
	_, err := d.DB.Exec(`
		INSERT INTO session (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, tokenKey, token, time.Now().Unix())
	if err != nil {
		return helpers.NewDatabaseError("save token", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) ClearToken() error {
	if _, err := d.DB.Exec(`DELETE FROM session WHERE key = ?`, tokenKey); err != nil {
		return helpers.NewDatabaseError("clear token", err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Confirmation journal
// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) SaveConfirmation(c models.MConfirmation) error {
	_, err := d.DB.Exec(`
		INSERT INTO confirmations (id, command, message, status, actions_enabled, result_message, created_at, resolved_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			actions_enabled = excluded.actions_enabled,
			result_message = excluded.result_message,
			resolved_at = excluded.resolved_at,
			updated_at = excluded.updated_at
	`, c.ID, c.Command, c.Message, string(c.Status), c.ActionsEnabled, c.ResultMessage,
		unixNano(c.CreatedAt), unixNano(c.ResolvedAt), time.Now().UnixNano())
	if err != nil {
		return helpers.NewDatabaseError("save confirmation "+c.ID, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) LoadConfirmations(limit int) ([]models.MConfirmation, error) {
	rows, err := d.DB.Query(`
		SELECT id, command, message, status, actions_enabled, result_message, created_at, resolved_at
		FROM confirmations
		ORDER BY updated_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, helpers.NewDatabaseError("load confirmations", err)
	}
	defer rows.Close()

	return scanConfirmations(rows)
}

// -----------------------------------------------------------------------------

// PruneConfirmations drops terminal records beyond the newest keep.
func (d *AsyncSQLiteDB) PruneConfirmations(keep int) error {
	res, err := d.DB.Exec(`
		DELETE FROM confirmations
		WHERE status IN (?, ?, ?)
		AND id NOT IN (
			SELECT id FROM confirmations
			WHERE status IN (?, ?, ?)
			ORDER BY updated_at DESC, rowid DESC
			LIMIT ?
		)
	`, string(models.ConfirmationDeclined), string(models.ConfirmationResolved), string(models.ConfirmationFailed),
		string(models.ConfirmationDeclined), string(models.ConfirmationResolved), string(models.ConfirmationFailed), keep)
	if err != nil {
		return helpers.NewDatabaseError("prune confirmations", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		d.Logger.Info("Pruned %d old confirmation records", n)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------
// Shared row helpers
// -----------------------------------------------------------------------------

func scanConfirmations(rows *sql.Rows) ([]models.MConfirmation, error) {
	var out []models.MConfirmation
	for rows.Next() {
		var (
			c                    models.MConfirmation
			command, msg, result sql.NullString
			status               string
			created              int64
			resolved             sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &command, &msg, &status, &c.ActionsEnabled, &result, &created, &resolved); err != nil {
			return nil, helpers.NewDatabaseError("scan confirmation", err)
		}
		c.Command = command.String
		c.Message = msg.String
		c.ResultMessage = result.String
		c.Status = models.MConfirmationStatus(status)
		c.CreatedAt = fromUnixNano(created)
		if resolved.Valid {
			c.ResolvedAt = fromUnixNano(resolved.Int64)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, helpers.NewDatabaseError("iterate confirmations", err)
	}
	return out, nil
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
