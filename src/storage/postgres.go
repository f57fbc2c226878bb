package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"trade-sync/src/helpers"
	"trade-sync/src/logger"
	"trade-sync/src/models"

	_ "github.com/lib/pq"
)

var schemaSanitizer = regexp.MustCompile(`[^a-z0-9_]+`)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

// NewPostgresDB keeps every client instance in its own schema named after
// the configured client name.
func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	name := schemaSanitizer.ReplaceAllString(strings.ToLower(cfg.Name), "_")
	name = strings.Trim(name, "_")
	if name == "" {
		return nil, helpers.NewConfigurationError("client name does not yield a schema name", nil)
	}

	return &PostgresDB{
		Config: cfg,
		Schema: name,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return helpers.NewDatabaseError("open postgres", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return helpers.NewDatabaseError("ping postgres", err)
	}

	d.DB = db

	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return helpers.NewDatabaseError("create schema "+d.Schema, err)
	}

	if err := d.createTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) createTables() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."session" (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at BIGINT NOT NULL
		);
	`, d.Schema)
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewDatabaseError("create session", err)
	}

	query = fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."confirmations" (
			id TEXT PRIMARY KEY,
			command TEXT,
			message TEXT,
			status TEXT NOT NULL,
			actions_enabled BOOLEAN NOT NULL,
			result_message TEXT,
			created_at BIGINT NOT NULL,
			resolved_at BIGINT,
			updated_at BIGINT NOT NULL
		);
	`, d.Schema)
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewDatabaseError("create confirmations", err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Session token
// -----------------------------------------------------------------------------

func (d *PostgresDB) LoadToken() (string, error) {
	var token string
	query := fmt.Sprintf(`SELECT value FROM "%s"."session" WHERE key = $1`, d.Schema)
	err := d.DB.QueryRow(query, tokenKey).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", helpers.NewDatabaseError("load token", err)
	}
	return token, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveToken(token string) error {
	query := fmt.Sprintf(`
		INSERT INTO "%s"."session" (key, value, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, d.Schema)
	if _, err := d.DB.Exec(query, tokenKey, token, time.Now().Unix()); err != nil {
		return helpers.NewDatabaseError("save token", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) ClearToken() error {
	query := fmt.Sprintf(`DELETE FROM "%s"."session" WHERE key = $1`, d.Schema)
	if _, err := d.DB.Exec(query, tokenKey); err != nil {
		return helpers.NewDatabaseError("clear token", err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Confirmation journal
// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveConfirmation(c models.MConfirmation) error {
	query := fmt.Sprintf(`
		INSERT INTO "%s"."confirmations" (id, command, message, status, actions_enabled, result_message, created_at, resolved_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			actions_enabled = EXCLUDED.actions_enabled,
			result_message = EXCLUDED.result_message,
			resolved_at = EXCLUDED.resolved_at,
			updated_at = EXCLUDED.updated_at
	`, d.Schema)
	_, err := d.DB.Exec(query, c.ID, c.Command, c.Message, string(c.Status), c.ActionsEnabled, c.ResultMessage,
		unixNano(c.CreatedAt), unixNano(c.ResolvedAt), time.Now().UnixNano())
	if err != nil {
		return helpers.NewDatabaseError("save confirmation "+c.ID, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) LoadConfirmations(limit int) ([]models.MConfirmation, error) {
	query := fmt.Sprintf(`
		SELECT id, command, message, status, actions_enabled, result_message, created_at, resolved_at
		FROM "%s"."confirmations"
		ORDER BY updated_at DESC, id DESC
		LIMIT $1
	`, d.Schema)
	rows, err := d.DB.Query(query, limit)
	if err != nil {
		return nil, helpers.NewDatabaseError("load confirmations", err)
	}
	defer rows.Close()

	return scanConfirmations(rows)
}

// -----------------------------------------------------------------------------

// PruneConfirmations drops terminal records beyond the newest keep.
func (d *PostgresDB) PruneConfirmations(keep int) error {
	query := fmt.Sprintf(`
		DELETE FROM "%[1]s"."confirmations"
		WHERE status IN ($1, $2, $3)
		AND id NOT IN (
			SELECT id FROM "%[1]s"."confirmations"
			WHERE status IN ($1, $2, $3)
			ORDER BY updated_at DESC, id DESC
			LIMIT $4
		)
	`, d.Schema)
	res, err := d.DB.Exec(query, string(models.ConfirmationDeclined), string(models.ConfirmationResolved),
		string(models.ConfirmationFailed), keep)
	if err != nil {
		return helpers.NewDatabaseError("prune confirmations", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		d.Logger.Info("Pruned %d old confirmation records", n)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
