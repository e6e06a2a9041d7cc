// Package sqlite is the file-backed store driver. It needs no external
// service, which makes it the default for single-host game servers.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS player_emails (
	player_id TEXT PRIMARY KEY,
	email     TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS player_tokens (
	player_id TEXT NOT NULL,
	platform  TEXT NOT NULL,
	token     TEXT NOT NULL,
	PRIMARY KEY (player_id, platform)
);
`

// Driver stores player settings in a local SQLite database file.
type Driver struct {
	db *sql.DB
}

// New opens (and creates if missing) the database file at path.
func New(path string) (*Driver, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database %s: %w", path, err)
	}
	// The sqlite file serialises writes anyway; a single connection avoids
	// SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	return &Driver{db: db}, nil
}

func (d *Driver) EnsureSchema(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating sqlite schema: %w", err)
	}
	return nil
}

func (d *Driver) GetEmail(ctx context.Context, playerID string) (string, bool, error) {
	var email string
	err := d.db.QueryRowContext(ctx,
		`SELECT email FROM player_emails WHERE player_id = ?`, playerID,
	).Scan(&email)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading email for %s: %w", playerID, err)
	}
	return email, true, nil
}

func (d *Driver) UpsertEmail(ctx context.Context, playerID, email string) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO player_emails (player_id, email) VALUES (?, ?)
		ON CONFLICT (player_id) DO UPDATE SET email = excluded.email`,
		playerID, email,
	)
	if err != nil {
		return fmt.Errorf("saving email for %s: %w", playerID, err)
	}
	return nil
}

func (d *Driver) GetToken(ctx context.Context, playerID, platform string) (string, bool, error) {
	var token string
	err := d.db.QueryRowContext(ctx,
		`SELECT token FROM player_tokens WHERE player_id = ? AND platform = ?`,
		playerID, platform,
	).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading token for %s/%s: %w", playerID, platform, err)
	}
	return token, true, nil
}

func (d *Driver) UpsertToken(ctx context.Context, playerID, platform, token string) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO player_tokens (player_id, platform, token) VALUES (?, ?, ?)
		ON CONFLICT (player_id, platform) DO UPDATE SET token = excluded.token`,
		playerID, platform, token,
	)
	if err != nil {
		return fmt.Errorf("saving token for %s/%s: %w", playerID, platform, err)
	}
	return nil
}

func (d *Driver) Close() error {
	return d.db.Close()
}
