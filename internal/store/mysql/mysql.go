// Package mysql is the MySQL/MariaDB store driver.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

var schema = []string{`
CREATE TABLE IF NOT EXISTS player_emails (
	player_id VARCHAR(64)  NOT NULL,
	email     VARCHAR(255) NOT NULL,
	PRIMARY KEY (player_id)
)`, `
CREATE TABLE IF NOT EXISTS player_tokens (
	player_id VARCHAR(64)  NOT NULL,
	platform  VARCHAR(64)  NOT NULL,
	token     VARCHAR(512) NOT NULL,
	PRIMARY KEY (player_id, platform)
)`}

// Driver stores player settings in a MySQL database.
type Driver struct {
	db *sql.DB
}

// New opens a connection pool for the given go-sql-driver DSN.
func New(dsn string) (*Driver, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening mysql connection: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetConnMaxLifetime(time.Hour)
	return &Driver{db: db}, nil
}

func (d *Driver) EnsureSchema(ctx context.Context) error {
	// MySQL cannot run multiple statements in one Exec by default.
	for _, stmt := range schema {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating mysql schema: %w", err)
		}
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
		ON DUPLICATE KEY UPDATE email = VALUES(email)`,
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
		ON DUPLICATE KEY UPDATE token = VALUES(token)`,
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
