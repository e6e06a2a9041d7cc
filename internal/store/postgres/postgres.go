// Package postgres is the PostgreSQL store driver, backed by a pgx
// connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
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

// DB is the connection interface used by [Driver]. Both *pgxpool.Pool and
// *pgx.Conn satisfy it.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Driver stores player settings in PostgreSQL.
type Driver struct {
	db    DB
	close func()
}

// New opens a pgx pool for the given connection URL.
func New(ctx context.Context, dsn string) (*Driver, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres pool: %w", err)
	}
	return &Driver{db: pool, close: pool.Close}, nil
}

// NewWithDB wraps an existing connection or pool. For tests.
func NewWithDB(db DB) *Driver {
	return &Driver{db: db, close: func() {}}
}

func (d *Driver) EnsureSchema(ctx context.Context) error {
	if _, err := d.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("creating postgres schema: %w", err)
	}
	return nil
}

func (d *Driver) GetEmail(ctx context.Context, playerID string) (string, bool, error) {
	var email string
	err := d.db.QueryRow(ctx,
		`SELECT email FROM player_emails WHERE player_id = $1`, playerID,
	).Scan(&email)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading email for %s: %w", playerID, err)
	}
	return email, true, nil
}

func (d *Driver) UpsertEmail(ctx context.Context, playerID, email string) error {
	_, err := d.db.Exec(ctx, `
		INSERT INTO player_emails (player_id, email) VALUES ($1, $2)
		ON CONFLICT (player_id) DO UPDATE SET email = EXCLUDED.email`,
		playerID, email,
	)
	if err != nil {
		return fmt.Errorf("saving email for %s: %w", playerID, err)
	}
	return nil
}

func (d *Driver) GetToken(ctx context.Context, playerID, platform string) (string, bool, error) {
	var token string
	err := d.db.QueryRow(ctx,
		`SELECT token FROM player_tokens WHERE player_id = $1 AND platform = $2`,
		playerID, platform,
	).Scan(&token)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading token for %s/%s: %w", playerID, platform, err)
	}
	return token, true, nil
}

func (d *Driver) UpsertToken(ctx context.Context, playerID, platform, token string) error {
	_, err := d.db.Exec(ctx, `
		INSERT INTO player_tokens (player_id, platform, token) VALUES ($1, $2, $3)
		ON CONFLICT (player_id, platform) DO UPDATE SET token = EXCLUDED.token`,
		playerID, platform, token,
	)
	if err != nil {
		return fmt.Errorf("saving token for %s/%s: %w", playerID, platform, err)
	}
	return nil
}

func (d *Driver) Close() error {
	d.close()
	return nil
}
