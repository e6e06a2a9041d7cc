package store

import (
	"context"
	"fmt"

	"github.com/wardleworks/chatwarden/internal/config"
	"github.com/wardleworks/chatwarden/internal/store/mysql"
	"github.com/wardleworks/chatwarden/internal/store/postgres"
	"github.com/wardleworks/chatwarden/internal/store/sqlite"
)

// Open connects the configured dialect and returns a validated [Store]. The
// schema is not created here; call [Store.EnsureSchema] once at startup.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	var (
		driver Driver
		err    error
	)
	switch cfg.Dialect {
	case config.DialectSQLite:
		driver, err = sqlite.New(cfg.DSN)
	case config.DialectMySQL:
		driver, err = mysql.New(cfg.DSN)
	case config.DialectPostgres:
		driver, err = postgres.New(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown database dialect %q", cfg.Dialect)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Dialect, err)
	}
	return New(driver), nil
}
