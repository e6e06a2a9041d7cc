// Package store persists per-player settings: the email address used for
// transcript export and, when the server runs in per-player credential mode,
// API tokens keyed by platform.
//
// The dialect drivers live in sub-packages; callers only see [Store], which
// adds input validation on top of the raw [Driver] upserts.
package store

import (
	"context"
	"errors"
	"regexp"
)

// ErrUnavailable is returned by every operation of an [Unavailable] store.
var ErrUnavailable = errors.New("store: unavailable")

// emailPattern is the accepted address shape. Deliverability is the mail
// relay's problem, not ours.
var emailPattern = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@[A-Za-z0-9.-]+$`)

// ValidEmail reports whether address passes the shape check applied before
// any write.
func ValidEmail(address string) bool {
	return emailPattern.MatchString(address)
}

// Driver is the dialect-specific persistence backend. Implementations must
// make the upserts atomic: exactly one row per key, last write wins.
type Driver interface {
	// EnsureSchema creates the tables if they do not exist. Idempotent.
	EnsureSchema(ctx context.Context) error

	GetEmail(ctx context.Context, playerID string) (string, bool, error)
	UpsertEmail(ctx context.Context, playerID, email string) error

	GetToken(ctx context.Context, playerID, platform string) (string, bool, error)
	UpsertToken(ctx context.Context, playerID, platform, token string) error

	Close() error
}

// Store wraps a [Driver] with the validation rules shared by every dialect.
type Store struct {
	driver Driver
}

// New wraps driver.
func New(driver Driver) *Store {
	return &Store{driver: driver}
}

// Unavailable returns a Store whose every operation fails with
// [ErrUnavailable]. Used when the configured backend cannot be opened so the
// rest of the server can start with persistence degraded.
func Unavailable() *Store {
	return New(unavailableDriver{})
}

type unavailableDriver struct{}

func (unavailableDriver) EnsureSchema(context.Context) error { return ErrUnavailable }

func (unavailableDriver) GetEmail(context.Context, string) (string, bool, error) {
	return "", false, ErrUnavailable
}

func (unavailableDriver) UpsertEmail(context.Context, string, string) error {
	return ErrUnavailable
}

func (unavailableDriver) GetToken(context.Context, string, string) (string, bool, error) {
	return "", false, ErrUnavailable
}

func (unavailableDriver) UpsertToken(context.Context, string, string, string) error {
	return ErrUnavailable
}

func (unavailableDriver) Close() error { return nil }

// EnsureSchema creates the backing tables if absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.driver.EnsureSchema(ctx)
}

// GetEmail returns the stored address for playerID. The boolean is false
// when no address has been saved.
func (s *Store) GetEmail(ctx context.Context, playerID string) (string, bool, error) {
	return s.driver.GetEmail(ctx, playerID)
}

// SetEmail saves the address for playerID, replacing any previous one. An
// address failing the shape check is rejected with (false, nil) and nothing
// is written.
func (s *Store) SetEmail(ctx context.Context, playerID, email string) (bool, error) {
	if !ValidEmail(email) {
		return false, nil
	}
	if err := s.driver.UpsertEmail(ctx, playerID, email); err != nil {
		return false, err
	}
	return true, nil
}

// GetToken returns the stored API token for playerID on platform.
func (s *Store) GetToken(ctx context.Context, playerID, platform string) (string, bool, error) {
	return s.driver.GetToken(ctx, playerID, platform)
}

// SetToken saves the API token for playerID on platform. An empty token is
// rejected with (false, nil) and nothing is written.
func (s *Store) SetToken(ctx context.Context, playerID, platform, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	if err := s.driver.UpsertToken(ctx, playerID, platform, token); err != nil {
		return false, err
	}
	return true, nil
}

// Close releases the underlying connections.
func (s *Store) Close() error {
	return s.driver.Close()
}
