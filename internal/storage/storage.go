package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/playtube/authcore/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
	// ErrSessionConflict is returned by RotateRefreshReference when the stored
	// reference no longer matches the expected selector: another refresh or a
	// logout won the race.
	ErrSessionConflict = errors.New("refresh reference superseded")
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// UserRepository is the credential store. Every write is a single atomic
// per-record statement; the session manager relies on that for its
// one-live-refresh-token-per-user invariant.
type UserRepository interface {
	CreateUser(ctx context.Context, user models.User) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	// GetUserByIdentifier resolves a user by username or email.
	GetUserByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	GetUserByRefreshSelector(ctx context.Context, selector string) (*models.User, error)
	// SetRefreshReference unconditionally replaces the stored reference,
	// superseding any previously issued refresh token.
	SetRefreshReference(ctx context.Context, userID int64, ref models.RefreshReference) error
	// RotateRefreshReference replaces the stored reference only if it still
	// matches oldSelector (compare-and-set). Returns ErrSessionConflict when
	// the reference changed concurrently.
	RotateRefreshReference(ctx context.Context, userID int64, oldSelector string, ref models.RefreshReference) error
	// ClearRefreshReference removes the stored reference. Clearing an already
	// empty reference is not an error.
	ClearRefreshReference(ctx context.Context, userID int64) error
}

// RateLimiter throttles credential-guessing endpoints per client key.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}
