package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/playtube/authcore/internal/models"
	"github.com/playtube/authcore/internal/storage"
)

const uniqueViolation = "23505"

var _ storage.UserRepository = (*UserRepository)(nil)

type UserRepository struct {
	db storage.DBTX
}

func NewUserRepository(db storage.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, username, email, full_name, password_hash, refresh_selector, refresh_verifier_hash, refresh_expires_at, created_at, updated_at`

func (r *UserRepository) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	query := `INSERT INTO users (username, email, full_name, password_hash) VALUES ($1, $2, $3, $4) RETURNING ` + userColumns
	row := r.db.QueryRowContext(ctx, query, user.Username, user.Email, user.FullName, user.PasswordHash)
	created, err := scanUser(row)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, storage.ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return created, nil
}

func (r *UserRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return user, nil
}

func (r *UserRepository) GetUserByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1 OR email = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, identifier))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by identifier: %w", err)
	}
	return user, nil
}

func (r *UserRepository) GetUserByRefreshSelector(ctx context.Context, selector string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE refresh_selector = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, selector))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by refresh selector: %w", err)
	}
	return user, nil
}

func (r *UserRepository) SetRefreshReference(ctx context.Context, userID int64, ref models.RefreshReference) error {
	query := `UPDATE users SET refresh_selector = $2, refresh_verifier_hash = $3, refresh_expires_at = $4, updated_at = now() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, userID, ref.Selector, ref.VerifierHash, ref.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to set refresh reference: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrUserNotFound
	}
	return nil
}

// RotateRefreshReference is the single serialization point for concurrent
// refreshes: the WHERE clause only matches while the old selector is still
// stored, so exactly one of two racing rotations can succeed.
func (r *UserRepository) RotateRefreshReference(ctx context.Context, userID int64, oldSelector string, ref models.RefreshReference) error {
	query := `UPDATE users SET refresh_selector = $3, refresh_verifier_hash = $4, refresh_expires_at = $5, updated_at = now() WHERE id = $1 AND refresh_selector = $2`
	res, err := r.db.ExecContext(ctx, query, userID, oldSelector, ref.Selector, ref.VerifierHash, ref.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to rotate refresh reference: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrSessionConflict
	}
	return nil
}

func (r *UserRepository) ClearRefreshReference(ctx context.Context, userID int64) error {
	query := `UPDATE users SET refresh_selector = NULL, refresh_verifier_hash = NULL, refresh_expires_at = NULL, updated_at = now() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to clear refresh reference: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		user         models.User
		selector     sql.NullString
		verifierHash sql.NullString
		expiresAt    sql.NullTime
	)
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FullName,
		&user.PasswordHash,
		&selector,
		&verifierHash,
		&expiresAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if selector.Valid {
		user.Refresh = &models.RefreshReference{
			Selector:     selector.String,
			VerifierHash: verifierHash.String,
			ExpiresAt:    expiresAt.Time,
		}
	}
	return &user, nil
}
