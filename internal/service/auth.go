package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/playtube/authcore/internal/models"
	"github.com/playtube/authcore/internal/storage"
)

var (
	// ErrInvalidCredentials covers both an unknown identifier and a wrong
	// password. Callers must not be able to tell the two apart.
	ErrInvalidCredentials = errors.New("invalid identifier or password")
	// ErrInvalidRefreshToken covers refresh tokens that were never issued,
	// already rotated, expired, or cleared by logout.
	ErrInvalidRefreshToken = errors.New("refresh token invalid or already used")
	ErrMissingFields       = errors.New("all fields are required")
)

// AuthService orchestrates the session lifecycle: login verifies credentials
// and issues a token pair, refresh rotates the pair, logout revokes it.
// Each successful login or refresh performs exactly one reference write, and
// tokens are only returned after that write has committed.
type AuthService struct {
	tokens *TokenService
	hasher *PasswordHasher
	users  storage.UserRepository
	alerts SecurityNotifier
	log    *zap.SugaredLogger
}

func NewAuthService(
	tokens *TokenService,
	hasher *PasswordHasher,
	users storage.UserRepository,
	alerts SecurityNotifier,
	log *zap.SugaredLogger,
) *AuthService {
	return &AuthService{
		tokens: tokens,
		hasher: hasher,
		users:  users,
		alerts: alerts,
		log:    log,
	}
}

func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	email := strings.ToLower(strings.TrimSpace(req.Email))
	fullName := strings.TrimSpace(req.FullName)

	if username == "" || email == "" || fullName == "" || req.Password == "" {
		return nil, ErrMissingFields
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, models.User{
		Username:     username,
		Email:        email,
		FullName:     fullName,
		PasswordHash: passwordHash,
	})
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Infow("user registered", "userID", user.ID, "username", user.Username)
	return user, nil
}

// Login verifies the credentials and issues a fresh token pair. The new
// refresh reference unconditionally overwrites any previous one, so an
// earlier session for the same account is implicitly revoked.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*models.User, *models.TokenPairResponse, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" || password == "" {
		return nil, nil, ErrInvalidCredentials
	}

	user, err := s.users.GetUserByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("get user by identifier: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}

	pair, ref, err := s.issuePair(user.ID, time.Now())
	if err != nil {
		return nil, nil, err
	}

	// Persist before returning anything: a pair the store never saw must
	// never reach the caller.
	if err := s.users.SetRefreshReference(ctx, user.ID, ref); err != nil {
		return nil, nil, fmt.Errorf("persist refresh reference: %w", err)
	}

	s.log.Infow("user logged in", "userID", user.ID)
	return user, pair, nil
}

// Refresh rotates a presented refresh token: the old token becomes invalid
// the moment the new reference is stored, and only one of two concurrent
// rotations of the same token can succeed.
func (s *AuthService) Refresh(ctx context.Context, presented string) (*models.TokenPairResponse, error) {
	selector, _, err := SplitRefreshToken(presented)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.users.GetUserByRefreshSelector(ctx, selector)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("get user by refresh selector: %w", err)
	}

	now := time.Now()
	if !user.HasActiveRefresh(now) {
		return nil, ErrInvalidRefreshToken
	}

	if err := s.tokens.ValidateRefreshToken(presented, user.Refresh.VerifierHash); err != nil {
		// Selector matched but the verifier did not: either a guessing
		// attempt or a stolen token presented after rotation.
		s.alerts.NotifyRefreshReplay(ctx, user.ID, "verifier mismatch")
		return nil, ErrInvalidRefreshToken
	}

	pair, ref, err := s.issuePair(user.ID, now)
	if err != nil {
		return nil, err
	}

	if err := s.users.RotateRefreshReference(ctx, user.ID, selector, ref); err != nil {
		if errors.Is(err, storage.ErrSessionConflict) {
			s.alerts.NotifyRefreshReplay(ctx, user.ID, "rotation conflict")
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("rotate refresh reference: %w", err)
	}

	s.log.Infow("refresh token rotated", "userID", user.ID)
	return pair, nil
}

// Logout clears the stored refresh reference. It is idempotent: logging out
// an account with no active session succeeds with no effect.
func (s *AuthService) Logout(ctx context.Context, userID int64) error {
	if err := s.users.ClearRefreshReference(ctx, userID); err != nil {
		return fmt.Errorf("clear refresh reference: %w", err)
	}
	s.log.Infow("user logged out", "userID", userID)
	return nil
}

// Authenticate verifies an access token. Purely computational: no store
// lookup, safe under unbounded parallelism.
func (s *AuthService) Authenticate(_ context.Context, accessToken string) (int64, error) {
	return s.tokens.ValidateAccessToken(accessToken)
}

func (s *AuthService) CurrentUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

func (s *AuthService) issuePair(userID int64, now time.Time) (*models.TokenPairResponse, models.RefreshReference, error) {
	access, _, err := s.tokens.CreateAccessToken(userID, now)
	if err != nil {
		return nil, models.RefreshReference{}, fmt.Errorf("create access token: %w", err)
	}

	refresh, selector, verifierHash, err := s.tokens.CreateRefreshToken()
	if err != nil {
		return nil, models.RefreshReference{}, fmt.Errorf("create refresh token: %w", err)
	}

	ref := models.RefreshReference{
		Selector:     selector,
		VerifierHash: verifierHash,
		ExpiresAt:    now.Add(s.tokens.RefreshTTL()),
	}

	return &models.TokenPairResponse{
		AccessToken:  access,
		RefreshToken: refresh,
	}, ref, nil
}
