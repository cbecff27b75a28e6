package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"familyhub/internal/database"
	"familyhub/internal/models"
)

// ErrDuplicateUser is returned when a username, email or OAuth identity already exists
var ErrDuplicateUser = errors.New("user already exists")

const userColumns = "id, username, email, password_hash, oauth_provider, oauth_subject, created_at"

// UserRepository handles database operations for user profiles
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new user repository
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser inserts a new user profile. passwordHash may be nil for OAuth-only accounts.
func (r *UserRepository) CreateUser(ctx context.Context, username, email string, passwordHash *string) (*models.UserProfile, error) {
	return r.insert(ctx, &models.UserProfile{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
	})
}

// CreateOAuthUser inserts a new user profile linked to an OAuth identity
func (r *UserRepository) CreateOAuthUser(ctx context.Context, username, email, provider, subject string) (*models.UserProfile, error) {
	return r.insert(ctx, &models.UserProfile{
		Username:      username,
		Email:         email,
		OAuthProvider: &provider,
		OAuthSubject:  &subject,
	})
}

func (r *UserRepository) insert(ctx context.Context, user *models.UserProfile) (*models.UserProfile, error) {
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now().UTC()

	query := "INSERT INTO user_profiles (" + userColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?)"
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Username, user.Email,
		user.PasswordHash, user.OAuthProvider, user.OAuthSubject,
		user.CreatedAt,
	)
	if err != nil {
		if r.db.GetDialect().IsUniqueViolation(err) {
			return nil, fmt.Errorf("failed to create user: %w", errors.Join(ErrDuplicateUser, err))
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// GetUserByID retrieves a user by ID. Returns nil, nil when absent.
func (r *UserRepository) GetUserByID(ctx context.Context, id string) (*models.UserProfile, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM user_profiles WHERE id = ?", id)
}

// GetUserByEmail retrieves a user by email address. Returns nil, nil when absent.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.UserProfile, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM user_profiles WHERE email = ?", email)
}

// GetUserByUsername retrieves a user by username. Returns nil, nil when absent.
func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*models.UserProfile, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM user_profiles WHERE username = ?", username)
}

// GetUserByOAuth retrieves a user by OAuth provider and subject. Returns nil, nil when absent.
func (r *UserRepository) GetUserByOAuth(ctx context.Context, provider, subject string) (*models.UserProfile, error) {
	return r.getOne(ctx,
		"SELECT "+userColumns+" FROM user_profiles WHERE oauth_provider = ? AND oauth_subject = ?",
		provider, subject)
}

// LinkOAuthProvider attaches an OAuth identity to an existing user
func (r *UserRepository) LinkOAuthProvider(ctx context.Context, userID, provider, subject string) error {
	query := "UPDATE user_profiles SET oauth_provider = ?, oauth_subject = ? WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, provider, subject, userID); err != nil {
		return fmt.Errorf("failed to link oauth provider: %w", err)
	}
	return nil
}

// ListUsers returns every user profile ordered by creation time
func (r *UserRepository) ListUsers(ctx context.Context) ([]models.UserProfile, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+userColumns+" FROM user_profiles ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []models.UserProfile
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

func (r *UserRepository) getOne(ctx context.Context, query string, args ...any) (*models.UserProfile, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*models.UserProfile, error) {
	var (
		user          models.UserProfile
		passwordHash  sql.NullString
		oauthProvider sql.NullString
		oauthSubject  sql.NullString
	)
	if err := s.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&passwordHash,
		&oauthProvider,
		&oauthSubject,
		&user.CreatedAt,
	); err != nil {
		return nil, err
	}
	user.PasswordHash = nullableString(passwordHash)
	user.OAuthProvider = nullableString(oauthProvider)
	user.OAuthSubject = nullableString(oauthSubject)
	return &user, nil
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullableTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
