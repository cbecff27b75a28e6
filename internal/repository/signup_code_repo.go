package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"familyhub/internal/database"
	"familyhub/internal/models"
)

// SignupCodeRepository stores pending email verification codes
type SignupCodeRepository struct {
	db database.DBTX
}

// NewSignupCodeRepository creates a new signup code repository
func NewSignupCodeRepository(db database.DBTX) *SignupCodeRepository {
	return &SignupCodeRepository{db: db}
}

// Save stores codeHash for email, replacing any earlier code and resetting its attempt count
func (r *SignupCodeRepository) Save(ctx context.Context, email, codeHash string, expiresAt time.Time) error {
	query := r.db.GetDialect().UpsertSignupCodeQuery()
	if _, err := r.db.ExecContext(ctx, query, email, codeHash, expiresAt.UTC(), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save signup code: %w", err)
	}
	return nil
}

// Get returns the pending code for email. Returns nil, nil when absent.
func (r *SignupCodeRepository) Get(ctx context.Context, email string) (*models.SignupCode, error) {
	var code models.SignupCode
	err := r.db.QueryRowContext(ctx,
		"SELECT email, code_hash, attempts, expires_at, created_at FROM signup_codes WHERE email = ?",
		email,
	).Scan(&code.Email, &code.CodeHash, &code.Attempts, &code.ExpiresAt, &code.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get signup code: %w", err)
	}
	return &code, nil
}

// IncrementAttempts records a failed verification for email
func (r *SignupCodeRepository) IncrementAttempts(ctx context.Context, email string) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE signup_codes SET attempts = attempts + 1 WHERE email = ?", email); err != nil {
		return fmt.Errorf("failed to record signup code attempt: %w", err)
	}
	return nil
}

// Delete removes the pending code for email
func (r *SignupCodeRepository) Delete(ctx context.Context, email string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM signup_codes WHERE email = ?", email); err != nil {
		return fmt.Errorf("failed to delete signup code: %w", err)
	}
	return nil
}
