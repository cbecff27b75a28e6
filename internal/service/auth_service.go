package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"familyhub/internal/models"
	"familyhub/internal/repository"
	"familyhub/internal/security"
	"familyhub/internal/validation"
)

var (
	ErrEmailTaken         = errors.New("email already taken")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSessionNotFound    = errors.New("session not found")
	ErrOAuthIdentity      = errors.New("missing oauth provider information")
	ErrSignupCodeInvalid  = errors.New("invalid verification code")
	ErrSignupCodeExpired  = errors.New("verification code expired")
)

const (
	// SignupCodeLength is the number of digits in an emailed verification code
	SignupCodeLength = 6
	// SignupCodeTTL is how long a verification code can be used
	SignupCodeTTL         = 10 * time.Minute
	maxSignupCodeAttempts = 5
)

// SignupMailer delivers verification codes
type SignupMailer interface {
	SendSignupCode(ctx context.Context, toEmail, code string) error
}

var usernameStrip = regexp.MustCompile(`[^a-zA-Z0-9_.\-]+`)

// AuthService handles registration, login and token validation
type AuthService struct {
	users  *repository.UserRepository
	codes  *repository.SignupCodeRepository
	tokens *security.TokenManager
	mailer SignupMailer
	now    func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(users *repository.UserRepository, codes *repository.SignupCodeRepository, tokens *security.TokenManager, mailer SignupMailer) *AuthService {
	return &AuthService{users: users, codes: codes, tokens: tokens, mailer: mailer, now: time.Now}
}

// RequestSignupCode emails a one-time verification code to an address that has no account yet.
// A new request replaces any earlier code for the address.
func (s *AuthService) RequestSignupCode(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validation.ValidateEmail(email); err != nil {
		return err
	}

	existing, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return ErrEmailTaken
	}

	code, err := security.GenerateNumericCode(SignupCodeLength)
	if err != nil {
		return fmt.Errorf("failed to generate verification code: %w", err)
	}
	hash, err := security.HashPassword(code)
	if err != nil {
		return fmt.Errorf("failed to hash verification code: %w", err)
	}
	if err := s.codes.Save(ctx, email, hash, s.now().Add(SignupCodeTTL)); err != nil {
		return err
	}
	return s.mailer.SendSignupCode(ctx, email, code)
}

// Register checks the emailed verification code, creates a password account
// and returns a session for it
func (s *AuthService) Register(ctx context.Context, username, email, password, code string) (*models.Session, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if err := validation.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}

	existing, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}
	existing, err = s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}

	if err := s.verifySignupCode(ctx, email, strings.TrimSpace(code)); err != nil {
		return nil, err
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, username, email, &hash)
	if errors.Is(err, repository.ErrDuplicateUser) {
		// lost a race with a concurrent registration
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, err
	}
	// a leftover code is unusable once the email has an account
	_ = s.codes.Delete(ctx, email)
	return s.issue(user)
}

func (s *AuthService) verifySignupCode(ctx context.Context, email, code string) error {
	pending, err := s.codes.Get(ctx, email)
	if err != nil {
		return err
	}
	if pending == nil || code == "" {
		return ErrSignupCodeInvalid
	}
	if pending.IsExpiredAt(s.now()) {
		if err := s.codes.Delete(ctx, email); err != nil {
			return err
		}
		return ErrSignupCodeExpired
	}
	if pending.Attempts >= maxSignupCodeAttempts {
		if err := s.codes.Delete(ctx, email); err != nil {
			return err
		}
		return ErrSignupCodeInvalid
	}
	if !security.CheckPassword(code, pending.CodeHash) {
		if err := s.codes.IncrementAttempts(ctx, email); err != nil {
			return err
		}
		return ErrSignupCodeInvalid
	}
	return nil
}

// Login checks a password and returns a new session
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || !user.HasPassword() {
		return nil, ErrInvalidCredentials
	}
	if !security.CheckPassword(password, *user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return s.issue(user)
}

// OAuthLogin signs in an OAuth identity, linking it to an account with the same
// email or creating a new account when none exists
func (s *AuthService) OAuthLogin(ctx context.Context, provider, subject, email, name string) (*models.Session, error) {
	if provider == "" || subject == "" {
		return nil, ErrOAuthIdentity
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByOAuth(ctx, provider, subject)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup oauth user: %w", err)
	}

	if user == nil {
		existing, err := s.users.GetUserByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("failed to check existing user: %w", err)
		}
		switch {
		case existing != nil && existing.OAuthProvider != nil && *existing.OAuthProvider != provider:
			return nil, ErrEmailTaken
		case existing != nil:
			if err := s.users.LinkOAuthProvider(ctx, existing.ID, provider, subject); err != nil {
				return nil, err
			}
			user = existing
		default:
			user, err = s.createOAuthUser(ctx, provider, subject, email, name)
			if err != nil {
				return nil, err
			}
		}
	}

	return s.issue(user)
}

func (s *AuthService) createOAuthUser(ctx context.Context, provider, subject, email, name string) (*models.UserProfile, error) {
	base := usernameStrip.ReplaceAllString(strings.ReplaceAll(strings.TrimSpace(name), " ", "."), "")
	if len(base) < validation.MinUsernameLength {
		base = usernameStrip.ReplaceAllString(strings.Split(email, "@")[0], "")
	}
	if len(base) < validation.MinUsernameLength {
		base = "user"
	}
	if len(base) > validation.MaxUsernameLength-7 {
		base = base[:validation.MaxUsernameLength-7]
	}

	username := base
	for attempt := 0; attempt < 5; attempt++ {
		user, err := s.users.CreateOAuthUser(ctx, username, email, provider, subject)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, repository.ErrDuplicateUser) {
			return nil, err
		}
		suffix, err := security.RandomHex(3)
		if err != nil {
			return nil, err
		}
		username = base + "-" + suffix
	}
	return nil, ErrUsernameTaken
}

// ValidateToken returns the user a session token was issued to
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*models.UserProfile, error) {
	userID, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrSessionNotFound
	}
	return user, nil
}

func (s *AuthService) issue(user *models.UserProfile) (*models.Session, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &models.Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}
