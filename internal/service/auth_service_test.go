package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"familyhub/internal/models"
	"familyhub/internal/repository"
	"familyhub/internal/security"
	"familyhub/internal/testfixtures"
)

// codeMailer records the last code sent to each address
type codeMailer struct {
	codes map[string]string
	err   error
}

func (m *codeMailer) SendSignupCode(ctx context.Context, toEmail, code string) error {
	if m.err != nil {
		return m.err
	}
	m.codes[toEmail] = code
	return nil
}

func newTestAuth(t *testing.T) (*AuthService, *codeMailer) {
	t.Helper()
	db := testfixtures.NewSQLiteDB(t)
	mailer := &codeMailer{codes: make(map[string]string)}
	auth := NewAuthService(repository.NewUserRepository(db), repository.NewSignupCodeRepository(db),
		security.NewTokenManager("test-secret", time.Hour), mailer)
	return auth, mailer
}

// register requests a verification code and registers with it
func register(t *testing.T, auth *AuthService, mailer *codeMailer, username, email, password string) (*models.Session, error) {
	t.Helper()
	if err := auth.RequestSignupCode(context.Background(), email); err != nil {
		t.Fatalf("RequestSignupCode(%s) error = %v", email, err)
	}
	return auth.Register(context.Background(), username, email, password, mailer.codes[strings.ToLower(email)])
}

func TestAuthServiceRegisterAndLogin(t *testing.T) {
	auth, mailer := newTestAuth(t)
	ctx := context.Background()

	session, err := register(t, auth, mailer, "ann", "Ann@Example.com", "password123")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if session.Token == "" || session.User.Email != "ann@example.com" {
		t.Fatalf("Register() session = %+v", session)
	}

	user, err := auth.ValidateToken(ctx, session.Token)
	if err != nil || user.ID != session.User.ID {
		t.Fatalf("ValidateToken() = %v, %v", user, err)
	}

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "correct", email: "ann@example.com", password: "password123"},
		{name: "wrong password", email: "ann@example.com", password: "nope12345", wantErr: ErrInvalidCredentials},
		{name: "unknown email", email: "bob@example.com", password: "password123", wantErr: ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.Login(ctx, tt.email, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Login() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuthServiceRegisterDuplicates(t *testing.T) {
	auth, mailer := newTestAuth(t)
	ctx := context.Background()
	if _, err := register(t, auth, mailer, "ann", "ann@example.com", "password123"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if err := auth.RequestSignupCode(ctx, "ann@example.com"); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("RequestSignupCode(taken email) error = %v, want ErrEmailTaken", err)
	}
	if _, err := auth.Register(ctx, "ann2", "ann@example.com", "password123", "000000"); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("Register(same email) error = %v, want ErrEmailTaken", err)
	}
	if _, err := auth.Register(ctx, "ann", "other@example.com", "password123", "000000"); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("Register(same username) error = %v, want ErrUsernameTaken", err)
	}
	if _, err := auth.Register(ctx, "carl", "carl@example.com", "short", "000000"); err == nil {
		t.Error("Register(short password) should fail")
	}
}

func TestAuthServiceOAuthLogin(t *testing.T) {
	auth, mailer := newTestAuth(t)
	ctx := context.Background()

	first, err := auth.OAuthLogin(ctx, "google", "g-1", "bob@example.com", "Bob Smith")
	if err != nil {
		t.Fatalf("OAuthLogin() error = %v", err)
	}
	if first.User.Username != "Bob.Smith" {
		t.Errorf("derived username = %q", first.User.Username)
	}

	again, err := auth.OAuthLogin(ctx, "google", "g-1", "bob@example.com", "Bob Smith")
	if err != nil || again.User.ID != first.User.ID {
		t.Errorf("repeat OAuthLogin() = %v, %v; want same user", again, err)
	}

	// A second identity with the same display name gets a suffixed username
	other, err := auth.OAuthLogin(ctx, "google", "g-2", "bob2@example.com", "Bob Smith")
	if err != nil {
		t.Fatalf("OAuthLogin() error = %v", err)
	}
	if other.User.Username == first.User.Username {
		t.Errorf("username collision not resolved: %q", other.User.Username)
	}

	// Password account with matching email is linked
	registered, err := register(t, auth, mailer, "carol", "carol@example.com", "password123")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	linked, err := auth.OAuthLogin(ctx, "facebook", "fb-1", "carol@example.com", "Carol")
	if err != nil || linked.User.ID != registered.User.ID {
		t.Errorf("OAuthLogin(existing email) = %v, %v", linked, err)
	}

	if _, err := auth.OAuthLogin(ctx, "google", "g-3", "carol@example.com", "Carol"); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("OAuthLogin(email owned by other provider) error = %v, want ErrEmailTaken", err)
	}
	if _, err := auth.OAuthLogin(ctx, "", "", "x@example.com", ""); !errors.Is(err, ErrOAuthIdentity) {
		t.Errorf("OAuthLogin(no identity) error = %v", err)
	}
}

func TestAuthServiceValidateToken(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	if _, err := auth.ValidateToken(ctx, "garbage"); !errors.Is(err, security.ErrInvalidToken) {
		t.Errorf("ValidateToken(garbage) error = %v", err)
	}

	token, _, err := auth.tokens.Issue("deleted-user")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if _, err := auth.ValidateToken(ctx, token); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("ValidateToken(unknown user) error = %v, want ErrSessionNotFound", err)
	}
}

func TestAuthServiceSignupCode(t *testing.T) {
	ctx := context.Background()

	t.Run("wrong code", func(t *testing.T) {
		auth, mailer := newTestAuth(t)
		if err := auth.RequestSignupCode(ctx, "ann@example.com"); err != nil {
			t.Fatalf("RequestSignupCode() error = %v", err)
		}
		wrong := "000000"
		if mailer.codes["ann@example.com"] == wrong {
			wrong = "111111"
		}
		if _, err := auth.Register(ctx, "ann", "ann@example.com", "password123", wrong); !errors.Is(err, ErrSignupCodeInvalid) {
			t.Fatalf("Register(wrong code) error = %v, want ErrSignupCodeInvalid", err)
		}
		// the right code still works after one miss
		if _, err := auth.Register(ctx, "ann", "ann@example.com", "password123", mailer.codes["ann@example.com"]); err != nil {
			t.Fatalf("Register(right code) error = %v", err)
		}
	})

	t.Run("no code requested", func(t *testing.T) {
		auth, _ := newTestAuth(t)
		if _, err := auth.Register(ctx, "ann", "ann@example.com", "password123", "123456"); !errors.Is(err, ErrSignupCodeInvalid) {
			t.Errorf("Register() error = %v, want ErrSignupCodeInvalid", err)
		}
	})

	t.Run("expired code", func(t *testing.T) {
		auth, mailer := newTestAuth(t)
		if err := auth.RequestSignupCode(ctx, "ann@example.com"); err != nil {
			t.Fatalf("RequestSignupCode() error = %v", err)
		}
		auth.now = func() time.Time { return time.Now().Add(SignupCodeTTL + time.Minute) }

		code := mailer.codes["ann@example.com"]
		if _, err := auth.Register(ctx, "ann", "ann@example.com", "password123", code); !errors.Is(err, ErrSignupCodeExpired) {
			t.Fatalf("Register(expired) error = %v, want ErrSignupCodeExpired", err)
		}
		// an expired code is discarded
		if _, err := auth.Register(ctx, "ann", "ann@example.com", "password123", code); !errors.Is(err, ErrSignupCodeInvalid) {
			t.Errorf("Register(after expiry) error = %v, want ErrSignupCodeInvalid", err)
		}
	})

	t.Run("too many attempts", func(t *testing.T) {
		auth, mailer := newTestAuth(t)
		if err := auth.RequestSignupCode(ctx, "ann@example.com"); err != nil {
			t.Fatalf("RequestSignupCode() error = %v", err)
		}
		code := mailer.codes["ann@example.com"]
		wrong := "000000"
		if code == wrong {
			wrong = "111111"
		}
		for i := 0; i < maxSignupCodeAttempts; i++ {
			auth.Register(ctx, "ann", "ann@example.com", "password123", wrong)
		}
		if _, err := auth.Register(ctx, "ann", "ann@example.com", "password123", code); !errors.Is(err, ErrSignupCodeInvalid) {
			t.Errorf("Register(after lockout) error = %v, want ErrSignupCodeInvalid", err)
		}
	})

	t.Run("mailer failure", func(t *testing.T) {
		auth, mailer := newTestAuth(t)
		mailer.err = ErrEmailDisabled
		if err := auth.RequestSignupCode(ctx, "ann@example.com"); !errors.Is(err, ErrEmailDisabled) {
			t.Errorf("RequestSignupCode() error = %v, want ErrEmailDisabled", err)
		}
	})
}
