package repository

import (
	"context"
	"testing"
	"time"

	"familyhub/internal/testfixtures"
)

func TestSignupCodeRepository(t *testing.T) {
	db := testfixtures.NewSQLiteDB(t)
	repo := NewSignupCodeRepository(db)
	ctx := context.Background()

	missing, err := repo.Get(ctx, "ann@example.com")
	if err != nil || missing != nil {
		t.Fatalf("Get(missing) = %v, %v; want nil, nil", missing, err)
	}

	expires := time.Now().Add(10 * time.Minute)
	if err := repo.Save(ctx, "ann@example.com", "hash-1", expires); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := repo.IncrementAttempts(ctx, "ann@example.com"); err != nil {
		t.Fatalf("IncrementAttempts() error = %v", err)
	}

	code, err := repo.Get(ctx, "ann@example.com")
	if err != nil || code == nil {
		t.Fatalf("Get() = %v, %v", code, err)
	}
	if code.CodeHash != "hash-1" || code.Attempts != 1 {
		t.Errorf("Get() = %+v, want hash-1 with 1 attempt", code)
	}
	if code.IsExpiredAt(time.Now()) {
		t.Error("fresh code should not be expired")
	}

	// Saving again replaces the hash and resets attempts
	if err := repo.Save(ctx, "ann@example.com", "hash-2", expires); err != nil {
		t.Fatalf("Save(replace) error = %v", err)
	}
	code, _ = repo.Get(ctx, "ann@example.com")
	if code.CodeHash != "hash-2" || code.Attempts != 0 {
		t.Errorf("after replace = %+v", code)
	}

	if err := repo.Delete(ctx, "ann@example.com"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if code, _ := repo.Get(ctx, "ann@example.com"); code != nil {
		t.Errorf("code still present after Delete: %+v", code)
	}
}
