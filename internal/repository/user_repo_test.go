package repository

import (
	"context"
	"errors"
	"testing"

	"familyhub/internal/models"
	"familyhub/internal/testfixtures"
)

func TestUserRepository(t *testing.T) {
	db := testfixtures.NewSQLiteDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	hash := "$2a$10$hash"

	user, err := repo.CreateUser(ctx, "ann", "ann@example.com", &hash)
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if !user.HasPassword() {
		t.Error("created user should have a password")
	}

	tests := []struct {
		name   string
		lookup func() (string, error)
	}{
		{"by id", func() (string, error) { u, err := repo.GetUserByID(ctx, user.ID); return idOf(u), err }},
		{"by email", func() (string, error) { u, err := repo.GetUserByEmail(ctx, "ann@example.com"); return idOf(u), err }},
		{"by username", func() (string, error) { u, err := repo.GetUserByUsername(ctx, "ann"); return idOf(u), err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := tt.lookup()
			if err != nil {
				t.Fatalf("lookup error = %v", err)
			}
			if id != user.ID {
				t.Errorf("lookup id = %q, want %q", id, user.ID)
			}
		})
	}

	missing, err := repo.GetUserByEmail(ctx, "nobody@example.com")
	if err != nil || missing != nil {
		t.Errorf("GetUserByEmail(unknown) = %v, %v; want nil, nil", missing, err)
	}

	_, err = repo.CreateUser(ctx, "ann", "other@example.com", nil)
	if !errors.Is(err, ErrDuplicateUser) {
		t.Errorf("CreateUser(duplicate username) error = %v, want ErrDuplicateUser", err)
	}
}

func TestUserRepositoryOAuth(t *testing.T) {
	db := testfixtures.NewSQLiteDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user, err := repo.CreateOAuthUser(ctx, "bob", "bob@example.com", "google", "sub-1")
	if err != nil {
		t.Fatalf("CreateOAuthUser() error = %v", err)
	}
	if user.HasPassword() {
		t.Error("OAuth user should have no password")
	}

	found, err := repo.GetUserByOAuth(ctx, "google", "sub-1")
	if err != nil || found == nil || found.ID != user.ID {
		t.Fatalf("GetUserByOAuth() = %v, %v", found, err)
	}

	other, err := repo.CreateUser(ctx, "carol", "carol@example.com", nil)
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if err := repo.LinkOAuthProvider(ctx, other.ID, "facebook", "fb-9"); err != nil {
		t.Fatalf("LinkOAuthProvider() error = %v", err)
	}
	linked, err := repo.GetUserByOAuth(ctx, "facebook", "fb-9")
	if err != nil || linked == nil || linked.ID != other.ID {
		t.Errorf("GetUserByOAuth() after link = %v, %v", linked, err)
	}

	users, err := repo.ListUsers(ctx)
	if err != nil || len(users) != 2 {
		t.Errorf("ListUsers() = %d users, %v", len(users), err)
	}
}

func idOf(u *models.UserProfile) string {
	if u == nil {
		return ""
	}
	return u.ID
}
