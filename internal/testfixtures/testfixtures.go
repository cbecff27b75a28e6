// Package testfixtures provides a migrated SQLite store and seed helpers for package tests.
package testfixtures

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"familyhub/internal/database"
	"familyhub/migrations"
)

// NewSQLiteDB opens a fresh SQLite database in a temp dir and applies the embedded schema.
// The database is closed when the test finishes.
func NewSQLiteDB(tb testing.TB) *database.DB {
	tb.Helper()

	db, err := database.Initialize(filepath.Join(tb.TempDir(), "test.db"))
	if err != nil {
		tb.Fatalf("Failed to initialize database: %v", err)
	}
	tb.Cleanup(func() { db.Close() })

	if _, err := db.RunMigrations(context.Background(), migrations.FS); err != nil {
		tb.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

// SeedUser inserts a user profile with no password and returns its id
func SeedUser(tb testing.TB, db database.DBTX, username string) string {
	tb.Helper()

	id := uuid.NewString()
	_, err := db.ExecContext(context.Background(),
		"INSERT INTO user_profiles (id, username, email, created_at) VALUES (?, ?, ?, ?)",
		id, username, username+"@example.com", time.Now().UTC())
	if err != nil {
		tb.Fatalf("Failed to seed user %s: %v", username, err)
	}
	return id
}

// SeedFamily inserts a family created by userID and an admin membership for that user
func SeedFamily(tb testing.TB, db database.DBTX, name, inviteCode, userID string) string {
	tb.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	id := uuid.NewString()
	if _, err := db.ExecContext(ctx,
		"INSERT INTO families (id, name, invite_code, created_by, created_at) VALUES (?, ?, ?, ?, ?)",
		id, name, inviteCode, userID, now); err != nil {
		tb.Fatalf("Failed to seed family %s: %v", name, err)
	}
	if _, err := db.ExecContext(ctx,
		"INSERT INTO family_members (id, family_id, user_id, role, relation, joined_at) VALUES (?, ?, ?, 'admin', 'Self', ?)",
		uuid.NewString(), id, userID, now); err != nil {
		tb.Fatalf("Failed to seed membership: %v", err)
	}
	return id
}
