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

// ErrDuplicateMember is returned when a (family, user) membership already exists
var ErrDuplicateMember = errors.New("family member already exists")

// ErrDuplicateInviteCode is returned when a generated invite code collides with an existing one
var ErrDuplicateInviteCode = errors.New("invite code already exists")

const memberColumns = "id, family_id, user_id, role, relation, joined_at"

// FamilyRepository handles database operations for families and memberships
type FamilyRepository struct {
	db database.DBTX
}

// NewFamilyRepository creates a new family repository
func NewFamilyRepository(db database.DBTX) *FamilyRepository {
	return &FamilyRepository{db: db}
}

// CreateFamily inserts a family row. It does not add any membership.
func (r *FamilyRepository) CreateFamily(ctx context.Context, name, inviteCode, createdBy string) (*models.Family, error) {
	family := &models.Family{
		ID:         uuid.NewString(),
		Name:       name,
		InviteCode: inviteCode,
		CreatedBy:  createdBy,
		CreatedAt:  time.Now().UTC(),
	}

	query := "INSERT INTO families (id, name, invite_code, created_by, created_at) VALUES (?, ?, ?, ?, ?)"
	_, err := r.db.ExecContext(ctx, query, family.ID, family.Name, family.InviteCode, family.CreatedBy, family.CreatedAt)
	if err != nil {
		if r.db.GetDialect().IsUniqueViolation(err) {
			return nil, fmt.Errorf("failed to create family: %w", errors.Join(ErrDuplicateInviteCode, err))
		}
		return nil, fmt.Errorf("failed to create family: %w", err)
	}
	return family, nil
}

// GetFamilyByID retrieves a family by ID. Returns nil, nil when absent.
func (r *FamilyRepository) GetFamilyByID(ctx context.Context, familyID string) (*models.Family, error) {
	return r.getFamily(ctx, "SELECT id, name, invite_code, created_by, created_at FROM families WHERE id = ?", familyID)
}

// GetFamilyByInviteCode retrieves a family by its invite code. Returns nil, nil when absent.
func (r *FamilyRepository) GetFamilyByInviteCode(ctx context.Context, code string) (*models.Family, error) {
	return r.getFamily(ctx, "SELECT id, name, invite_code, created_by, created_at FROM families WHERE invite_code = ?", code)
}

func (r *FamilyRepository) getFamily(ctx context.Context, query string, arg any) (*models.Family, error) {
	family := &models.Family{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&family.ID,
		&family.Name,
		&family.InviteCode,
		&family.CreatedBy,
		&family.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	return family, nil
}

// ListFamilies returns every family ordered by creation time
func (r *FamilyRepository) ListFamilies(ctx context.Context) ([]models.Family, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, invite_code, created_by, created_at FROM families ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query families: %w", err)
	}
	defer rows.Close()

	var families []models.Family
	for rows.Next() {
		var f models.Family
		if err := rows.Scan(&f.ID, &f.Name, &f.InviteCode, &f.CreatedBy, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan family: %w", err)
		}
		families = append(families, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate families: %w", err)
	}
	return families, nil
}

// AddMember inserts a membership. A nil relation is stored as NULL.
func (r *FamilyRepository) AddMember(ctx context.Context, familyID, userID string, role models.Role, relation *string) (*models.FamilyMember, error) {
	member := &models.FamilyMember{
		ID:       uuid.NewString(),
		FamilyID: familyID,
		UserID:   userID,
		Role:     role,
		Relation: relation,
		JoinedAt: time.Now().UTC(),
	}

	query := "INSERT INTO family_members (" + memberColumns + ") VALUES (?, ?, ?, ?, ?, ?)"
	_, err := r.db.ExecContext(ctx, query,
		member.ID, member.FamilyID, member.UserID, string(member.Role), member.Relation, member.JoinedAt)
	if err != nil {
		if r.db.GetDialect().IsUniqueViolation(err) {
			return nil, fmt.Errorf("failed to add family member: %w", errors.Join(ErrDuplicateMember, err))
		}
		return nil, fmt.Errorf("failed to add family member: %w", err)
	}
	return member, nil
}

// LatestMembership returns the user's most recently joined membership. Returns nil, nil when none.
func (r *FamilyRepository) LatestMembership(ctx context.Context, userID string) (*models.FamilyMember, error) {
	query := "SELECT " + memberColumns + " FROM family_members WHERE user_id = ? ORDER BY joined_at DESC, id DESC LIMIT 1"
	return r.getMember(ctx, query, userID)
}

// GetMembership returns the membership of userID in familyID. Returns nil, nil when none.
func (r *FamilyRepository) GetMembership(ctx context.Context, familyID, userID string) (*models.FamilyMember, error) {
	query := "SELECT " + memberColumns + " FROM family_members WHERE family_id = ? AND user_id = ?"
	return r.getMember(ctx, query, familyID, userID)
}

func (r *FamilyRepository) getMember(ctx context.Context, query string, args ...any) (*models.FamilyMember, error) {
	member, err := scanMember(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family member: %w", err)
	}
	return member, nil
}

// IsMember checks if a user is a member of a family
func (r *FamilyRepository) IsMember(ctx context.Context, familyID, userID string) (bool, error) {
	var count int
	query := "SELECT COUNT(*) FROM family_members WHERE family_id = ? AND user_id = ?"
	if err := r.db.QueryRowContext(ctx, query, familyID, userID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check family membership: %w", err)
	}
	return count > 0, nil
}

// ListMembers returns the roster of a family with each member's username and email,
// oldest membership first.
func (r *FamilyRepository) ListMembers(ctx context.Context, familyID string) ([]models.FamilyMember, error) {
	query := `
		SELECT fm.id, fm.family_id, fm.user_id, fm.role, fm.relation, fm.joined_at,
		       u.username, u.email
		FROM family_members fm
		LEFT JOIN user_profiles u ON u.id = fm.user_id
		WHERE fm.family_id = ?
		ORDER BY fm.joined_at ASC, fm.id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query family members: %w", err)
	}
	defer rows.Close()

	members := []models.FamilyMember{}
	for rows.Next() {
		var (
			m        models.FamilyMember
			role     string
			relation sql.NullString
			username sql.NullString
			email    sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.FamilyID, &m.UserID, &role, &relation, &m.JoinedAt, &username, &email); err != nil {
			return nil, fmt.Errorf("failed to scan family member: %w", err)
		}
		m.Role = models.Role(role)
		m.Relation = nullableString(relation)
		if username.Valid {
			m.User = &models.MemberProfile{Username: username.String, Email: email.String}
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate family members: %w", err)
	}
	return members, nil
}

// ListAllMembers returns every membership row without profiles
func (r *FamilyRepository) ListAllMembers(ctx context.Context) ([]models.FamilyMember, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+memberColumns+" FROM family_members ORDER BY joined_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query family members: %w", err)
	}
	defer rows.Close()

	var members []models.FamilyMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan family member: %w", err)
		}
		members = append(members, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate family members: %w", err)
	}
	return members, nil
}

// RemoveMember deletes the membership of userID in familyID
func (r *FamilyRepository) RemoveMember(ctx context.Context, familyID, userID string) error {
	query := "DELETE FROM family_members WHERE family_id = ? AND user_id = ?"
	if _, err := r.db.ExecContext(ctx, query, familyID, userID); err != nil {
		return fmt.Errorf("failed to remove family member: %w", err)
	}
	return nil
}

func scanMember(s scanner) (*models.FamilyMember, error) {
	var (
		m        models.FamilyMember
		role     string
		relation sql.NullString
	)
	if err := s.Scan(&m.ID, &m.FamilyID, &m.UserID, &role, &relation, &m.JoinedAt); err != nil {
		return nil, err
	}
	m.Role = models.Role(role)
	m.Relation = nullableString(relation)
	return &m, nil
}
