package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"familyhub/internal/models"
	"familyhub/internal/repository"
	"familyhub/internal/security"
	"familyhub/internal/validation"
)

var (
	ErrNotAuthenticated   = errors.New("Not authenticated")
	ErrFamilyNameRequired = errors.New("Family name is required")
	ErrFamilyNameInvalid  = errors.New("Invalid family name")
	ErrInviteCodeRequired = errors.New("Invite code is required")
	ErrInvalidInviteCode  = errors.New("Invalid invite code")
	ErrAlreadyMember      = errors.New("Already a member of this family")
	ErrNoFamilyToLeave    = errors.New("No family to leave")
	ErrCreateFamilyFailed = errors.New("Failed to create family")
	ErrAddMemberFailed    = errors.New("Failed to add family member")
	ErrJoinFamilyFailed   = errors.New("Failed to join family")
	ErrLeaveFamilyFailed  = errors.New("Failed to leave family")
)

// maxInviteCodeAttempts bounds invite code regeneration after a collision
const maxInviteCodeAttempts = 5

// FamilyError is the failure result of a family mutation. Its message is the
// human-readable reason; Cause, when set, is the underlying store error.
type FamilyError struct {
	Reason error
	Cause  error
}

func (e *FamilyError) Error() string {
	return e.Reason.Error()
}

func (e *FamilyError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Reason}
	}
	return []error{e.Reason, e.Cause}
}

func familyErr(reason, cause error) *FamilyError {
	return &FamilyError{Reason: reason, Cause: cause}
}

// FamilyStore is the persistence FamilyState reads and writes through
type FamilyStore interface {
	LatestMembership(ctx context.Context, userID string) (*models.FamilyMember, error)
	GetFamilyByID(ctx context.Context, familyID string) (*models.Family, error)
	GetFamilyByInviteCode(ctx context.Context, code string) (*models.Family, error)
	CreateFamily(ctx context.Context, name, inviteCode, createdBy string) (*models.Family, error)
	AddMember(ctx context.Context, familyID, userID string, role models.Role, relation *string) (*models.FamilyMember, error)
	GetMembership(ctx context.Context, familyID, userID string) (*models.FamilyMember, error)
	ListMembers(ctx context.Context, familyID string) ([]models.FamilyMember, error)
	RemoveMember(ctx context.Context, familyID, userID string) error
}

// Status is the position of a FamilyState in its lifecycle
type Status string

const (
	StatusUninitialized Status = "uninitialized"
	StatusLoading       Status = "loading"
	StatusNoFamily      Status = "no_family"
	StatusHasFamily     Status = "has_family"
)

// FamilySnapshot is a consistent view of a user's current family and roster
type FamilySnapshot struct {
	Status  Status                `json:"status"`
	Family  *models.Family        `json:"family"`
	Members []models.FamilyMember `json:"members"`
}

// FamilyState holds one authenticated user's current family and its roster.
// The snapshot is always replaced as a whole, never patched.
type FamilyState struct {
	store FamilyStore
	log   zerolog.Logger

	mu    sync.RWMutex
	user  *models.UserProfile
	state FamilySnapshot
}

// NewFamilyState creates an uninitialized state holder. Call Login to bind a user.
func NewFamilyState(store FamilyStore, logger zerolog.Logger) *FamilyState {
	return &FamilyState{
		store: store,
		log:   logger.With().Str("component", "family_state").Logger(),
		state: FamilySnapshot{Status: StatusUninitialized, Members: []models.FamilyMember{}},
	}
}

// Login binds user to the state and loads their family
func (s *FamilyState) Login(ctx context.Context, user *models.UserProfile) {
	s.bind(user)
	s.Reload(ctx)
}

func (s *FamilyState) bind(user *models.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
}

// Logout unbinds the user and drops all loaded state
func (s *FamilyState) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.state = FamilySnapshot{Status: StatusUninitialized, Members: []models.FamilyMember{}}
}

// User returns the bound user, or nil
func (s *FamilyState) User() *models.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Snapshot returns a copy of the current state
func (s *FamilyState) Snapshot() FamilySnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := FamilySnapshot{Status: s.state.Status, Members: make([]models.FamilyMember, len(s.state.Members))}
	copy(snap.Members, s.state.Members)
	if s.state.Family != nil {
		f := *s.state.Family
		snap.Family = &f
	}
	return snap
}

// Reload resolves the user's most recent membership and loads that family and its roster.
// Failures are logged and leave the state cleared.
func (s *FamilyState) Reload(ctx context.Context) {
	user := s.User()
	if user == nil {
		s.replace(StatusUninitialized, nil, nil)
		return
	}

	prev := s.Snapshot()
	s.replace(StatusLoading, prev.Family, prev.Members)

	logger := s.log.With().Str("user_id", user.ID).Logger()

	membership, err := s.store.LatestMembership(ctx, user.ID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load family membership")
		s.replace(StatusNoFamily, nil, nil)
		return
	}
	if membership == nil {
		s.replace(StatusNoFamily, nil, nil)
		return
	}

	family, err := s.store.GetFamilyByID(ctx, membership.FamilyID)
	if err != nil {
		logger.Error().Err(err).Str("family_id", membership.FamilyID).Msg("failed to load family details")
		s.replace(StatusNoFamily, nil, nil)
		return
	}
	if family == nil {
		s.replace(StatusNoFamily, nil, nil)
		return
	}

	members, err := s.store.ListMembers(ctx, family.ID)
	if err != nil {
		logger.Error().Err(err).Str("family_id", family.ID).Msg("failed to load family members")
		s.replace(StatusNoFamily, nil, nil)
		return
	}

	s.replace(StatusHasFamily, family, members)
}

// CreateFamily creates a family owned by the user and makes them its admin.
// If the membership insert fails the new family is left without members.
func (s *FamilyState) CreateFamily(ctx context.Context, name string) error {
	user := s.User()
	if user == nil {
		return familyErr(ErrNotAuthenticated, nil)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return familyErr(ErrFamilyNameRequired, nil)
	}
	if err := validation.ValidateFamilyName(name); err != nil {
		return familyErr(ErrFamilyNameInvalid, err)
	}

	family, err := s.insertFamily(ctx, name, user.ID)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("family creation failed")
		return familyErr(ErrCreateFamilyFailed, err)
	}

	self := "Self"
	if _, err := s.store.AddMember(ctx, family.ID, user.ID, models.RoleAdmin, &self); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Str("family_id", family.ID).Msg("admin membership creation failed")
		return familyErr(ErrAddMemberFailed, err)
	}

	s.Reload(ctx)
	return nil
}

func (s *FamilyState) insertFamily(ctx context.Context, name, userID string) (*models.Family, error) {
	var lastErr error
	for attempt := 0; attempt < maxInviteCodeAttempts; attempt++ {
		code, err := security.GenerateInviteCode()
		if err != nil {
			return nil, err
		}
		family, err := s.store.CreateFamily(ctx, name, code, userID)
		if err == nil {
			return family, nil
		}
		if !errors.Is(err, repository.ErrDuplicateInviteCode) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// JoinFamily adds the user to the family identified by inviteCode as a member.
// An empty relation is stored as none.
func (s *FamilyState) JoinFamily(ctx context.Context, inviteCode, relation string) error {
	user := s.User()
	if user == nil {
		return familyErr(ErrNotAuthenticated, nil)
	}
	inviteCode = strings.TrimSpace(inviteCode)
	if inviteCode == "" {
		return familyErr(ErrInviteCodeRequired, nil)
	}

	family, err := s.store.GetFamilyByInviteCode(ctx, inviteCode)
	if err != nil {
		s.log.Error().Err(err).Msg("invite code lookup failed")
		return familyErr(ErrInvalidInviteCode, err)
	}
	if family == nil {
		return familyErr(ErrInvalidInviteCode, nil)
	}

	existing, err := s.store.GetMembership(ctx, family.ID, user.ID)
	if err != nil {
		s.log.Error().Err(err).Str("family_id", family.ID).Msg("membership check failed")
		return familyErr(ErrJoinFamilyFailed, err)
	}
	if existing != nil {
		return familyErr(ErrAlreadyMember, nil)
	}

	var rel *string
	if relation = strings.TrimSpace(relation); relation != "" {
		rel = &relation
	}
	if _, err := s.store.AddMember(ctx, family.ID, user.ID, models.RoleMember, rel); err != nil {
		if errors.Is(err, repository.ErrDuplicateMember) {
			return familyErr(ErrAlreadyMember, err)
		}
		s.log.Error().Err(err).Str("family_id", family.ID).Msg("join family failed")
		return familyErr(ErrJoinFamilyFailed, err)
	}

	s.Reload(ctx)
	return nil
}

// LeaveFamily removes the user's membership of the current family and clears the state
func (s *FamilyState) LeaveFamily(ctx context.Context) error {
	s.mu.RLock()
	user, family := s.user, s.state.Family
	s.mu.RUnlock()
	if user == nil || family == nil {
		return familyErr(ErrNoFamilyToLeave, nil)
	}

	if err := s.store.RemoveMember(ctx, family.ID, user.ID); err != nil {
		s.log.Error().Err(err).Str("family_id", family.ID).Msg("leave family failed")
		return familyErr(ErrLeaveFamilyFailed, err)
	}

	s.replace(StatusNoFamily, nil, nil)
	return nil
}

func (s *FamilyState) replace(status Status, family *models.Family, members []models.FamilyMember) {
	if members == nil {
		members = []models.FamilyMember{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = FamilySnapshot{Status: status, Family: family, Members: members}
}
