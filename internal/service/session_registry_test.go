package service

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"familyhub/internal/models"
	"familyhub/internal/repository"
	"familyhub/internal/testfixtures"
)

func TestSessionRegistryLifecycle(t *testing.T) {
	ctx := context.Background()
	db := testfixtures.NewSQLiteDB(t)
	userID := testfixtures.SeedUser(t, db, "ann")
	testfixtures.SeedFamily(t, db, "The Smiths", "SMITH001", userID)
	user := &models.UserProfile{ID: userID, Username: "ann"}

	registry := NewSessionRegistry(repository.NewFamilyRepository(db), zerolog.Nop())

	if _, ok := registry.Get(userID); ok {
		t.Fatal("Get() before Open should miss")
	}

	state := registry.Open(ctx, user)
	if snap := state.Snapshot(); snap.Status != StatusHasFamily || snap.Family.Name != "The Smiths" {
		t.Fatalf("opened state = %+v", snap)
	}
	if again := registry.Open(ctx, user); again != state {
		t.Error("Open() should return the existing state")
	}
	if got, ok := registry.Get(userID); !ok || got != state {
		t.Error("Get() after Open should return the state")
	}

	registry.Close(userID)
	if registry.Len() != 0 {
		t.Errorf("Len() after Close = %d", registry.Len())
	}
	if state.User() != nil || state.Snapshot().Status != StatusUninitialized {
		t.Error("Close() should log the state out")
	}
	registry.Close(userID)
}

func TestSessionRegistryOpenBindsUserBeforePublishing(t *testing.T) {
	ctx := context.Background()
	user := &models.UserProfile{ID: "u1", Username: "ann"}
	store := &stubStore{failures: map[string]error{}}
	registry := NewSessionRegistry(store, zerolog.Nop())

	// another request arriving mid-load must already see the bound user
	var midLoad *models.UserProfile
	store.onLatest = func() {
		if state, ok := registry.Get(user.ID); ok {
			midLoad = state.User()
		}
	}

	const callers = 8
	states := make([]*FamilyState, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			states[i] = registry.Open(ctx, user)
			if states[i].User() == nil {
				t.Error("Open() returned a state with no bound user")
			}
		}(i)
	}
	wg.Wait()

	for _, s := range states[1:] {
		if s != states[0] {
			t.Fatal("concurrent Open() calls returned different states")
		}
	}
	if midLoad == nil || midLoad.ID != user.ID {
		t.Errorf("user seen during load = %+v, want %s", midLoad, user.ID)
	}
}
