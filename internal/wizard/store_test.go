package wizard

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"launchpad/student-portal/onboarding-backend/internal/steps"
)

// memRepo is an in-memory Repository for tests.
type memRepo struct {
	mu     sync.Mutex
	states map[uuid.UUID]State
	legacy map[uuid.UUID]bool
	saves  int

	getErr    error
	saveErr   error
	legacyErr error
}

func newMemRepo() *memRepo {
	return &memRepo{
		states: make(map[uuid.UUID]State),
		legacy: make(map[uuid.UUID]bool),
	}
}

func (r *memRepo) Get(_ context.Context, userID uuid.UUID) (State, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return State{}, false, r.getErr
	}
	state, ok := r.states[userID]
	return state, ok, nil
}

func (r *memRepo) Save(_ context.Context, userID uuid.UUID, state State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.states[userID] = state
	r.saves++
	return nil
}

func (r *memRepo) Delete(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, userID)
	return nil
}

func (r *memRepo) PurgeLegacy(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.legacyErr != nil {
		return r.legacyErr
	}
	delete(r.legacy, userID)
	return nil
}

func (r *memRepo) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

func TestStoreGetDefaultsWhenMissing(t *testing.T) {
	store := NewStore(newMemRepo(), zap.NewNop())

	state, err := store.Get(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.False(t, state.Active)
	assert.Equal(t, 0, state.CurrentStep)
	assert.Empty(t, state.CompletedSteps)
}

func TestStoreGetPropagatesRepoError(t *testing.T) {
	repo := newMemRepo()
	repo.getErr = errors.New("db down")
	store := NewStore(repo, zap.NewNop())

	_, err := store.Get(context.Background(), uuid.New())
	assert.Error(t, err)
}

func TestStoreMutationsFlushSynchronously(t *testing.T) {
	repo := newMemRepo()
	store := NewStore(repo, zap.NewNop())
	userID := uuid.New()
	ctx := context.Background()

	_, err := store.SetActive(ctx, userID, true)
	assert.NoError(t, err)
	assert.Equal(t, 1, repo.saveCount())

	state, err := store.SetCurrentStep(ctx, userID, 3)
	assert.NoError(t, err)
	assert.Equal(t, 2, repo.saveCount())
	assert.Equal(t, 3, state.CurrentStep)
	assert.True(t, state.Active)
	assert.False(t, state.UpdatedAt.IsZero())

	// Stored state round-trips through the repo
	stored, ok, err := repo.Get(ctx, userID)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, stored.CurrentStep)
}

func TestStoreSetCurrentStepRange(t *testing.T) {
	store := NewStore(newMemRepo(), zap.NewNop())
	ctx := context.Background()
	userID := uuid.New()

	_, err := store.SetCurrentStep(ctx, userID, -1)
	assert.Error(t, err)

	_, err = store.SetCurrentStep(ctx, userID, steps.TerminalStep+1)
	assert.Error(t, err)

	state, err := store.SetCurrentStep(ctx, userID, steps.TerminalStep)
	assert.NoError(t, err)
	assert.Equal(t, steps.TerminalStep, state.CurrentStep)
}

func TestStoreMarkStepCompleteIdempotent(t *testing.T) {
	repo := newMemRepo()
	store := NewStore(repo, zap.NewNop())
	ctx := context.Background()
	userID := uuid.New()

	state, newly, err := store.MarkStepComplete(ctx, userID, steps.StepDiscord)
	assert.NoError(t, err)
	assert.True(t, newly)
	assert.True(t, state.IsCompleted(steps.StepDiscord))

	// Second call: no change, no additional save
	saves := repo.saveCount()
	state, newly, err = store.MarkStepComplete(ctx, userID, steps.StepDiscord)
	assert.NoError(t, err)
	assert.False(t, newly)
	assert.Len(t, state.CompletedSteps, 1)
	assert.Equal(t, saves, repo.saveCount())
}

func TestStoreMarkStepCompleteRejectsWelcome(t *testing.T) {
	store := NewStore(newMemRepo(), zap.NewNop())

	_, _, err := store.MarkStepComplete(context.Background(), uuid.New(), steps.StepWelcome)
	assert.Error(t, err)

	_, _, err = store.MarkStepComplete(context.Background(), uuid.New(), "bogus")
	assert.Error(t, err)
}

func TestStoreMarkStepCompleteSaveFailure(t *testing.T) {
	repo := newMemRepo()
	repo.saveErr = errors.New("write failed")
	store := NewStore(repo, zap.NewNop())

	_, newly, err := store.MarkStepComplete(context.Background(), uuid.New(), steps.StepGit)
	assert.Error(t, err)
	assert.False(t, newly)
}

func TestStoreClearResetsState(t *testing.T) {
	repo := newMemRepo()
	store := NewStore(repo, zap.NewNop())
	ctx := context.Background()
	userID := uuid.New()
	repo.legacy[userID] = true

	_, _, err := store.MarkStepComplete(ctx, userID, steps.StepGitHub)
	assert.NoError(t, err)

	assert.NoError(t, store.Clear(ctx, userID))

	state, err := store.Get(ctx, userID)
	assert.NoError(t, err)
	assert.False(t, state.Active)
	assert.Equal(t, 0, state.CurrentStep)
	assert.Empty(t, state.CompletedSteps)
	assert.False(t, repo.legacy[userID])
}

func TestStoreClearSurvivesLegacyPurgeFailure(t *testing.T) {
	repo := newMemRepo()
	repo.legacyErr = errors.New("legacy table gone")
	store := NewStore(repo, zap.NewNop())

	assert.NoError(t, store.Clear(context.Background(), uuid.New()))
}
