package wizard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"launchpad/student-portal/onboarding-backend/internal/steps"
)

// Repository persists wizard state per user.
type Repository interface {
	// Get loads the stored state. The second return is false when the user
	// has no stored state yet.
	Get(ctx context.Context, userID uuid.UUID) (State, bool, error)
	// Save writes the full state. Called synchronously on every mutation.
	Save(ctx context.Context, userID uuid.UUID, state State) error
	// Delete removes the stored state.
	Delete(ctx context.Context, userID uuid.UUID) error
	// PurgeLegacy removes rows left behind by the previous onboarding
	// progress schema.
	PurgeLegacy(ctx context.Context, userID uuid.UUID) error
}

// Store is the single source of truth for wizard state. All mutations funnel
// through its named operations so the invariants stay centrally enforced,
// and every mutation is flushed to the repository before returning.
type Store struct {
	mu     sync.Mutex
	repo   Repository
	logger *zap.Logger
}

// NewStore creates a wizard state store.
func NewStore(repo Repository, logger *zap.Logger) *Store {
	return &Store{repo: repo, logger: logger}
}

// Get returns the user's current state, defaulting to the initial state when
// nothing has been stored yet.
func (s *Store) Get(ctx context.Context, userID uuid.UUID) (State, error) {
	state, ok, err := s.repo.Get(ctx, userID)
	if err != nil {
		return State{}, fmt.Errorf("failed to load wizard state: %w", err)
	}
	if !ok {
		return NewState(), nil
	}
	return state, nil
}

// SetActive toggles whether the wizard is presented instead of the landing
// screen. Navigator use only.
func (s *Store) SetActive(ctx context.Context, userID uuid.UUID, active bool) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.Get(ctx, userID)
	if err != nil {
		return State{}, err
	}
	state.Active = active
	return s.flush(ctx, userID, state)
}

// SetCurrentStep moves the wizard to the given ordinal. Navigator use only.
func (s *Store) SetCurrentStep(ctx context.Context, userID uuid.UUID, n int) (State, error) {
	if n < 0 || n > steps.TerminalStep {
		return State{}, fmt.Errorf("step ordinal %d out of range [0, %d]", n, steps.TerminalStep)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.Get(ctx, userID)
	if err != nil {
		return State{}, err
	}
	state.CurrentStep = n
	return s.flush(ctx, userID, state)
}

// MarkStepComplete adds the step to the completed set. Idempotent: the
// second return reports whether this call was the one that completed it, so
// repeated calls never re-trigger downstream auto-advance.
func (s *Store) MarkStepComplete(ctx context.Context, userID uuid.UUID, id steps.ID) (State, bool, error) {
	if !steps.IsCompletable(id) {
		return State{}, false, fmt.Errorf("step %q cannot be completed", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.Get(ctx, userID)
	if err != nil {
		return State{}, false, err
	}
	if state.IsCompleted(id) {
		return state, false, nil
	}

	state.CompletedSteps = append(state.CompletedSteps, id)
	state, err = s.flush(ctx, userID, state)
	if err != nil {
		return State{}, false, err
	}
	return state, true, nil
}

// Clear resets the user to the initial state and purges legacy progress
// rows. This is the only operation that shrinks the completed set.
func (s *Store) Clear(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to clear wizard state: %w", err)
	}
	if err := s.repo.PurgeLegacy(ctx, userID); err != nil {
		// Legacy rows are best-effort cleanup; the reset itself succeeded.
		s.logger.Warn("Failed to purge legacy onboarding rows",
			zap.String("user_id", userID.String()), zap.Error(err))
	}
	return nil
}

func (s *Store) flush(ctx context.Context, userID uuid.UUID, state State) (State, error) {
	state.UpdatedAt = time.Now().UTC()
	if err := s.repo.Save(ctx, userID, state); err != nil {
		return State{}, fmt.Errorf("failed to persist wizard state: %w", err)
	}
	return state, nil
}
