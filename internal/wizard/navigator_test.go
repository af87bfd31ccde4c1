package wizard

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"launchpad/student-portal/onboarding-backend/internal/steps"
)

// eventSpy records published events for assertions.
type eventSpy struct {
	mu        sync.Mutex
	changed   []int
	completed []steps.ID
	resets    int
}

func (s *eventSpy) StepChanged(_ uuid.UUID, step int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changed = append(s.changed, step)
}

func (s *eventSpy) StepCompleted(_ uuid.UUID, stepID steps.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = append(s.completed, stepID)
}

func (s *eventSpy) FlowReset(_ uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets++
}

func (s *eventSpy) completedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.completed)
}

func newTestNavigator(opts ...Option) *Navigator {
	store := NewStore(newMemRepo(), zap.NewNop())
	return NewNavigator(store, zap.NewNop(), opts...)
}

func TestHandleGetStartedOpensAtStepOne(t *testing.T) {
	nav := newTestNavigator()
	userID := uuid.New()

	state, err := nav.HandleGetStarted(context.Background(), userID)
	assert.NoError(t, err)
	assert.True(t, state.Active)
	assert.Equal(t, 1, state.CurrentStep)
	assert.Equal(t, "/onboarding?step=1", nav.Location(userID))
}

func TestNextStepClampedAtLastStep(t *testing.T) {
	nav := newTestNavigator()
	userID := uuid.New()
	ctx := context.Background()

	_, err := nav.GoToStep(ctx, userID, steps.TotalSteps)
	assert.NoError(t, err)

	state, err := nav.NextStep(ctx, userID)
	assert.NoError(t, err)
	assert.Equal(t, steps.TotalSteps, state.CurrentStep)
}

func TestPrevStepFromOneClosesWizard(t *testing.T) {
	nav := newTestNavigator()
	userID := uuid.New()
	ctx := context.Background()

	_, err := nav.HandleGetStarted(ctx, userID)
	assert.NoError(t, err)

	state, err := nav.PrevStep(ctx, userID)
	assert.NoError(t, err)
	assert.False(t, state.Active)
	assert.Equal(t, 0, state.CurrentStep)

	// Already closed: another prev is a no-op
	state, err = nav.PrevStep(ctx, userID)
	assert.NoError(t, err)
	assert.Equal(t, 0, state.CurrentStep)
}

func TestGoToStepRange(t *testing.T) {
	nav := newTestNavigator()
	ctx := context.Background()

	_, err := nav.GoToStep(ctx, uuid.New(), -1)
	assert.Error(t, err)

	_, err = nav.GoToStep(ctx, uuid.New(), steps.TerminalStep+1)
	assert.Error(t, err)
}

func TestGoToStepURLRoundTrip(t *testing.T) {
	nav := newTestNavigator()
	ctx := context.Background()

	for n := 0; n <= steps.TerminalStep; n++ {
		t.Run(fmt.Sprintf("step_%d", n), func(t *testing.T) {
			userID := uuid.New()
			state, err := nav.GoToStep(ctx, userID, n)
			assert.NoError(t, err)
			assert.Equal(t, n, state.CurrentStep)
			assert.Equal(t, n > 0, state.Active)
			assert.Equal(t, n, nav.StepFromURL(userID))
		})
	}
}

func TestAutoAdvanceAfterDelay(t *testing.T) {
	spy := &eventSpy{}
	nav := newTestNavigator(WithAdvanceDelay(50*time.Millisecond), WithEvents(spy))
	userID := uuid.New()
	ctx := context.Background()

	_, err := nav.GoToStep(ctx, userID, 4)
	assert.NoError(t, err)

	_, err = nav.MarkStepComplete(ctx, userID, steps.StepDiscord)
	assert.NoError(t, err)

	// Not yet: the delay has to elapse first
	state, err := nav.State(ctx, userID)
	assert.NoError(t, err)
	assert.Equal(t, 4, state.CurrentStep)

	assert.Eventually(t, func() bool {
		state, err := nav.State(ctx, userID)
		return err == nil && state.CurrentStep == 5
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 5, nav.StepFromURL(userID))
}

func TestAutoAdvanceSuppressedByManualNavigation(t *testing.T) {
	nav := newTestNavigator(WithAdvanceDelay(30 * time.Millisecond))
	userID := uuid.New()
	ctx := context.Background()

	_, err := nav.GoToStep(ctx, userID, 4)
	assert.NoError(t, err)

	_, err = nav.MarkStepComplete(ctx, userID, steps.StepDiscord)
	assert.NoError(t, err)

	// The user navigates away during the delay; the pending advance must
	// observe the changed step and do nothing.
	_, err = nav.GoToStep(ctx, userID, 2)
	assert.NoError(t, err)

	time.Sleep(100 * time.Millisecond)

	state, err := nav.State(ctx, userID)
	assert.NoError(t, err)
	assert.Equal(t, 2, state.CurrentStep)
}

func TestAutoAdvanceNotPastLastStep(t *testing.T) {
	nav := newTestNavigator(WithAdvanceDelay(20 * time.Millisecond))
	userID := uuid.New()
	ctx := context.Background()

	_, err := nav.GoToStep(ctx, userID, steps.TotalSteps)
	assert.NoError(t, err)

	_, err = nav.MarkStepComplete(ctx, userID, steps.StepPreferences)
	assert.NoError(t, err)

	time.Sleep(100 * time.Millisecond)

	state, err := nav.State(ctx, userID)
	assert.NoError(t, err)
	assert.Equal(t, steps.TotalSteps, state.CurrentStep)
}

func TestRepeatedCompletionAdvancesOnce(t *testing.T) {
	spy := &eventSpy{}
	nav := newTestNavigator(WithAdvanceDelay(20*time.Millisecond), WithEvents(spy))
	userID := uuid.New()
	ctx := context.Background()

	_, err := nav.GoToStep(ctx, userID, 4)
	assert.NoError(t, err)

	_, err = nav.MarkStepComplete(ctx, userID, steps.StepDiscord)
	assert.NoError(t, err)
	_, err = nav.MarkStepComplete(ctx, userID, steps.StepDiscord)
	assert.NoError(t, err)

	assert.Eventually(t, func() bool {
		state, err := nav.State(ctx, userID)
		return err == nil && state.CurrentStep == 5
	}, time.Second, 5*time.Millisecond)

	// Stays at 5: the second completion scheduled nothing
	time.Sleep(100 * time.Millisecond)
	state, err := nav.State(ctx, userID)
	assert.NoError(t, err)
	assert.Equal(t, 5, state.CurrentStep)
	assert.Equal(t, 1, spy.completedCount())
}

func TestPrimeFromQueryDeepLink(t *testing.T) {
	nav := newTestNavigator()
	userID := uuid.New()

	query := url.Values{}
	query.Set("step", "5")
	query.Set("linkedin", "callback")

	state, remaining, err := nav.PrimeFromQuery(context.Background(), userID, query)
	assert.NoError(t, err)
	assert.True(t, state.Active)
	assert.Equal(t, 5, state.CurrentStep)

	// Step stripped, callback signal preserved
	assert.Empty(t, remaining.Get("step"))
	assert.Equal(t, "callback", remaining.Get("linkedin"))
}

func TestPrimeFromQueryInvalidStep(t *testing.T) {
	nav := newTestNavigator()
	ctx := context.Background()

	for _, raw := range []string{"", "0", "8", "abc", "-3"} {
		userID := uuid.New()
		query := url.Values{}
		if raw != "" {
			query.Set("step", raw)
		}
		query.Set("code", "oauth-code")

		state, remaining, err := nav.PrimeFromQuery(ctx, userID, query)
		assert.NoError(t, err)
		assert.False(t, state.Active, "step %q must not open the wizard", raw)
		assert.Equal(t, 0, state.CurrentStep)
		assert.Empty(t, remaining.Get("step"), "step %q must still be stripped", raw)
		assert.Equal(t, "oauth-code", remaining.Get("code"))
	}
}

func TestLinkedInCallbackOneShot(t *testing.T) {
	nav := newTestNavigator()
	userID := uuid.New()

	assert.True(t, nav.ConsumeLinkedInCallback(userID))
	assert.False(t, nav.ConsumeLinkedInCallback(userID))

	// Different user has an independent flag
	assert.True(t, nav.ConsumeLinkedInCallback(uuid.New()))

	nav.RetryLinkedInCallback(userID)
	assert.True(t, nav.ConsumeLinkedInCallback(userID))
}

func TestCompleteFlowOnlyFromCompletionScreen(t *testing.T) {
	spy := &eventSpy{}
	nav := newTestNavigator(WithEvents(spy))
	userID := uuid.New()
	ctx := context.Background()

	_, err := nav.GoToStep(ctx, userID, 4)
	assert.NoError(t, err)
	assert.Error(t, nav.CompleteFlow(ctx, userID))

	_, err = nav.GoToStep(ctx, userID, steps.TerminalStep)
	assert.NoError(t, err)
	assert.NoError(t, nav.CompleteFlow(ctx, userID))

	state, err := nav.State(ctx, userID)
	assert.NoError(t, err)
	assert.False(t, state.Active)
	assert.Equal(t, 0, state.CurrentStep)
	assert.Equal(t, "/onboarding", nav.Location(userID))
	assert.Equal(t, 1, spy.resets)
}

func TestAbandonResetsEverything(t *testing.T) {
	nav := newTestNavigator()
	userID := uuid.New()
	ctx := context.Background()

	_, err := nav.GoToStep(ctx, userID, 3)
	assert.NoError(t, err)
	_, err = nav.MarkStepComplete(ctx, userID, steps.StepGit)
	assert.NoError(t, err)
	assert.True(t, nav.ConsumeLinkedInCallback(userID))

	assert.NoError(t, nav.Abandon(ctx, userID))

	state, err := nav.State(ctx, userID)
	assert.NoError(t, err)
	assert.False(t, state.Active)
	assert.Empty(t, state.CompletedSteps)
	assert.Equal(t, 0, nav.StepFromURL(userID))
	assert.True(t, nav.ConsumeLinkedInCallback(userID))
}
