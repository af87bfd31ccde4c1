package wizard

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"launchpad/student-portal/onboarding-backend/internal/steps"
)

// StepParam is the query parameter the wizard page uses for deep links.
const StepParam = "step"

// DefaultAdvanceDelay is how long the completion feedback stays on screen
// before the wizard auto-advances.
const DefaultAdvanceDelay = 1500 * time.Millisecond

// advanceTimeout bounds the store writes performed by the auto-advance timer.
const advanceTimeout = 5 * time.Second

// EventPublisher pushes wizard progress to the user's open UI connections.
type EventPublisher interface {
	StepChanged(userID uuid.UUID, step int)
	StepCompleted(userID uuid.UUID, stepID steps.ID)
	FlowReset(userID uuid.UUID)
}

// Navigator orchestrates transitions between the wizard state store and the
// wizard page URL. It is the only writer of onboarding progress.
//
// Phases: Closed (landing screen, step 0) -> Active (steps 1..TotalSteps) ->
// Terminal (TotalSteps+1, the completion screen, reachable only through
// GoToStep).
type Navigator struct {
	store        *Store
	logger       *zap.Logger
	events       EventPublisher
	advanceDelay time.Duration

	mu           sync.Mutex
	urls         map[uuid.UUID]url.Values
	callbackSeen map[uuid.UUID]bool
}

// Option configures a Navigator.
type Option func(*Navigator)

// WithAdvanceDelay overrides the auto-advance delay.
func WithAdvanceDelay(d time.Duration) Option {
	return func(n *Navigator) { n.advanceDelay = d }
}

// WithEvents attaches a progress event publisher.
func WithEvents(p EventPublisher) Option {
	return func(n *Navigator) { n.events = p }
}

// NewNavigator creates a navigator over the given store.
func NewNavigator(store *Store, logger *zap.Logger, opts ...Option) *Navigator {
	nav := &Navigator{
		store:        store,
		logger:       logger,
		advanceDelay: DefaultAdvanceDelay,
		urls:         make(map[uuid.UUID]url.Values),
		callbackSeen: make(map[uuid.UUID]bool),
	}
	for _, opt := range opts {
		opt(nav)
	}
	return nav
}

// State returns the current wizard state snapshot.
func (n *Navigator) State(ctx context.Context, userID uuid.UUID) (State, error) {
	return n.store.Get(ctx, userID)
}

// HandleGetStarted opens the wizard at step 1 from the landing screen.
func (n *Navigator) HandleGetStarted(ctx context.Context, userID uuid.UUID) (State, error) {
	return n.GoToStep(ctx, userID, 1)
}

// NextStep advances one step within the active range.
func (n *Navigator) NextStep(ctx context.Context, userID uuid.UUID) (State, error) {
	state, err := n.store.Get(ctx, userID)
	if err != nil {
		return State{}, err
	}
	if state.CurrentStep >= steps.TotalSteps {
		return state, nil
	}
	return n.GoToStep(ctx, userID, state.CurrentStep+1)
}

// PrevStep moves one step back. From step 1 the wizard closes back to the
// landing screen instead of going out of range.
func (n *Navigator) PrevStep(ctx context.Context, userID uuid.UUID) (State, error) {
	state, err := n.store.Get(ctx, userID)
	if err != nil {
		return State{}, err
	}
	if state.CurrentStep <= 0 {
		return state, nil
	}
	return n.GoToStep(ctx, userID, state.CurrentStep-1)
}

// GoToStep jumps to an arbitrary ordinal in [0, TotalSteps+1] and mirrors the
// target into the URL. Ordinal 0 closes the wizard; TotalSteps+1 is the only
// way to reach the completion screen.
func (n *Navigator) GoToStep(ctx context.Context, userID uuid.UUID, target int) (State, error) {
	if target < 0 || target > steps.TerminalStep {
		return State{}, fmt.Errorf("step %d out of range [0, %d]", target, steps.TerminalStep)
	}

	if _, err := n.store.SetActive(ctx, userID, target > 0); err != nil {
		return State{}, err
	}
	state, err := n.store.SetCurrentStep(ctx, userID, target)
	if err != nil {
		return State{}, err
	}

	n.mirrorStep(userID, target)
	n.publishStepChanged(userID, target)
	return state, nil
}

// MarkStepComplete records a step completion and schedules the auto-advance.
// Idempotent: a step already in the completed set triggers nothing. The
// caller must have confirmed the step's validation rule immediately before
// calling; a step is never marked complete without its rule having passed.
func (n *Navigator) MarkStepComplete(ctx context.Context, userID uuid.UUID, id steps.ID) (State, error) {
	def, ok := steps.ByID(id)
	if !ok {
		return State{}, fmt.Errorf("unknown step %q", id)
	}

	state, newlyCompleted, err := n.store.MarkStepComplete(ctx, userID, id)
	if err != nil {
		return State{}, err
	}
	if !newlyCompleted {
		return state, nil
	}

	if n.events != nil {
		n.events.StepCompleted(userID, id)
	}

	// Let the user see the completion feedback, then advance. The timer body
	// re-reads live store state rather than closing over the state captured
	// here: the user may have navigated elsewhere during the delay, and
	// auto-advance must never regress or overtake manual navigation.
	time.AfterFunc(n.advanceDelay, func() {
		n.autoAdvance(userID, def.Ordinal)
	})

	return state, nil
}

// autoAdvance is the delayed half of MarkStepComplete. The guard condition
// doubles as the cancellation mechanism: advance only when the live current
// step is still the completed step's ordinal and the flow has further steps.
func (n *Navigator) autoAdvance(userID uuid.UUID, completedOrdinal int) {
	ctx, cancel := context.WithTimeout(context.Background(), advanceTimeout)
	defer cancel()

	state, err := n.store.Get(ctx, userID)
	if err != nil {
		n.logger.Error("Failed to re-read wizard state for auto-advance",
			zap.String("user_id", userID.String()), zap.Error(err))
		return
	}

	if !state.Active || state.CurrentStep != completedOrdinal || completedOrdinal >= steps.TotalSteps {
		return
	}

	next := completedOrdinal + 1
	if _, err := n.store.SetCurrentStep(ctx, userID, next); err != nil {
		n.logger.Error("Failed to auto-advance wizard",
			zap.String("user_id", userID.String()), zap.Int("step", next), zap.Error(err))
		return
	}

	n.mirrorStep(userID, next)
	n.publishStepChanged(userID, next)
}

// PrimeFromQuery applies a deep-linked step from the wizard page URL and
// returns the query with only the step parameter stripped. Every other
// parameter carries OAuth-callback signals for the step screens and is
// preserved untouched. An out-of-range or malformed step value changes no
// state.
func (n *Navigator) PrimeFromQuery(ctx context.Context, userID uuid.UUID, query url.Values) (State, url.Values, error) {
	remaining := url.Values{}
	for key, values := range query {
		if key == StepParam {
			continue
		}
		remaining[key] = append([]string(nil), values...)
	}

	target, err := strconv.Atoi(query.Get(StepParam))
	if err != nil || target < 1 || target > steps.TotalSteps {
		state, getErr := n.store.Get(ctx, userID)
		return state, remaining, getErr
	}

	state, err := n.GoToStep(ctx, userID, target)
	return state, remaining, err
}

// ConsumeLinkedInCallback claims the one-shot right to process the LinkedIn
// callback signal for this user. The flag is set before any processing
// begins, so a second invocation in quick succession gets false and must do
// nothing. Only RetryLinkedInCallback resets it.
func (n *Navigator) ConsumeLinkedInCallback(userID uuid.UUID) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.callbackSeen[userID] {
		return false
	}
	n.callbackSeen[userID] = true
	return true
}

// RetryLinkedInCallback re-arms callback processing after an explicit retry.
func (n *Navigator) RetryLinkedInCallback(userID uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.callbackSeen, userID)
}

// CompleteFlow finishes onboarding from the completion screen: the state is
// reset to its initial values and legacy persisted rows are purged.
func (n *Navigator) CompleteFlow(ctx context.Context, userID uuid.UUID) error {
	state, err := n.store.Get(ctx, userID)
	if err != nil {
		return err
	}
	if state.CurrentStep != steps.TerminalStep {
		return fmt.Errorf("flow can only be completed from the completion screen")
	}
	return n.reset(ctx, userID)
}

// Abandon resets the flow when the user explicitly walks away.
func (n *Navigator) Abandon(ctx context.Context, userID uuid.UUID) error {
	return n.reset(ctx, userID)
}

func (n *Navigator) reset(ctx context.Context, userID uuid.UUID) error {
	if err := n.store.Clear(ctx, userID); err != nil {
		return err
	}

	n.mu.Lock()
	delete(n.urls, userID)
	delete(n.callbackSeen, userID)
	n.mu.Unlock()

	if n.events != nil {
		n.events.FlowReset(userID)
	}
	return nil
}

// Location returns the canonical wizard page URL for the user, reflecting
// the last mirrored step.
func (n *Navigator) Location(userID uuid.UUID) string {
	n.mu.Lock()
	defer n.mu.Unlock()

	values, ok := n.urls[userID]
	if !ok || len(values) == 0 {
		return "/onboarding"
	}
	return "/onboarding?" + values.Encode()
}

// StepFromURL reads the mirrored step parameter back. An absent parameter
// means the landing screen, ordinal 0.
func (n *Navigator) StepFromURL(userID uuid.UUID) int {
	n.mu.Lock()
	defer n.mu.Unlock()

	values, ok := n.urls[userID]
	if !ok {
		return 0
	}
	step, err := strconv.Atoi(values.Get(StepParam))
	if err != nil {
		return 0
	}
	return step
}

func (n *Navigator) mirrorStep(userID uuid.UUID, step int) {
	n.mu.Lock()
	defer n.mu.Unlock()

	values, ok := n.urls[userID]
	if !ok {
		values = url.Values{}
		n.urls[userID] = values
	}
	if step == 0 {
		values.Del(StepParam)
		return
	}
	values.Set(StepParam, strconv.Itoa(step))
}

func (n *Navigator) publishStepChanged(userID uuid.UUID, step int) {
	if n.events != nil {
		n.events.StepChanged(userID, step)
	}
}
