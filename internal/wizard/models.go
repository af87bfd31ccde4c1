// Package wizard drives the onboarding flow: durable per-user state, step
// validation, and the navigation state machine over them.
package wizard

import (
	"time"

	"launchpad/student-portal/onboarding-backend/internal/steps"
)

// State is the durable wizard state for one user.
type State struct {
	Active         bool       `json:"active"`
	CurrentStep    int        `json:"current_step"`
	CompletedSteps []steps.ID `json:"completed_steps"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewState returns the initial state: wizard closed, welcome step, nothing
// completed.
func NewState() State {
	return State{Active: false, CurrentStep: 0, CompletedSteps: nil}
}

// IsCompleted reports whether a step has been marked complete.
func (s State) IsCompleted(id steps.ID) bool {
	for _, c := range s.CompletedSteps {
		if c == id {
			return true
		}
	}
	return false
}

// FormData is the per-step form input supplied by the UI layer. It is not
// persisted by this service; the client sends it with validation and
// completion requests.
type FormData struct {
	HasGit         bool   `json:"has_git"`
	KnowsCLI       bool   `json:"knows_cli"`
	JoinedDiscord  bool   `json:"joined_discord"`
	LinkedInHandle string `json:"linkedin_handle"`
	PracticeHandle string `json:"practice_handle"`

	Preferences CareerPreferences `json:"preferences"`
}

// CareerPreferences is the structured input of the final step.
type CareerPreferences struct {
	PrimarySpecialization    string   `json:"primary_specialization"`
	SecondarySpecializations []string `json:"secondary_specializations"`
	UpskillingHorizonMonths  int      `json:"upskilling_horizon_months"`
	SalaryBucket             string   `json:"salary_bucket"`
	Tools                    []string `json:"tools"`
	TargetCompany            string   `json:"target_company"`
	TargetRole               string   `json:"target_role"`
}
