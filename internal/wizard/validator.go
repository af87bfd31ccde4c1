package wizard

import (
	"regexp"

	"launchpad/student-portal/onboarding-backend/internal/connections"
	"launchpad/student-portal/onboarding-backend/internal/steps"
)

// Validation messages surfaced to the step screens.
const (
	msgGitHubNotConnected   = "GitHub account must be connected"
	msgGitNotConfirmed      = "Git experience must be confirmed"
	msgCLINotConfirmed      = "Command line experience must be confirmed"
	msgDiscordNotJoined     = "You must join the Discord community"
	msgLinkedInNotConnected = "LinkedIn account must be connected"
	msgLinkedInHandleEmpty  = "LinkedIn handle is required"
	msgPracticeHandle       = "Practice handle must be 3-20 characters: letters, numbers, underscore or dash"
	msgPrimaryMissing       = "Primary specialization must be chosen"
	msgSecondaryCount       = "Exactly three secondary specializations must be chosen"
	msgHorizonRange         = "Upskilling horizon must be between 1 and 120 months"
	msgSalaryMissing        = "Salary expectation must be chosen"
	msgToolsMissing         = "At least one tool must be selected"
	msgCompanyMissing       = "Target company is required"
	msgRoleMissing          = "Target role is required"
)

var practiceHandleRe = regexp.MustCompile(`^[A-Za-z0-9_-]{3,20}$`)

// Result is the validity verdict for a single step.
type Result struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Validate applies the step's fixed rule set to the form data and connection
// status. Failing conditions accumulate; nothing short-circuits, so the UI
// can render a complete checklist. Pure function, safe on every render.
func Validate(form FormData, conns connections.Status, step steps.ID) Result {
	var errs []string

	switch step {
	case steps.StepWelcome:
		// Not user-gated.
	case steps.StepGitHub:
		if !conns.GitHubConnected {
			errs = append(errs, msgGitHubNotConnected)
		}
	case steps.StepGit:
		if !form.HasGit {
			errs = append(errs, msgGitNotConfirmed)
		}
	case steps.StepCLI:
		if !form.KnowsCLI {
			errs = append(errs, msgCLINotConfirmed)
		}
	case steps.StepDiscord:
		if !form.JoinedDiscord {
			errs = append(errs, msgDiscordNotJoined)
		}
	case steps.StepLinkedIn:
		if !conns.LinkedInConnected {
			errs = append(errs, msgLinkedInNotConnected)
		}
		// The handle requirement only becomes visible once the account is
		// connected; the two reasons are reported separately.
		if conns.LinkedInConnected && form.LinkedInHandle == "" {
			errs = append(errs, msgLinkedInHandleEmpty)
		}
	case steps.StepPractice:
		if !practiceHandleRe.MatchString(form.PracticeHandle) {
			errs = append(errs, msgPracticeHandle)
		}
	case steps.StepPreferences:
		errs = append(errs, validatePreferences(form.Preferences)...)
	}

	return Result{Valid: len(errs) == 0, Errors: errs}
}

func validatePreferences(p CareerPreferences) []string {
	var errs []string

	if p.PrimarySpecialization == "" {
		errs = append(errs, msgPrimaryMissing)
	}
	if len(p.SecondarySpecializations) != 3 {
		errs = append(errs, msgSecondaryCount)
	}
	if p.UpskillingHorizonMonths < 1 || p.UpskillingHorizonMonths > 120 {
		errs = append(errs, msgHorizonRange)
	}
	if p.SalaryBucket == "" {
		errs = append(errs, msgSalaryMissing)
	}
	if len(p.Tools) == 0 {
		errs = append(errs, msgToolsMissing)
	}
	if p.TargetCompany == "" {
		errs = append(errs, msgCompanyMissing)
	}
	if p.TargetRole == "" {
		errs = append(errs, msgRoleMissing)
	}

	return errs
}

// ValidateAll computes the result for every registered step.
func ValidateAll(form FormData, conns connections.Status) map[int]Result {
	results := make(map[int]Result, len(steps.All()))
	for _, def := range steps.All() {
		results[def.Ordinal] = Validate(form, conns, def.ID)
	}
	return results
}
