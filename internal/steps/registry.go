// Package steps holds the fixed onboarding step registry.
package steps

// ID is the stable identifier of an onboarding step
type ID string

// Step identifiers. The welcome step is the pre-wizard landing screen and
// cannot be completed.
const (
	StepWelcome     ID = "welcome"
	StepGitHub      ID = "github"
	StepGit         ID = "git"
	StepCLI         ID = "cli"
	StepDiscord     ID = "discord"
	StepLinkedIn    ID = "linkedin"
	StepPractice    ID = "practice"
	StepPreferences ID = "preferences"
)

// Definition describes one step in the onboarding sequence
type Definition struct {
	ID      ID     `json:"id"`
	Ordinal int    `json:"ordinal"`
	Title   string `json:"title"`
}

// registry is the fixed ordered list of steps. Never mutated after init.
var registry = []Definition{
	{ID: StepWelcome, Ordinal: 0, Title: "Welcome"},
	{ID: StepGitHub, Ordinal: 1, Title: "Connect your GitHub account"},
	{ID: StepGit, Ordinal: 2, Title: "Git experience"},
	{ID: StepCLI, Ordinal: 3, Title: "Command line experience"},
	{ID: StepDiscord, Ordinal: 4, Title: "Join the Discord community"},
	{ID: StepLinkedIn, Ordinal: 5, Title: "Connect your LinkedIn account"},
	{ID: StepPractice, Ordinal: 6, Title: "Coding practice profile"},
	{ID: StepPreferences, Ordinal: 7, Title: "Career preferences"},
}

// TotalSteps is the number of user-gated steps (the welcome step excluded).
const TotalSteps = 7

// TerminalStep is the ordinal one past the last real step. It represents the
// completion screen and is reachable only by explicit navigation.
const TerminalStep = TotalSteps + 1

// All returns the full registry in order, welcome step first.
func All() []Definition {
	out := make([]Definition, len(registry))
	copy(out, registry)
	return out
}

// ByID looks up a step definition by identifier.
func ByID(id ID) (Definition, bool) {
	for _, d := range registry {
		if d.ID == id {
			return d, true
		}
	}
	return Definition{}, false
}

// ByOrdinal looks up a step definition by its position in the sequence.
func ByOrdinal(n int) (Definition, bool) {
	if n < 0 || n >= len(registry) {
		return Definition{}, false
	}
	return registry[n], true
}

// IsCompletable reports whether a step can be marked complete. The welcome
// step is presentation only.
func IsCompletable(id ID) bool {
	d, ok := ByID(id)
	return ok && d.Ordinal > 0
}
