package autosave

// SaveStatus is the engine's user-visible state. Exactly one value holds per
// engine at any time.
type SaveStatus string

const (
	// StatusIdle means no save is pending or running.
	StatusIdle SaveStatus = "idle"
	// StatusSaving means a save is in flight on its first attempt.
	StatusSaving SaveStatus = "saving"
	// StatusSaved means the last save succeeded; reverts to idle after the
	// cool-down.
	StatusSaved SaveStatus = "saved"
	// StatusError means the last save failed after exhausting retries;
	// reverts to idle after the cool-down.
	StatusError SaveStatus = "error"
	// StatusRetrying means the save failed at least once and another
	// attempt is scheduled.
	StatusRetrying SaveStatus = "retrying"
)

// legalTransitions lists every allowed status change. The saving|retrying →
// idle edges exist only for the auth-required suppression path, where an
// unauthenticated save collapses silently instead of surfacing an error.
var legalTransitions = map[SaveStatus][]SaveStatus{
	StatusIdle:     {StatusSaving},
	StatusSaving:   {StatusRetrying, StatusSaved, StatusError, StatusIdle},
	StatusRetrying: {StatusSaving, StatusSaved, StatusError, StatusIdle},
	StatusSaved:    {StatusIdle, StatusSaving},
	StatusError:    {StatusIdle, StatusSaving},
}

// ValidTransition reports whether moving from one status to another is
// legal. Staying on the same status is always allowed.
func ValidTransition(from, to SaveStatus) bool {
	if from == to {
		return true
	}
	for _, allowed := range legalTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
