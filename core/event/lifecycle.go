package event

import (
	"time"
)

// Transition targets exposed by the API.
const (
	ActionPublish = "publish"
	ActionCancel  = "cancel"
	ActionArchive = "archive"
)

var (
	transitions = map[string][]string{
		StatusDraft:     {StatusPublished, StatusCancelled},
		StatusPublished: {StatusCancelled, StatusArchived},
		StatusCancelled: {StatusArchived},
	}

	actionTargets = map[string]string{
		ActionPublish: StatusPublished,
		ActionCancel:  StatusCancelled,
		ActionArchive: StatusArchived,
	}
)

// CanTransition reports whether an event may go from status `from` to status `to`.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ActionTarget maps an API action (publish, cancel, archive) to its target status.
func ActionTarget(action string) (string, bool) {
	target, ok := actionTargets[action]
	return target, ok
}

// transitionTo moves e to target, stamping the matching timestamps.
func (e *Event) transitionTo(target string, now time.Time) error {
	if !CanTransition(e.Status, target) {
		return ErrInvalidTransition
	}
	if target == StatusPublished && e.HasStarted(now) {
		return ErrAlreadyStarted
	}

	e.Status = target
	switch target {
	case StatusPublished:
		e.PublishedAt = now
	case StatusCancelled:
		e.CancelledAt = now
	}
	e.UpdatedAt = now
	return nil
}
