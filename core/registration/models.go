package registration

import (
	"time"

	"github.com/an-shikaSingh/campus-connect-V0/core"
	"github.com/an-shikaSingh/campus-connect-V0/core/event"
	"github.com/an-shikaSingh/campus-connect-V0/core/user"
)

// Registration statuses
const (
	StatusConfirmed  = "confirmed"
	StatusWaitlisted = "waitlisted"
	StatusCancelled  = "cancelled"
)

var (
	AllStatuses    = []string{StatusConfirmed, StatusWaitlisted, StatusCancelled}
	ActiveStatuses = []string{StatusConfirmed, StatusWaitlisted}
)

type Registration struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	EventID     string    `json:"event_id"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"` // waitlist order
	UpdatedAt   time.Time `json:"updated_at"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// Active reports whether r holds a seat or a waitlist spot.
func (r Registration) Active() bool {
	return r.Status == StatusConfirmed || r.Status == StatusWaitlisted
}

// WithEvent is a Registration along with its Event (a user's registrations).
type WithEvent struct {
	Registration
	Event event.Event `json:"event"`
}

// WithUser is a Registration along with its registrant (an event's registrations).
type WithUser struct {
	Registration
	User user.PublicProfile `json:"user"`
	// Email is only shown to the event managers.
	Email string `json:"email"`
}

// StatusResponse is what a user sees of their own registration to an event.
type StatusResponse struct {
	Registered bool   `json:"registered"`
	Status     string `json:"status,omitempty"`
	// Position is the 1-based waitlist position.
	Position int `json:"position,omitempty"`
}

type QueryFilter struct {
	UserID      string    `query:"user_id"`
	EventID     string    `query:"event_id"`
	Statuses    []string  `query:"status"`
	CreatedFrom time.Time `query:"-"` // bound by the API from created_from
	CreatedTo   time.Time `query:"-"` // created_to
}

func (qf *QueryFilter) Clean() {
	qf.UserID = core.CleanString(qf.UserID)
	qf.EventID = core.CleanString(qf.EventID)
	statuses := qf.Statuses[:0]
	for _, s := range qf.Statuses {
		if s = core.CleanString(s, true /* lower */); core.ContainsString(AllStatuses, s) {
			statuses = append(statuses, s)
		}
	}
	if len(statuses) == 0 {
		statuses = nil
	}
	qf.Statuses = statuses
}

// decideStatus returns the status a new registration to evt gets, given its confirmed seat count.
func decideStatus(evt event.Event, confirmed int) (string, error) {
	if evt.Unlimited() || confirmed < evt.Capacity {
		return StatusConfirmed, nil
	}
	if evt.WaitlistEnabled {
		return StatusWaitlisted, nil
	}
	return "", ErrEventFull
}
