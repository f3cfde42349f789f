package event

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/an-shikaSingh/campus-connect-V0/core"
	"github.com/an-shikaSingh/campus-connect-V0/core/user"
)

// Event statuses
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusCancelled = "cancelled"
	StatusArchived  = "archived"
)

var (
	AllStatuses = []string{StatusDraft, StatusPublished, StatusCancelled, StatusArchived}

	Categories = []string{"Workshop", "Seminar", "Conference", "Networking", "Social", "Sports", "Career", "Other"}
)

type Event struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Location        string    `json:"location"`
	Category        string    `json:"category"`
	StartDate       time.Time `json:"start_date"` // UTC
	EndDate         time.Time `json:"end_date"`   // UTC
	ImageURL        string    `json:"image_url"`
	OrganizerID     string    `json:"organizer_id"`
	Capacity        int       `json:"capacity"` // 0: unlimited
	WaitlistEnabled bool      `json:"waitlist_enabled"`
	Status          string    `json:"status"`
	PublishedAt     time.Time `json:"published_at"`
	CancelledAt     time.Time `json:"cancelled_at"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (e Event) IsPublished() bool { return e.Status == StatusPublished }
func (e Event) Unlimited() bool   { return e.Capacity == 0 }

func (e Event) HasStarted(now time.Time) bool { return !now.Before(e.StartDate) }
func (e Event) HasEnded(now time.Time) bool   { return now.After(e.EndDate) }

// Editable reports whether the event details may still change.
func (e Event) Editable() bool {
	return e.Status == StatusDraft || e.Status == StatusPublished
}

// CanBeManagedBy reports whether usr may edit or transition e.
func (e Event) CanBeManagedBy(usr user.User) bool {
	return usr.IsAdmin() || (usr.IsOrganizer() && e.OrganizerID == usr.ID)
}

// VisibleTo reports whether usr may see e at all. Unpublished events are only shown to their managers.
func (e Event) VisibleTo(usr *user.User) bool {
	if e.Status == StatusPublished || e.Status == StatusArchived {
		return true
	}
	return usr != nil && e.CanBeManagedBy(*usr)
}

// Detail is an Event along with its organizer and seat counts.
type Detail struct {
	Event
	Organizer  user.PublicProfile `json:"organizer"`
	Attendees  int                `json:"attendees"`
	Waitlisted int                `json:"waitlisted"`
	SeatsLeft  *int               `json:"seats_left"` // nil: unlimited
}

func NewDetail(evt Event, organizer user.PublicProfile, confirmed, waitlisted int) Detail {
	d := Detail{Event: evt, Organizer: organizer, Attendees: confirmed, Waitlisted: waitlisted}
	if !evt.Unlimited() {
		left := evt.Capacity - confirmed
		if left < 0 {
			left = 0
		}
		d.SeatsLeft = &left
	}
	return d
}

// NewEvent contains information needed to create a new Event.
type NewEvent struct {
	Title           string    `json:"title" validate:"required,max=200"`
	Description     string    `json:"description" validate:"required,max=10000"`
	Location        string    `json:"location" validate:"required,max=255"`
	Category        string    `json:"category" validate:"required,category"`
	StartDate       time.Time `json:"start_date" validate:"required"`
	EndDate         time.Time `json:"end_date" validate:"required"`
	ImageURL        string    `json:"image_url" validate:"omitempty,httpurl"`
	Capacity        int       `json:"capacity" validate:"min=0"`
	WaitlistEnabled bool      `json:"waitlist_enabled"`
	Publish         bool      `json:"publish"`
}

func (ne *NewEvent) Validate(validate *validator.Validate) error {
	ne.Title = core.CleanString(ne.Title)
	ne.Description = core.CleanString(ne.Description)
	ne.Location = core.CleanString(ne.Location)
	ne.Category = cleanCategory(ne.Category)
	ne.ImageURL = core.CleanString(ne.ImageURL)
	ne.StartDate = ne.StartDate.UTC()
	ne.EndDate = ne.EndDate.UTC()
	return validate.Struct(ne)
}

// UpdateEvent defines what may change on an existing Event. Zero values keep the current ones.
type UpdateEvent struct {
	Title           string    `json:"title" validate:"required,max=200"`
	Description     string    `json:"description" validate:"required,max=10000"`
	Location        string    `json:"location" validate:"required,max=255"`
	Category        string    `json:"category" validate:"required,category"`
	StartDate       time.Time `json:"start_date" validate:"required"`
	EndDate         time.Time `json:"end_date" validate:"required"`
	ImageURL        *string   `json:"image_url" validate:"omitempty,httpurl"`
	Capacity        *int      `json:"capacity" validate:"omitempty,min=0"`
	WaitlistEnabled *bool     `json:"waitlist_enabled"`

	origStartDate time.Time
}

func (ue *UpdateEvent) Validate(origEvt Event, validate *validator.Validate) error {
	if ue.Title = core.CleanString(ue.Title); ue.Title == "" {
		ue.Title = origEvt.Title
	}
	if ue.Description = core.CleanString(ue.Description); ue.Description == "" {
		ue.Description = origEvt.Description
	}
	if ue.Location = core.CleanString(ue.Location); ue.Location == "" {
		ue.Location = origEvt.Location
	}
	if ue.Category = cleanCategory(ue.Category); ue.Category == "" {
		ue.Category = origEvt.Category
	}
	if ue.StartDate.IsZero() {
		ue.StartDate = origEvt.StartDate
	}
	if ue.EndDate.IsZero() {
		ue.EndDate = origEvt.EndDate
	}
	ue.StartDate = ue.StartDate.UTC()
	ue.EndDate = ue.EndDate.UTC()
	ue.origStartDate = origEvt.StartDate
	if ue.ImageURL != nil {
		url := core.CleanString(*ue.ImageURL)
		ue.ImageURL = &url // "" clears the image
	}
	return validate.Struct(ue)
}

// changes reports whether applying ue would modify evt.
func (ue UpdateEvent) changes(evt Event) bool {
	return ue.Title != evt.Title ||
		ue.Description != evt.Description ||
		ue.Location != evt.Location ||
		ue.Category != evt.Category ||
		!ue.StartDate.Equal(evt.StartDate) ||
		!ue.EndDate.Equal(evt.EndDate) ||
		(ue.ImageURL != nil && *ue.ImageURL != evt.ImageURL) ||
		(ue.Capacity != nil && *ue.Capacity != evt.Capacity) ||
		(ue.WaitlistEnabled != nil && *ue.WaitlistEnabled != evt.WaitlistEnabled)
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Category    string    `query:"category"`
	Statuses    []string  `query:"status"`
	OrganizerID string    `query:"organizer_id"`
	StartFrom   time.Time `query:"-"` // bound by the API from start_from
	StartTo     time.Time `query:"-"` // start_to
	Upcoming    bool      `query:"upcoming"`
	Limit       int       `query:"limit"`

	// Now is the reference time for Upcoming. Set by the service.
	Now time.Time `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Category = cleanCategory(qf.Category)
	qf.OrganizerID = core.CleanString(qf.OrganizerID)
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
	if qf.Limit < 0 {
		qf.Limit = 0
	}
}

// RegistrationReader is the part of the registration storage events rely on.
type RegistrationReader interface {
	// CountEventRegistrations returns the number of confirmed and waitlisted registrations to eventID.
	CountEventRegistrations(ctx context.Context, eventID string, exec ...core.DBExecutor) (confirmed, waitlisted int, err error)
	// EventRegistrantIDs returns the IDs of users holding a confirmed or waitlisted registration to eventID.
	EventRegistrantIDs(ctx context.Context, eventID string, exec ...core.DBExecutor) ([]string, error)
}
