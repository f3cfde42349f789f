package event

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/an-shikaSingh/campus-connect-V0/core"
	"github.com/an-shikaSingh/campus-connect-V0/core/notification"
	"github.com/an-shikaSingh/campus-connect-V0/core/user"
)

var (
	// errors
	ErrNotFound          = errors.New("event not found")
	ErrForbidden         = errors.New("not allowed to manage this event")
	ErrInvalidTransition = errors.New("invalid event status transition")
	ErrNotEditable       = errors.New("cancelled and archived events cannot be edited")
	ErrNotDraft          = errors.New("only draft events can be deleted")
	ErrAlreadyStarted    = errors.New("event has already started")
)

type (
	Repository interface {
		CreateEvent(ctx context.Context, evt Event, exec ...core.DBExecutor) (Event, error)
		GetEvent(ctx context.Context, id string, exec ...core.DBExecutor) (Event, error)
		// LockEvent gets the event and locks its row until the end of the transaction exec belongs to.
		LockEvent(ctx context.Context, id string, exec ...core.DBExecutor) (Event, error)
		// QueryEvents applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Event.Title or Event.Description.
		QueryEvents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Event, error)
		CountEvents(ctx context.Context, filter *QueryFilter, exec ...core.DBExecutor) (int, error)
		UpdateEvent(ctx context.Context, evt Event, exec ...core.DBExecutor) (Event, error)
		DeleteEvent(ctx context.Context, id string, exec ...core.DBExecutor) error
		// QueryCategories returns the distinct categories of the events having one of statuses.
		QueryCategories(ctx context.Context, statuses []string, exec ...core.DBExecutor) ([]string, error)
		// ArchiveEvents archives the published & cancelled events that ended before endedBefore.
		ArchiveEvents(ctx context.Context, endedBefore time.Time, exec ...core.DBExecutor) (int, error)
	}

	// WaitlistPromoter confirms the waitlisted registrations to an event while it has free seats.
	// It returns the notifications owed to the promoted users.
	WaitlistPromoter interface {
		PromoteWaitlisted(ctx context.Context, evt Event, exec core.DBExecutor) ([]notification.NewNotification, error)
	}

	Service interface {
		Create(ctx context.Context, ne NewEvent, organizer user.User) (Event, error)
		Update(ctx context.Context, id string, ue UpdateEvent, actor user.User) (Event, error)
		// Transition moves the event to the target status. Cancelling notifies its registrants.
		Transition(ctx context.Context, id, target string, actor user.User) (Event, error)
		Delete(ctx context.Context, id string, actor user.User) error
		GetByID(ctx context.Context, id string) (Event, error)
		GetDetail(ctx context.Context, evt Event) (Detail, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Event, error)
		Count(ctx context.Context, filter *QueryFilter) (int, error)
		Categories(ctx context.Context) ([]string, error)
		Featured(ctx context.Context, limit int) ([]Event, error)
		ArchiveFinished(ctx context.Context, now time.Time) (int, error)
	}

	service struct {
		repo          Repository
		regs          RegistrationReader
		promoter      WaitlistPromoter
		users         user.Service
		notifier      notification.Notifier
		tx            core.Transactor
		featuredLimit int
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(
	repo Repository,
	regs RegistrationReader,
	promoter WaitlistPromoter,
	users user.Service,
	notifier notification.Notifier,
	tx core.Transactor,
	conf *core.Config,
) Service {
	limit := conf.Event.FeaturedLimit
	if limit <= 0 {
		limit = 3
	}
	return &service{
		repo:          repo,
		regs:          regs,
		promoter:      promoter,
		users:         users,
		notifier:      notifier,
		tx:            tx,
		featuredLimit: limit,
	}
}

func (svc *service) Create(ctx context.Context, ne NewEvent, organizer user.User) (Event, error) {
	if !organizer.CanManageEvents() {
		return Event{}, ErrForbidden
	}

	now := core.NowFunc()
	evt := Event{
		Title:           ne.Title,
		Description:     ne.Description,
		Location:        ne.Location,
		Category:        ne.Category,
		StartDate:       ne.StartDate,
		EndDate:         ne.EndDate,
		ImageURL:        ne.ImageURL,
		OrganizerID:     organizer.ID,
		Capacity:        ne.Capacity,
		WaitlistEnabled: ne.WaitlistEnabled,
		Status:          StatusDraft,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if ne.Publish {
		if err := evt.transitionTo(StatusPublished, now); err != nil {
			return Event{}, err
		}
	}
	return svc.repo.CreateEvent(ctx, evt)
}

func (svc *service) Update(ctx context.Context, id string, ue UpdateEvent, actor user.User) (Event, error) {
	var (
		evt    Event
		notify bool
	)
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if evt, err = svc.repo.LockEvent(ctx, id, exec); err != nil {
			return err
		}
		if !evt.CanBeManagedBy(actor) {
			return ErrForbidden
		}
		if !evt.Editable() {
			return ErrNotEditable
		}
		if !ue.changes(evt) {
			return nil
		}

		if ue.Capacity != nil && *ue.Capacity > 0 {
			confirmed, _, err := svc.regs.CountEventRegistrations(ctx, evt.ID, exec)
			if err != nil {
				return errors.Wrap(err, "counting registrations")
			}
			if *ue.Capacity < confirmed {
				return core.NewValidationError(nil, core.FieldError{
					Field: "capacity",
					Error: fmt.Sprintf("cannot be lower than the number of confirmed registrations (%d)", confirmed),
				})
			}
		}

		evt.Title = ue.Title
		evt.Description = ue.Description
		evt.Location = ue.Location
		evt.Category = ue.Category
		evt.StartDate = ue.StartDate
		evt.EndDate = ue.EndDate
		if ue.ImageURL != nil {
			evt.ImageURL = *ue.ImageURL
		}
		seatsAdded := false
		if ue.Capacity != nil {
			seatsAdded = !evt.Unlimited() && (*ue.Capacity == 0 || *ue.Capacity > evt.Capacity)
			evt.Capacity = *ue.Capacity
		}
		if ue.WaitlistEnabled != nil {
			evt.WaitlistEnabled = *ue.WaitlistEnabled
		}
		evt.UpdatedAt = core.NowFunc()

		if evt, err = svc.repo.UpdateEvent(ctx, evt, exec); err != nil {
			return errors.Wrap(err, "updating event")
		}

		if !evt.IsPublished() {
			return nil
		}
		notify = true
		if err = svc.notifyRegistrants(ctx, evt, notification.TypeEventUpdated, "Event updated",
			fmt.Sprintf("The details of %q have changed.", evt.Title), exec); err != nil {
			return err
		}
		if !seatsAdded {
			return nil
		}
		// the waitlist goes first on the new seats
		promoted, err := svc.promoter.PromoteWaitlisted(ctx, evt, exec)
		if err != nil {
			return err
		}
		return errors.Wrap(svc.notifier.Notify(ctx, promoted, exec), "notifying promoted users")
	})
	if err != nil {
		return Event{}, err
	}
	if notify {
		svc.notifier.Wake()
	}
	return evt, nil
}

func (svc *service) Transition(ctx context.Context, id, target string, actor user.User) (Event, error) {
	var evt Event
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if evt, err = svc.repo.LockEvent(ctx, id, exec); err != nil {
			return err
		}
		if !evt.CanBeManagedBy(actor) {
			return ErrForbidden
		}
		if err = evt.transitionTo(target, core.NowFunc()); err != nil {
			return err
		}
		if evt, err = svc.repo.UpdateEvent(ctx, evt, exec); err != nil {
			return errors.Wrap(err, "updating event")
		}

		if target == StatusCancelled {
			return svc.notifyRegistrants(ctx, evt, notification.TypeEventCancelled, "Event cancelled",
				fmt.Sprintf("%q has been cancelled.", evt.Title), exec)
		}
		return nil
	})
	if err != nil {
		return Event{}, err
	}
	if target == StatusCancelled {
		svc.notifier.Wake()
	}
	return evt, nil
}

// notifyRegistrants queues a notification to every user registered to evt, within exec's transaction.
func (svc *service) notifyRegistrants(ctx context.Context, evt Event, typ, title, msg string, exec core.DBExecutor) error {
	userIDs, err := svc.regs.EventRegistrantIDs(ctx, evt.ID, exec)
	if err != nil {
		return errors.Wrap(err, "listing registrants")
	}
	notifs := make([]notification.NewNotification, 0, len(userIDs))
	for _, uid := range userIDs {
		notifs = append(notifs, notification.NewNotification{
			UserID:    uid,
			Type:      typ,
			Title:     title,
			Message:   msg,
			RelatedID: evt.ID,
		})
	}
	return errors.Wrap(svc.notifier.Notify(ctx, notifs, exec), "notifying registrants")
}

func (svc *service) Delete(ctx context.Context, id string, actor user.User) error {
	return svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		evt, err := svc.repo.LockEvent(ctx, id, exec)
		if err != nil {
			return err
		}
		if !evt.CanBeManagedBy(actor) {
			return ErrForbidden
		}
		if evt.Status != StatusDraft {
			return ErrNotDraft
		}
		return svc.repo.DeleteEvent(ctx, id, exec)
	})
}

func (svc *service) GetByID(ctx context.Context, id string) (Event, error) {
	return svc.repo.GetEvent(ctx, id)
}

func (svc *service) GetDetail(ctx context.Context, evt Event) (Detail, error) {
	var organizer user.PublicProfile
	if usr, err := svc.users.GetByID(ctx, evt.OrganizerID); err == nil {
		organizer = usr.Public()
	} else if errors.Cause(err) != user.ErrNotFound {
		return Detail{}, errors.Wrap(err, "finding organizer")
	}

	confirmed, waitlisted, err := svc.regs.CountEventRegistrations(ctx, evt.ID)
	if err != nil {
		return Detail{}, errors.Wrap(err, "counting registrations")
	}
	return NewDetail(evt, organizer, confirmed, waitlisted), nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Event, error) {
	if filter != nil && filter.Upcoming && filter.Now.IsZero() {
		filter.Now = core.NowFunc()
	}
	return svc.repo.QueryEvents(ctx, filter, ordering)
}

func (svc *service) Count(ctx context.Context, filter *QueryFilter) (int, error) {
	if filter != nil && filter.Upcoming && filter.Now.IsZero() {
		filter.Now = core.NowFunc()
	}
	return svc.repo.CountEvents(ctx, filter)
}

func (svc *service) Categories(ctx context.Context) ([]string, error) {
	return svc.repo.QueryCategories(ctx, []string{StatusPublished})
}

func (svc *service) Featured(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = svc.featuredLimit
	}
	filter := &QueryFilter{
		Statuses: []string{StatusPublished},
		Upcoming: true,
		Limit:    limit,
		Now:      core.NowFunc(),
	}
	return svc.repo.QueryEvents(ctx, filter, []core.DBOrdering{{Field: "start_date", Ascending: true}})
}

func (svc *service) ArchiveFinished(ctx context.Context, now time.Time) (int, error) {
	n, err := svc.repo.ArchiveEvents(ctx, now)
	return n, errors.Wrap(err, "archiving events")
}
