package registration

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/an-shikaSingh/campus-connect-V0/core"
	"github.com/an-shikaSingh/campus-connect-V0/core/event"
	"github.com/an-shikaSingh/campus-connect-V0/core/notification"
	"github.com/an-shikaSingh/campus-connect-V0/core/user"
)

var (
	// errors
	ErrNotFound          = errors.New("registration not found")
	ErrAlreadyRegistered = errors.New("already registered for this event")
	ErrNotRegistered     = errors.New("not registered for this event")
	ErrEventFull         = errors.New("event is full")
	ErrEventNotOpen      = errors.New("event is not open for registration")
	ErrEventStarted      = errors.New("event has already started")
)

type (
	Repository interface {
		event.RegistrationReader

		GetRegistration(ctx context.Context, userID, eventID string, exec ...core.DBExecutor) (Registration, error)
		// CreateRegistration returns ErrAlreadyRegistered when (user, event) already has a row.
		CreateRegistration(ctx context.Context, reg Registration, exec ...core.DBExecutor) (Registration, error)
		UpdateRegistration(ctx context.Context, reg Registration, exec ...core.DBExecutor) (Registration, error)
		// NextWaitlisted returns the oldest waitlisted registration to eventID, or ErrNotFound.
		NextWaitlisted(ctx context.Context, eventID string, exec ...core.DBExecutor) (Registration, error)
		// WaitlistPosition returns the 1-based position of reg in its event's waitlist.
		WaitlistPosition(ctx context.Context, reg Registration, exec ...core.DBExecutor) (int, error)
		QueryRegistrations(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Registration, error)
		CountRegistrations(ctx context.Context, filter *QueryFilter, exec ...core.DBExecutor) (int, error)
		// ListUserRegistrations returns the active registrations of userID along with their events, newest first.
		ListUserRegistrations(ctx context.Context, userID string, exec ...core.DBExecutor) ([]WithEvent, error)
		// ListEventRegistrations returns the active registrations to eventID along with their users, oldest first.
		ListEventRegistrations(ctx context.Context, eventID string, exec ...core.DBExecutor) ([]WithUser, error)
	}

	Service interface {
		// Register reserves a seat for usr, or a waitlist spot when the event is full and has a waitlist.
		Register(ctx context.Context, usr user.User, eventID string) (Registration, error)
		// Unregister cancels the registration of usr and hands a freed seat to the waitlist.
		Unregister(ctx context.Context, usr user.User, eventID string) (Registration, error)
		Status(ctx context.Context, userID, eventID string) (StatusResponse, error)
		ListForUser(ctx context.Context, userID string) ([]WithEvent, error)
		ListForEvent(ctx context.Context, eventID string) ([]WithUser, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Registration, error)
		Count(ctx context.Context, filter *QueryFilter) (int, error)
	}

	service struct {
		repo     Repository
		promoter *Promoter
		events   event.Repository
		notifier notification.Notifier
		tx       core.Transactor
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository, events event.Repository, notifier notification.Notifier, tx core.Transactor) Service {
	return &service{
		repo:     repo,
		promoter: NewPromoter(repo),
		events:   events,
		notifier: notifier,
		tx:       tx,
	}
}

func (svc *service) Register(ctx context.Context, usr user.User, eventID string) (Registration, error) {
	var reg Registration
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		now := core.NowFunc()

		// concurrent registrations to the same event queue up here
		evt, err := svc.events.LockEvent(ctx, eventID, exec)
		if err != nil {
			return err
		}
		if !evt.IsPublished() {
			return ErrEventNotOpen
		}
		if evt.HasStarted(now) {
			return ErrEventStarted
		}

		existing, err := svc.repo.GetRegistration(ctx, usr.ID, eventID, exec)
		if err == nil && existing.Active() {
			return ErrAlreadyRegistered
		} else if err != nil && errors.Cause(err) != ErrNotFound {
			return errors.Wrap(err, "finding registration")
		}

		confirmed, _, err := svc.repo.CountEventRegistrations(ctx, eventID, exec)
		if err != nil {
			return errors.Wrap(err, "counting registrations")
		}
		status, err := decideStatus(evt, confirmed)
		if err != nil {
			return err
		}

		if existing.ID != "" {
			// revive the cancelled registration, at the back of the waitlist
			existing.Status = status
			existing.CreatedAt = now
			existing.UpdatedAt = now
			existing.CancelledAt = time.Time{}
			if reg, err = svc.repo.UpdateRegistration(ctx, existing, exec); err != nil {
				return errors.Wrap(err, "reviving registration")
			}
		} else {
			reg = Registration{UserID: usr.ID, EventID: eventID, Status: status, CreatedAt: now, UpdatedAt: now}
			if reg, err = svc.repo.CreateRegistration(ctx, reg, exec); err != nil {
				if errors.Cause(err) == ErrAlreadyRegistered {
					return ErrAlreadyRegistered
				}
				return errors.Wrap(err, "creating registration")
			}
		}

		notif := notification.NewNotification{
			UserID:    usr.ID,
			Type:      notification.TypeRegistrationConfirmed,
			Title:     "Registration confirmed",
			Message:   fmt.Sprintf("You are registered for %q.", evt.Title),
			RelatedID: evt.ID,
		}
		if status == StatusWaitlisted {
			notif.Type = notification.TypeRegistrationWaitlisted
			notif.Title = "Added to the waitlist"
			notif.Message = fmt.Sprintf("%q is full. You are on the waitlist and will be notified if a seat frees up.", evt.Title)
		}
		return errors.Wrap(svc.notifier.Notify(ctx, []notification.NewNotification{notif}, exec), "notifying user")
	})
	if err != nil {
		return Registration{}, err
	}
	svc.notifier.Wake()
	return reg, nil
}

func (svc *service) Unregister(ctx context.Context, usr user.User, eventID string) (Registration, error) {
	var reg Registration
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		now := core.NowFunc()

		evt, err := svc.events.LockEvent(ctx, eventID, exec)
		if err != nil {
			return err
		}
		if evt.HasStarted(now) {
			return ErrEventStarted
		}

		reg, err = svc.repo.GetRegistration(ctx, usr.ID, eventID, exec)
		if err != nil {
			if errors.Cause(err) == ErrNotFound {
				return ErrNotRegistered
			}
			return errors.Wrap(err, "finding registration")
		}
		if !reg.Active() {
			return ErrNotRegistered
		}

		heldSeat := reg.Status == StatusConfirmed
		reg.Status = StatusCancelled
		reg.CancelledAt = now
		reg.UpdatedAt = now
		if reg, err = svc.repo.UpdateRegistration(ctx, reg, exec); err != nil {
			return errors.Wrap(err, "cancelling registration")
		}

		notifs := []notification.NewNotification{{
			UserID:    usr.ID,
			Type:      notification.TypeRegistrationCancelled,
			Title:     "Registration cancelled",
			Message:   fmt.Sprintf("Your registration for %q has been cancelled.", evt.Title),
			RelatedID: evt.ID,
		}}
		if heldSeat && evt.IsPublished() {
			promoted, err := svc.promoter.PromoteWaitlisted(ctx, evt, exec)
			if err != nil {
				return err
			}
			notifs = append(notifs, promoted...)
		}
		return errors.Wrap(svc.notifier.Notify(ctx, notifs, exec), "notifying users")
	})
	if err != nil {
		return Registration{}, err
	}
	svc.notifier.Wake()
	return reg, nil
}

func (svc *service) Status(ctx context.Context, userID, eventID string) (StatusResponse, error) {
	reg, err := svc.repo.GetRegistration(ctx, userID, eventID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return StatusResponse{}, nil
		}
		return StatusResponse{}, errors.Wrap(err, "finding registration")
	}

	resp := StatusResponse{Registered: reg.Active(), Status: reg.Status}
	if reg.Status == StatusWaitlisted {
		if resp.Position, err = svc.repo.WaitlistPosition(ctx, reg); err != nil {
			return StatusResponse{}, errors.Wrap(err, "finding waitlist position")
		}
	}
	return resp, nil
}

func (svc *service) ListForUser(ctx context.Context, userID string) ([]WithEvent, error) {
	return svc.repo.ListUserRegistrations(ctx, userID)
}

func (svc *service) ListForEvent(ctx context.Context, eventID string) ([]WithUser, error) {
	return svc.repo.ListEventRegistrations(ctx, eventID)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Registration, error) {
	return svc.repo.QueryRegistrations(ctx, filter, ordering)
}

func (svc *service) Count(ctx context.Context, filter *QueryFilter) (int, error) {
	return svc.repo.CountRegistrations(ctx, filter)
}
