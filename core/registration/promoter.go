package registration

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/an-shikaSingh/campus-connect-V0/core"
	"github.com/an-shikaSingh/campus-connect-V0/core/event"
	"github.com/an-shikaSingh/campus-connect-V0/core/notification"
)

// Promoter hands the free seats of an event to its waitlist, oldest registration first.
type Promoter struct {
	repo Repository
}

var _ event.WaitlistPromoter = (*Promoter)(nil) // interface compliance check

func NewPromoter(repo Repository) *Promoter {
	return &Promoter{repo: repo}
}

// PromoteWaitlisted confirms waitlisted registrations to evt while it has free seats.
// It must run within the transaction holding the lock on evt.
func (p *Promoter) PromoteWaitlisted(ctx context.Context, evt event.Event, exec core.DBExecutor) ([]notification.NewNotification, error) {
	confirmed, _, err := p.repo.CountEventRegistrations(ctx, evt.ID, exec)
	if err != nil {
		return nil, errors.Wrap(err, "counting registrations")
	}

	var notifs []notification.NewNotification
	for evt.Unlimited() || confirmed < evt.Capacity {
		next, err := p.repo.NextWaitlisted(ctx, evt.ID, exec)
		if err != nil {
			if errors.Cause(err) == ErrNotFound {
				break
			}
			return nil, errors.Wrap(err, "finding next waitlisted")
		}

		next.Status = StatusConfirmed
		next.UpdatedAt = core.NowFunc()
		if _, err = p.repo.UpdateRegistration(ctx, next, exec); err != nil {
			return nil, errors.Wrap(err, "promoting registration")
		}
		confirmed++

		notifs = append(notifs, notification.NewNotification{
			UserID:    next.UserID,
			Type:      notification.TypeWaitlistPromoted,
			Title:     "You got a seat",
			Message:   fmt.Sprintf("A seat freed up for %q. Your registration is now confirmed.", evt.Title),
			RelatedID: evt.ID,
		})
	}
	return notifs, nil
}
