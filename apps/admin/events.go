package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/an-shikaSingh/campus-connect-V0/core"
	"github.com/an-shikaSingh/campus-connect-V0/core/notification"
	"github.com/an-shikaSingh/campus-connect-V0/core/user"
)

func (cli *commandLine) archiveEvents() error {
	n, err := cli.events.ArchiveFinished(context.Background(), core.NowFunc())
	if err != nil {
		return err
	}
	fmt.Printf("archived %d events\n", n)
	return nil
}

// notify queues an announcement to the users registered to eventID, or to every active user.
// The API's dispatcher delivers it.
func (cli *commandLine) notify(title, message, eventID string) error {
	ctx := context.Background()

	var userIDs []string
	if eventID != "" {
		if _, err := cli.events.GetByID(ctx, eventID); err != nil {
			return err
		}
		ids, err := cli.regs.EventRegistrantIDs(ctx, eventID)
		if err != nil {
			return errors.Wrap(err, "listing registrants")
		}
		userIDs = ids
	} else {
		active := true
		users, err := cli.usrRepo.QueryUsers(ctx, &user.QueryFilter{IsActive: &active}, nil)
		if err != nil {
			return errors.Wrap(err, "listing users")
		}
		for _, usr := range users {
			userIDs = append(userIDs, usr.ID)
		}
	}

	notifs := make([]notification.NewNotification, 0, len(userIDs))
	for _, id := range userIDs {
		notifs = append(notifs, notification.NewNotification{
			UserID:    id,
			Type:      notification.TypeAnnouncement,
			Title:     core.CleanString(title),
			Message:   core.CleanString(message),
			RelatedID: eventID,
		})
	}
	if err := cli.notifier.Notify(ctx, notifs); err != nil {
		return err
	}
	fmt.Printf("notified %d users\n", len(notifs))
	return nil
}
