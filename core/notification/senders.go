package notification

import (
	"context"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/an-shikaSingh/campus-connect-V0/core"
	"github.com/an-shikaSingh/campus-connect-V0/core/user"
)

type (
	// Publisher pushes notifications to connected clients.
	Publisher interface {
		Publish(ctx context.Context, n Notification) error
	}

	// UserGetter looks up notification recipients.
	UserGetter interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	RealtimeSender struct {
		pub Publisher
	}

	EmailSender struct {
		users   UserGetter
		mailSvc core.EmailService
	}
)

func NewRealtimeSender(pub Publisher) *RealtimeSender {
	return &RealtimeSender{pub: pub}
}

func (s *RealtimeSender) Channel() string { return ChannelRealtime }

func (s *RealtimeSender) Send(ctx context.Context, n Notification) error {
	return errors.Wrap(s.pub.Publish(ctx, n), "publishing notification")
}

func NewEmailSender(users UserGetter, mailSvc core.EmailService) *EmailSender {
	return &EmailSender{users: users, mailSvc: mailSvc}
}

func (s *EmailSender) Channel() string { return ChannelEmail }

func (s *EmailSender) Send(ctx context.Context, n Notification) error {
	usr, err := s.users.GetByID(ctx, n.UserID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return nil // recipient is gone, nothing to deliver
		}
		return errors.Wrap(err, "finding recipient")
	}
	if !usr.Active() {
		return nil
	}

	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: usr.FullName(), Address: usr.Email}},
		Subject:      n.Title,
		TemplateName: "notification",
		TemplateData: n,
	}
	return errors.Wrap(s.mailSvc.SendMessage(msg), "sending notification email")
}
