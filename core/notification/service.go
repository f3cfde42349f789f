package notification

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/an-shikaSingh/campus-connect-V0/core"
)

var (
	// errors
	ErrNotFound = errors.New("notification not found")
)

type (
	Repository interface {
		// CreateNotifications inserts notifs along with one pending Delivery per channel.
		CreateNotifications(ctx context.Context, notifs []Notification, channels []string, exec ...core.DBExecutor) ([]Notification, error)
		QueryNotifications(ctx context.Context, userID string, filter ListFilter, exec ...core.DBExecutor) ([]Notification, error)
		CountUnread(ctx context.Context, userID string, exec ...core.DBExecutor) (int, error)
		MarkRead(ctx context.Context, userID, id string, now time.Time, exec ...core.DBExecutor) (Notification, error)
		MarkAllRead(ctx context.Context, userID string, now time.Time, exec ...core.DBExecutor) (int, error)

		// ClaimDeliveries leases up to limit due deliveries (pending, or processing with an expired lease)
		// until leaseUntil, incrementing their attempts. Claimed rows are skipped by concurrent claims.
		ClaimDeliveries(ctx context.Context, now, leaseUntil time.Time, limit int, exec ...core.DBExecutor) ([]Delivery, error)
		UpdateDelivery(ctx context.Context, d Delivery, exec ...core.DBExecutor) error
	}

	// Notifier records notifications for delivery.
	// Called with an executor, Notify takes part in the caller's transaction and the caller
	// must Wake the dispatcher once it commits.
	Notifier interface {
		Notify(ctx context.Context, notifs []NewNotification, exec ...core.DBExecutor) error
		Wake()
	}

	Service interface {
		Notifier
		List(ctx context.Context, userID string, filter ListFilter) ([]Notification, error)
		UnreadCount(ctx context.Context, userID string) (int, error)
		MarkRead(ctx context.Context, userID, id string) (Notification, error)
		MarkAllRead(ctx context.Context, userID string) (int, error)
	}

	// Waker is poked whenever new deliveries are pending.
	Waker interface {
		Wake()
	}

	service struct {
		repo     Repository
		tx       core.Transactor
		waker    Waker
		channels []string
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository, tx core.Transactor, waker Waker, conf *core.Config) Service {
	return &service{
		repo:     repo,
		tx:       tx,
		waker:    waker,
		channels: Channels(conf),
	}
}

// Channels returns the delivery channels enabled by conf.
func Channels(conf *core.Config) []string {
	channels := []string{ChannelRealtime}
	if conf.Notification.EmailEnabled {
		channels = append(channels, ChannelEmail)
	}
	return channels
}

func (svc *service) Notify(ctx context.Context, notifs []NewNotification, exec ...core.DBExecutor) error {
	if len(notifs) == 0 {
		return nil
	}

	now := core.NowFunc()
	rows := make([]Notification, 0, len(notifs))
	for _, n := range notifs {
		rows = append(rows, Notification{
			UserID:    n.UserID,
			Type:      n.Type,
			Title:     n.Title,
			Message:   n.Message,
			RelatedID: n.RelatedID,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	if len(exec) > 0 {
		_, err := svc.repo.CreateNotifications(ctx, rows, svc.channels, exec...)
		return errors.Wrap(err, "creating notifications")
	}

	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		_, err := svc.repo.CreateNotifications(ctx, rows, svc.channels, exec)
		return err
	})
	if err != nil {
		return errors.Wrap(err, "creating notifications")
	}
	svc.Wake()
	return nil
}

func (svc *service) Wake() {
	if svc.waker != nil {
		svc.waker.Wake()
	}
}

func (svc *service) List(ctx context.Context, userID string, filter ListFilter) ([]Notification, error) {
	filter.Clean()
	return svc.repo.QueryNotifications(ctx, userID, filter)
}

func (svc *service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return svc.repo.CountUnread(ctx, userID)
}

func (svc *service) MarkRead(ctx context.Context, userID, id string) (Notification, error) {
	return svc.repo.MarkRead(ctx, userID, id, core.NowFunc())
}

func (svc *service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return svc.repo.MarkAllRead(ctx, userID, core.NowFunc())
}
