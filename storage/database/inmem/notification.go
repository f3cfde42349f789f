package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/an-shikaSingh/campus-connect-V0/core"
	"github.com/an-shikaSingh/campus-connect-V0/core/notification"
)

type notificationRepository struct {
	db *DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *DB) *notificationRepository {
	return &notificationRepository{db: db}
}

// deleteDeliveries drops the deliveries of notifID. The caller holds the lock.
func (db *DB) deleteDeliveries(notifID string) {
	for id, d := range db.t.deliveries {
		if d.NotificationID == notifID {
			delete(db.t.deliveries, id)
		}
	}
}

func (repo *notificationRepository) CreateNotifications(_ context.Context, notifs []notification.Notification, channels []string, exec ...core.DBExecutor) ([]notification.Notification, error) {
	defer repo.db.lockWrite(exec)()

	created := make([]notification.Notification, 0, len(notifs))
	for _, n := range notifs {
		n.ID = uuid.New().String()
		repo.db.t.notifications[n.ID] = n
		for _, ch := range channels {
			dlv := notification.Delivery{
				ID:             uuid.New().String(),
				NotificationID: n.ID,
				Channel:        ch,
				Status:         notification.DeliveryPending,
				NextAttemptAt:  n.CreatedAt,
				CreatedAt:      n.CreatedAt,
				UpdatedAt:      n.CreatedAt,
			}
			repo.db.t.deliveries[dlv.ID] = dlv
		}
		created = append(created, n)
	}
	return created, nil
}

// userNotifications returns the notifications of userID, newest first. The caller holds the lock.
func (repo *notificationRepository) userNotifications(userID string, unreadOnly bool) []notification.Notification {
	var notifs []notification.Notification
	for _, n := range repo.db.t.notifications {
		if n.UserID == userID && !(unreadOnly && n.Read) {
			notifs = append(notifs, n)
		}
	}
	sort.Slice(notifs, func(i, j int) bool {
		if !notifs[i].CreatedAt.Equal(notifs[j].CreatedAt) {
			return notifs[i].CreatedAt.After(notifs[j].CreatedAt)
		}
		return notifs[i].ID > notifs[j].ID
	})
	return notifs
}

func (repo *notificationRepository) QueryNotifications(_ context.Context, userID string, filter notification.ListFilter, _ ...core.DBExecutor) ([]notification.Notification, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	notifs := repo.userNotifications(userID, filter.UnreadOnly)
	if filter.Limit > 0 && len(notifs) > filter.Limit {
		notifs = notifs[:filter.Limit]
	}
	if notifs == nil {
		notifs = []notification.Notification{}
	}
	return notifs, nil
}

func (repo *notificationRepository) CountUnread(_ context.Context, userID string, _ ...core.DBExecutor) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return len(repo.userNotifications(userID, true)), nil
}

func (repo *notificationRepository) MarkRead(_ context.Context, userID, id string, now time.Time, exec ...core.DBExecutor) (notification.Notification, error) {
	defer repo.db.lockWrite(exec)()

	n, ok := repo.db.t.notifications[id]
	if !ok || n.UserID != userID {
		return notification.Notification{}, notification.ErrNotFound
	}
	n.Read = true
	n.UpdatedAt = now
	repo.db.t.notifications[id] = n
	return n, nil
}

func (repo *notificationRepository) MarkAllRead(_ context.Context, userID string, now time.Time, exec ...core.DBExecutor) (int, error) {
	defer repo.db.lockWrite(exec)()

	var count int
	for id, n := range repo.db.t.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			n.UpdatedAt = now
			repo.db.t.notifications[id] = n
			count++
		}
	}
	return count, nil
}

func (repo *notificationRepository) ClaimDeliveries(_ context.Context, now, leaseUntil time.Time, limit int, exec ...core.DBExecutor) ([]notification.Delivery, error) {
	defer repo.db.lockWrite(exec)()

	var due []notification.Delivery
	for _, d := range repo.db.t.deliveries {
		if (d.Status == notification.DeliveryPending || d.Status == notification.DeliveryProcessing) && !d.NextAttemptAt.After(now) {
			due = append(due, d)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NextAttemptAt.Before(due[j].NextAttemptAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	for i, d := range due {
		d.Status = notification.DeliveryProcessing
		d.Attempts++
		d.NextAttemptAt = leaseUntil
		d.UpdatedAt = now
		repo.db.t.deliveries[d.ID] = d

		d.Notification = repo.db.t.notifications[d.NotificationID]
		due[i] = d
	}
	return due, nil
}

func (repo *notificationRepository) UpdateDelivery(_ context.Context, d notification.Delivery, exec ...core.DBExecutor) error {
	defer repo.db.lockWrite(exec)()

	if _, ok := repo.db.t.deliveries[d.ID]; !ok {
		return nil
	}
	d.Notification = notification.Notification{}
	repo.db.t.deliveries[d.ID] = d
	return nil
}

// Deliveries returns every delivery of notifID.
func (repo *notificationRepository) Deliveries(notifID string) []notification.Delivery {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var dlvs []notification.Delivery
	for _, d := range repo.db.t.deliveries {
		if d.NotificationID == notifID {
			dlvs = append(dlvs, d)
		}
	}
	sort.Slice(dlvs, func(i, j int) bool { return dlvs[i].Channel > dlvs[j].Channel })
	return dlvs
}
