package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/an-shikaSingh/campus-connect-V0/core"
	"github.com/an-shikaSingh/campus-connect-V0/core/notification"
)

var (
	notificationCols = []string{"id", "user_id", "type", "title", "message", "related_id", "read", "created_at", "updated_at"}
	deliveryCols     = []string{
		"id", "notification_id", "channel", "status", "attempts", "next_attempt_at", "last_error", "created_at", "updated_at",
	}
)

type (
	notificationRow struct {
		ID        string      `db:"id"`
		UserID    string      `db:"user_id"`
		Type      string      `db:"type"`
		Title     string      `db:"title"`
		Message   string      `db:"message"`
		RelatedID null.String `db:"related_id"`
		Read      bool        `db:"read"`
		CreatedAt time.Time   `db:"created_at"`
		UpdatedAt time.Time   `db:"updated_at"`
	}

	deliveryRow struct {
		ID             string      `db:"id"`
		NotificationID string      `db:"notification_id"`
		Channel        string      `db:"channel"`
		Status         string      `db:"status"`
		Attempts       int         `db:"attempts"`
		NextAttemptAt  time.Time   `db:"next_attempt_at"`
		LastError      null.String `db:"last_error"`
		CreatedAt      time.Time   `db:"created_at"`
		UpdatedAt      time.Time   `db:"updated_at"`
	}
)

func notificationToRow(n notification.Notification) notificationRow {
	return notificationRow{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		RelatedID: null.NewString(n.RelatedID, n.RelatedID != ""),
		Read:      n.Read,
		CreatedAt: n.CreatedAt.UTC(),
		UpdatedAt: n.UpdatedAt.UTC(),
	}
}

func notificationFromRow(row notificationRow) notification.Notification {
	return notification.Notification{
		ID:        row.ID,
		UserID:    row.UserID,
		Type:      row.Type,
		Title:     row.Title,
		Message:   row.Message,
		RelatedID: row.RelatedID.String,
		Read:      row.Read,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

func deliveryToRow(d notification.Delivery) deliveryRow {
	return deliveryRow{
		ID:             d.ID,
		NotificationID: d.NotificationID,
		Channel:        d.Channel,
		Status:         d.Status,
		Attempts:       d.Attempts,
		NextAttemptAt:  d.NextAttemptAt.UTC(),
		LastError:      null.NewString(d.LastError, d.LastError != ""),
		CreatedAt:      d.CreatedAt.UTC(),
		UpdatedAt:      d.UpdatedAt.UTC(),
	}
}

func deliveryFromRow(row deliveryRow) notification.Delivery {
	return notification.Delivery{
		ID:             row.ID,
		NotificationID: row.NotificationID,
		Channel:        row.Channel,
		Status:         row.Status,
		Attempts:       row.Attempts,
		NextAttemptAt:  row.NextAttemptAt.UTC(),
		LastError:      row.LastError.String,
		CreatedAt:      row.CreatedAt.UTC(),
		UpdatedAt:      row.UpdatedAt.UTC(),
	}
}

type notificationRepository struct {
	baseRepository
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(exec core.DBExecutor) *notificationRepository {
	return &notificationRepository{baseRepository{exec: exec}}
}

func (repo notificationRepository) CreateNotifications(ctx context.Context, notifs []notification.Notification, channels []string, exec ...core.DBExecutor) ([]notification.Notification, error) {
	exe := repo.getExec(exec)
	insNotif := `INSERT INTO notification (` + strings.Join(notificationCols, ", ") + `) VALUES (:` + strings.Join(notificationCols, ", :") + `)`
	insDlv := `INSERT INTO notification_delivery (` + strings.Join(deliveryCols, ", ") + `) VALUES (:` + strings.Join(deliveryCols, ", :") + `)`

	created := make([]notification.Notification, 0, len(notifs))
	for _, n := range notifs {
		n.ID = uuid.New().String()
		if _, err := namedExec(ctx, exe, insNotif, notificationToRow(n)); err != nil {
			return nil, errors.Wrap(err, "inserting notification")
		}
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
			if _, err := namedExec(ctx, exe, insDlv, deliveryToRow(dlv)); err != nil {
				return nil, errors.Wrap(err, "inserting delivery")
			}
		}
		created = append(created, n)
	}
	return created, nil
}

func (repo notificationRepository) QueryNotifications(ctx context.Context, userID string, filter notification.ListFilter, exec ...core.DBExecutor) ([]notification.Notification, error) {
	if !validIDs(userID) {
		return []notification.Notification{}, nil
	}
	q := `SELECT ` + strings.Join(notificationCols, ", ") + ` FROM notification WHERE user_id = $1`
	if filter.UnreadOnly {
		q += ` AND NOT read`
	}
	q += ` ORDER BY created_at DESC LIMIT $2`

	var rows []notificationRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, userID, filter.Limit); err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	notifs := make([]notification.Notification, 0, len(rows))
	for _, r := range rows {
		notifs = append(notifs, notificationFromRow(r))
	}
	return notifs, nil
}

func (repo notificationRepository) CountUnread(ctx context.Context, userID string, exec ...core.DBExecutor) (int, error) {
	if !validIDs(userID) {
		return 0, nil
	}
	var n int
	err := repo.getExec(exec).GetContext(ctx, &n, `SELECT COUNT(*) FROM notification WHERE user_id = $1 AND NOT read`, userID)
	return n, errors.Wrap(err, "counting unread notifications")
}

func (repo notificationRepository) MarkRead(ctx context.Context, userID, id string, now time.Time, exec ...core.DBExecutor) (notification.Notification, error) {
	if !validIDs(userID, id) {
		return notification.Notification{}, notification.ErrNotFound
	}
	var row notificationRow
	q := `UPDATE notification SET read = TRUE, updated_at = $3 WHERE id = $1 AND user_id = $2
		RETURNING ` + strings.Join(notificationCols, ", ")
	if err := repo.getExec(exec).GetContext(ctx, &row, q, id, userID, now.UTC()); err != nil {
		return notification.Notification{}, trapNoRowsErr(err, notification.ErrNotFound, "marking notification read")
	}
	return notificationFromRow(row), nil
}

func (repo notificationRepository) MarkAllRead(ctx context.Context, userID string, now time.Time, exec ...core.DBExecutor) (int, error) {
	if !validIDs(userID) {
		return 0, nil
	}
	res, err := repo.getExec(exec).ExecContext(ctx,
		`UPDATE notification SET read = TRUE, updated_at = $2 WHERE user_id = $1 AND NOT read`, userID, now.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "marking notifications read")
	}
	n, err := res.RowsAffected()
	return int(n), errors.Wrap(err, "marking notifications read")
}

func (repo notificationRepository) ClaimDeliveries(ctx context.Context, now, leaseUntil time.Time, limit int, exec ...core.DBExecutor) ([]notification.Delivery, error) {
	exe := repo.getExec(exec)

	q := `WITH due AS (
			SELECT id FROM notification_delivery
			WHERE status IN ($1, $2) AND next_attempt_at <= $3
			ORDER BY next_attempt_at
			LIMIT $5
			FOR UPDATE SKIP LOCKED
		)
		UPDATE notification_delivery d
		SET status = $2, attempts = d.attempts + 1, next_attempt_at = $4, updated_at = $3
		FROM due WHERE d.id = due.id
		RETURNING ` + columns(deliveryCols, "d", "")

	var rows []deliveryRow
	err := exe.SelectContext(ctx, &rows, q,
		notification.DeliveryPending, notification.DeliveryProcessing, now.UTC(), leaseUntil.UTC(), limit)
	if err != nil {
		return nil, errors.Wrap(err, "claiming deliveries")
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.NotificationID)
	}
	var notifRows []notificationRow
	q = `SELECT ` + strings.Join(notificationCols, ", ") + ` FROM notification WHERE id = ANY($1)`
	if err = exe.SelectContext(ctx, &notifRows, q, pq.Array(ids)); err != nil {
		return nil, errors.Wrap(err, "loading claimed notifications")
	}
	notifs := make(map[string]notification.Notification, len(notifRows))
	for _, r := range notifRows {
		notifs[r.ID] = notificationFromRow(r)
	}

	deliveries := make([]notification.Delivery, 0, len(rows))
	for _, r := range rows {
		d := deliveryFromRow(r)
		d.Notification = notifs[d.NotificationID]
		deliveries = append(deliveries, d)
	}
	return deliveries, nil
}

func (repo notificationRepository) UpdateDelivery(ctx context.Context, d notification.Delivery, exec ...core.DBExecutor) error {
	q := `UPDATE notification_delivery SET
		status = :status, attempts = :attempts, next_attempt_at = :next_attempt_at,
		last_error = :last_error, updated_at = :updated_at
		WHERE id = :id`
	if _, err := namedExec(ctx, repo.getExec(exec), q, deliveryToRow(d)); err != nil {
		return errors.Wrap(err, "updating delivery")
	}
	return nil
}
