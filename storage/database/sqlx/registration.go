package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/an-shikaSingh/campus-connect-V0/core"
	"github.com/an-shikaSingh/campus-connect-V0/core/registration"
	"github.com/an-shikaSingh/campus-connect-V0/core/user"
	"github.com/an-shikaSingh/campus-connect-V0/storage/database"
)

const registrationUserEventKey = "registration_user_event_key"

var registrationCols = []string{"id", "user_id", "event_id", "status", "created_at", "updated_at", "cancelled_at"}

type (
	registrationRow struct {
		ID          string    `db:"id"`
		UserID      string    `db:"user_id"`
		EventID     string    `db:"event_id"`
		Status      string    `db:"status"`
		CreatedAt   time.Time `db:"created_at"`
		UpdatedAt   time.Time `db:"updated_at"`
		CancelledAt null.Time `db:"cancelled_at"`
	}

	registrationEventRow struct {
		registrationRow
		Event eventRow `db:"event"`
	}

	registrationUserRow struct {
		registrationRow
		User struct {
			ID        string      `db:"id"`
			FirstName null.String `db:"first_name"`
			LastName  null.String `db:"last_name"`
			AvatarURL null.String `db:"avatar_url"`
			Email     string      `db:"email"`
		} `db:"user"`
	}
)

func registrationToRow(reg registration.Registration) registrationRow {
	return registrationRow{
		ID:          reg.ID,
		UserID:      reg.UserID,
		EventID:     reg.EventID,
		Status:      reg.Status,
		CreatedAt:   reg.CreatedAt.UTC(),
		UpdatedAt:   reg.UpdatedAt.UTC(),
		CancelledAt: null.NewTime(reg.CancelledAt.UTC(), !reg.CancelledAt.IsZero()),
	}
}

func registrationFromRow(row registrationRow) registration.Registration {
	reg := registration.Registration{
		ID:        row.ID,
		UserID:    row.UserID,
		EventID:   row.EventID,
		Status:    row.Status,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
	if row.CancelledAt.Valid {
		reg.CancelledAt = row.CancelledAt.Time.UTC()
	}
	return reg
}

type registrationRepository struct {
	baseRepository
}

var _ registration.Repository = (*registrationRepository)(nil) // interface compliance check

func NewRegistrationRepository(exec core.DBExecutor) *registrationRepository {
	return &registrationRepository{baseRepository{exec: exec}}
}

func validIDs(ids ...string) bool {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return false
		}
	}
	return true
}

func (repo registrationRepository) CountEventRegistrations(ctx context.Context, eventID string, exec ...core.DBExecutor) (int, int, error) {
	if !validIDs(eventID) {
		return 0, 0, nil
	}
	var counts struct {
		Confirmed  int `db:"confirmed"`
		Waitlisted int `db:"waitlisted"`
	}
	q := `SELECT
		COUNT(*) FILTER (WHERE status = $2) AS confirmed,
		COUNT(*) FILTER (WHERE status = $3) AS waitlisted
		FROM registration WHERE event_id = $1`
	err := repo.getExec(exec).GetContext(ctx, &counts, q, eventID, registration.StatusConfirmed, registration.StatusWaitlisted)
	if err != nil {
		return 0, 0, errors.Wrap(err, "counting event registrations")
	}
	return counts.Confirmed, counts.Waitlisted, nil
}

func (repo registrationRepository) EventRegistrantIDs(ctx context.Context, eventID string, exec ...core.DBExecutor) ([]string, error) {
	if !validIDs(eventID) {
		return nil, nil
	}
	var ids []string
	q := `SELECT user_id FROM registration WHERE event_id = $1 AND status IN ($2, $3) ORDER BY created_at, id`
	err := repo.getExec(exec).SelectContext(ctx, &ids, q, eventID, registration.StatusConfirmed, registration.StatusWaitlisted)
	if err != nil {
		return nil, errors.Wrap(err, "listing event registrants")
	}
	return ids, nil
}

func (repo registrationRepository) GetRegistration(ctx context.Context, userID, eventID string, exec ...core.DBExecutor) (registration.Registration, error) {
	if !validIDs(userID, eventID) {
		return registration.Registration{}, registration.ErrNotFound
	}
	var row registrationRow
	q := `SELECT ` + strings.Join(registrationCols, ", ") + ` FROM registration WHERE user_id = $1 AND event_id = $2`
	if err := repo.getExec(exec).GetContext(ctx, &row, q, userID, eventID); err != nil {
		return registration.Registration{}, trapNoRowsErr(err, registration.ErrNotFound, "finding registration")
	}
	return registrationFromRow(row), nil
}

func (repo registrationRepository) CreateRegistration(ctx context.Context, reg registration.Registration, exec ...core.DBExecutor) (registration.Registration, error) {
	reg.ID = uuid.New().String()
	row := registrationToRow(reg)
	q := `INSERT INTO registration (` + strings.Join(registrationCols, ", ") + `) VALUES (:` + strings.Join(registrationCols, ", :") + `)`
	if _, err := namedExec(ctx, repo.getExec(exec), q, row); err != nil {
		if database.IsUniqueViolation(err, registrationUserEventKey) {
			return registration.Registration{}, registration.ErrAlreadyRegistered
		}
		return registration.Registration{}, errors.Wrap(err, "inserting registration")
	}
	return registrationFromRow(row), nil
}

func (repo registrationRepository) UpdateRegistration(ctx context.Context, reg registration.Registration, exec ...core.DBExecutor) (registration.Registration, error) {
	row := registrationToRow(reg)
	q := `UPDATE registration SET
		status = :status, created_at = :created_at, updated_at = :updated_at, cancelled_at = :cancelled_at
		WHERE id = :id`
	res, err := namedExec(ctx, repo.getExec(exec), q, row)
	if err != nil {
		return registration.Registration{}, errors.Wrap(err, "updating registration")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return registration.Registration{}, registration.ErrNotFound
	}
	return registrationFromRow(row), nil
}

func (repo registrationRepository) NextWaitlisted(ctx context.Context, eventID string, exec ...core.DBExecutor) (registration.Registration, error) {
	if !validIDs(eventID) {
		return registration.Registration{}, registration.ErrNotFound
	}
	var row registrationRow
	q := `SELECT ` + strings.Join(registrationCols, ", ") + ` FROM registration
		WHERE event_id = $1 AND status = $2
		ORDER BY created_at, id LIMIT 1 FOR UPDATE`
	if err := repo.getExec(exec).GetContext(ctx, &row, q, eventID, registration.StatusWaitlisted); err != nil {
		return registration.Registration{}, trapNoRowsErr(err, registration.ErrNotFound, "finding next waitlisted")
	}
	return registrationFromRow(row), nil
}

func (repo registrationRepository) WaitlistPosition(ctx context.Context, reg registration.Registration, exec ...core.DBExecutor) (int, error) {
	var pos int
	q := `SELECT COUNT(*) FROM registration
		WHERE event_id = $1 AND status = $2 AND (created_at < $3 OR (created_at = $3 AND id <= $4))`
	err := repo.getExec(exec).GetContext(ctx, &pos, q, reg.EventID, registration.StatusWaitlisted, reg.CreatedAt.UTC(), reg.ID)
	return pos, errors.Wrap(err, "finding waitlist position")
}

func (repo registrationRepository) filter(filter *registration.QueryFilter) whereClause {
	var w whereClause
	if filter == nil {
		return w
	}
	if filter.UserID != "" {
		if validIDs(filter.UserID) {
			w.add("user_id = ?", filter.UserID)
		} else {
			w.add("FALSE")
		}
	}
	if filter.EventID != "" {
		if validIDs(filter.EventID) {
			w.add("event_id = ?", filter.EventID)
		} else {
			w.add("FALSE")
		}
	}
	if len(filter.Statuses) > 0 {
		w.add("status IN (?)", filter.Statuses)
	}
	if !filter.CreatedFrom.IsZero() {
		w.add("created_at >= ?", filter.CreatedFrom.UTC())
	}
	if !filter.CreatedTo.IsZero() {
		w.add("created_at <= ?", filter.CreatedTo.UTC())
	}
	return w
}

func (repo registrationRepository) QueryRegistrations(ctx context.Context, filter *registration.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]registration.Registration, error) {
	exe := repo.getExec(exec)
	w := repo.filter(filter)
	q, args, err := w.build(exe, `SELECT `+strings.Join(registrationCols, ", ")+` FROM registration`+w.String()+orderBy(ordering, "created_at DESC"))
	if err != nil {
		return nil, err
	}

	var rows []registrationRow
	if err = exe.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying registrations")
	}
	regs := make([]registration.Registration, 0, len(rows))
	for _, r := range rows {
		regs = append(regs, registrationFromRow(r))
	}
	return regs, nil
}

func (repo registrationRepository) CountRegistrations(ctx context.Context, filter *registration.QueryFilter, exec ...core.DBExecutor) (int, error) {
	exe := repo.getExec(exec)
	w := repo.filter(filter)
	q, args, err := w.build(exe, `SELECT COUNT(*) FROM registration`+w.String())
	if err != nil {
		return 0, err
	}

	var n int
	if err = exe.GetContext(ctx, &n, q, args...); err != nil {
		return 0, errors.Wrap(err, "counting registrations")
	}
	return n, nil
}

func (repo registrationRepository) ListUserRegistrations(ctx context.Context, userID string, exec ...core.DBExecutor) ([]registration.WithEvent, error) {
	if !validIDs(userID) {
		return []registration.WithEvent{}, nil
	}
	q := `SELECT ` + columns(registrationCols, "r", "") + `, ` + columns(eventCols, "e", "event") + `
		FROM registration r JOIN event e ON e.id = r.event_id
		WHERE r.user_id = $1 AND r.status IN ($2, $3)
		ORDER BY r.created_at DESC`

	var rows []registrationEventRow
	err := repo.getExec(exec).SelectContext(ctx, &rows, q, userID, registration.StatusConfirmed, registration.StatusWaitlisted)
	if err != nil {
		return nil, errors.Wrap(err, "listing user registrations")
	}
	regs := make([]registration.WithEvent, 0, len(rows))
	for _, r := range rows {
		regs = append(regs, registration.WithEvent{
			Registration: registrationFromRow(r.registrationRow),
			Event:        eventFromRow(r.Event),
		})
	}
	return regs, nil
}

func (repo registrationRepository) ListEventRegistrations(ctx context.Context, eventID string, exec ...core.DBExecutor) ([]registration.WithUser, error) {
	if !validIDs(eventID) {
		return []registration.WithUser{}, nil
	}
	q := `SELECT ` + columns(registrationCols, "r", "") + `, ` +
		columns([]string{"id", "first_name", "last_name", "avatar_url", "email"}, "u", "user") + `
		FROM registration r JOIN "user" u ON u.id = r.user_id
		WHERE r.event_id = $1 AND r.status IN ($2, $3)
		ORDER BY r.created_at, r.id`

	var rows []registrationUserRow
	err := repo.getExec(exec).SelectContext(ctx, &rows, q, eventID, registration.StatusConfirmed, registration.StatusWaitlisted)
	if err != nil {
		return nil, errors.Wrap(err, "listing event registrations")
	}
	regs := make([]registration.WithUser, 0, len(rows))
	for _, r := range rows {
		regs = append(regs, registration.WithUser{
			Registration: registrationFromRow(r.registrationRow),
			User: user.PublicProfile{
				ID:        r.User.ID,
				FirstName: r.User.FirstName.String,
				LastName:  r.User.LastName.String,
				AvatarURL: r.User.AvatarURL.String,
			},
			Email: r.User.Email,
		})
	}
	return regs, nil
}
