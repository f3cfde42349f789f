package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/an-shikaSingh/campus-connect-V0/core"
	"github.com/an-shikaSingh/campus-connect-V0/core/event"
)

var eventCols = []string{
	"id", "title", "description", "location", "category", "start_date", "end_date", "image_url",
	"organizer_id", "capacity", "waitlist_enabled", "status", "published_at", "cancelled_at",
	"created_at", "updated_at",
}

type eventRow struct {
	ID              string      `db:"id"`
	Title           string      `db:"title"`
	Description     string      `db:"description"`
	Location        string      `db:"location"`
	Category        string      `db:"category"`
	StartDate       time.Time   `db:"start_date"`
	EndDate         time.Time   `db:"end_date"`
	ImageURL        null.String `db:"image_url"`
	OrganizerID     string      `db:"organizer_id"`
	Capacity        int         `db:"capacity"`
	WaitlistEnabled bool        `db:"waitlist_enabled"`
	Status          string      `db:"status"`
	PublishedAt     null.Time   `db:"published_at"`
	CancelledAt     null.Time   `db:"cancelled_at"`
	CreatedAt       time.Time   `db:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at"`
}

func eventToRow(evt event.Event) eventRow {
	return eventRow{
		ID:              evt.ID,
		Title:           evt.Title,
		Description:     evt.Description,
		Location:        evt.Location,
		Category:        evt.Category,
		StartDate:       evt.StartDate.UTC(),
		EndDate:         evt.EndDate.UTC(),
		ImageURL:        null.NewString(evt.ImageURL, evt.ImageURL != ""),
		OrganizerID:     evt.OrganizerID,
		Capacity:        evt.Capacity,
		WaitlistEnabled: evt.WaitlistEnabled,
		Status:          evt.Status,
		PublishedAt:     null.NewTime(evt.PublishedAt.UTC(), !evt.PublishedAt.IsZero()),
		CancelledAt:     null.NewTime(evt.CancelledAt.UTC(), !evt.CancelledAt.IsZero()),
		CreatedAt:       evt.CreatedAt.UTC(),
		UpdatedAt:       evt.UpdatedAt.UTC(),
	}
}

func eventFromRow(row eventRow) event.Event {
	evt := event.Event{
		ID:              row.ID,
		Title:           row.Title,
		Description:     row.Description,
		Location:        row.Location,
		Category:        row.Category,
		StartDate:       row.StartDate.UTC(),
		EndDate:         row.EndDate.UTC(),
		ImageURL:        row.ImageURL.String,
		OrganizerID:     row.OrganizerID,
		Capacity:        row.Capacity,
		WaitlistEnabled: row.WaitlistEnabled,
		Status:          row.Status,
		CreatedAt:       row.CreatedAt.UTC(),
		UpdatedAt:       row.UpdatedAt.UTC(),
	}
	if row.PublishedAt.Valid {
		evt.PublishedAt = row.PublishedAt.Time.UTC()
	}
	if row.CancelledAt.Valid {
		evt.CancelledAt = row.CancelledAt.Time.UTC()
	}
	return evt
}

type eventRepository struct {
	baseRepository
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(exec core.DBExecutor) *eventRepository {
	return &eventRepository{baseRepository{exec: exec}}
}

func (repo eventRepository) CreateEvent(ctx context.Context, evt event.Event, exec ...core.DBExecutor) (event.Event, error) {
	evt.ID = uuid.New().String()
	row := eventToRow(evt)
	q := `INSERT INTO event (` + strings.Join(eventCols, ", ") + `) VALUES (:` + strings.Join(eventCols, ", :") + `)`
	if _, err := namedExec(ctx, repo.getExec(exec), q, row); err != nil {
		return event.Event{}, errors.Wrap(err, "inserting event")
	}
	return eventFromRow(row), nil
}

func (repo eventRepository) getEvent(ctx context.Context, id string, lock bool, exec []core.DBExecutor) (event.Event, error) {
	if _, err := uuid.Parse(id); err != nil {
		return event.Event{}, event.ErrNotFound
	}
	q := `SELECT ` + strings.Join(eventCols, ", ") + ` FROM event WHERE id = $1`
	if lock {
		q += ` FOR UPDATE`
	}

	var row eventRow
	if err := repo.getExec(exec).GetContext(ctx, &row, q, id); err != nil {
		return event.Event{}, trapNoRowsErr(err, event.ErrNotFound, "finding event")
	}
	return eventFromRow(row), nil
}

func (repo eventRepository) GetEvent(ctx context.Context, id string, exec ...core.DBExecutor) (event.Event, error) {
	return repo.getEvent(ctx, id, false, exec)
}

func (repo eventRepository) LockEvent(ctx context.Context, id string, exec ...core.DBExecutor) (event.Event, error) {
	return repo.getEvent(ctx, id, true, exec)
}

func (repo eventRepository) filter(filter *event.QueryFilter) whereClause {
	var w whereClause
	if filter == nil {
		return w
	}
	// events with Title or Description matching the search keyword
	if filter.Search != "" {
		val := containsPattern(filter.Search)
		w.add("(title ILIKE ? OR description ILIKE ?)", val, val)
	}
	if filter.Category != "" {
		w.add("category = ?", filter.Category)
	}
	if len(filter.Statuses) > 0 {
		w.add("status IN (?)", filter.Statuses)
	}
	if filter.OrganizerID != "" {
		if _, err := uuid.Parse(filter.OrganizerID); err != nil {
			w.add("FALSE")
		} else {
			w.add("organizer_id = ?", filter.OrganizerID)
		}
	}
	if !filter.StartFrom.IsZero() {
		w.add("start_date >= ?", filter.StartFrom.UTC())
	}
	if !filter.StartTo.IsZero() {
		w.add("start_date <= ?", filter.StartTo.UTC())
	}
	if filter.Upcoming {
		w.add("start_date > ?", filter.Now.UTC())
	}
	return w
}

func (repo eventRepository) QueryEvents(ctx context.Context, filter *event.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]event.Event, error) {
	exe := repo.getExec(exec)
	w := repo.filter(filter)
	query := `SELECT ` + strings.Join(eventCols, ", ") + ` FROM event` + w.String() + orderBy(ordering, "start_date ASC")
	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		w.args = append(w.args, filter.Limit)
	}
	q, args, err := w.build(exe, query)
	if err != nil {
		return nil, err
	}

	var rows []eventRow
	if err = exe.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying events")
	}
	events := make([]event.Event, 0, len(rows))
	for _, r := range rows {
		events = append(events, eventFromRow(r))
	}
	return events, nil
}

func (repo eventRepository) CountEvents(ctx context.Context, filter *event.QueryFilter, exec ...core.DBExecutor) (int, error) {
	exe := repo.getExec(exec)
	w := repo.filter(filter)
	q, args, err := w.build(exe, `SELECT COUNT(*) FROM event`+w.String())
	if err != nil {
		return 0, err
	}

	var n int
	if err = exe.GetContext(ctx, &n, q, args...); err != nil {
		return 0, errors.Wrap(err, "counting events")
	}
	return n, nil
}

func (repo eventRepository) UpdateEvent(ctx context.Context, evt event.Event, exec ...core.DBExecutor) (event.Event, error) {
	row := eventToRow(evt)
	q := `UPDATE event SET
		title = :title, description = :description, location = :location, category = :category,
		start_date = :start_date, end_date = :end_date, image_url = :image_url, capacity = :capacity,
		waitlist_enabled = :waitlist_enabled, status = :status, published_at = :published_at,
		cancelled_at = :cancelled_at, updated_at = :updated_at
		WHERE id = :id`
	res, err := namedExec(ctx, repo.getExec(exec), q, row)
	if err != nil {
		return event.Event{}, errors.Wrap(err, "updating event")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return event.Event{}, event.ErrNotFound
	}
	return eventFromRow(row), nil
}

func (repo eventRepository) DeleteEvent(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if _, err := uuid.Parse(id); err != nil {
		return event.ErrNotFound
	}
	res, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM event WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting event")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return event.ErrNotFound
	}
	return nil
}

func (repo eventRepository) QueryCategories(ctx context.Context, statuses []string, exec ...core.DBExecutor) ([]string, error) {
	exe := repo.getExec(exec)
	var w whereClause
	if len(statuses) > 0 {
		w.add("status IN (?)", statuses)
	}
	q, args, err := w.build(exe, `SELECT DISTINCT category FROM event`+w.String()+` ORDER BY category`)
	if err != nil {
		return nil, err
	}

	categories := make([]string, 0, len(event.Categories))
	if err = exe.SelectContext(ctx, &categories, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying categories")
	}
	return categories, nil
}

func (repo eventRepository) ArchiveEvents(ctx context.Context, endedBefore time.Time, exec ...core.DBExecutor) (int, error) {
	res, err := repo.getExec(exec).ExecContext(ctx,
		`UPDATE event SET status = $1, updated_at = $2 WHERE status IN ($3, $4) AND end_date < $2`,
		event.StatusArchived, endedBefore.UTC(), event.StatusPublished, event.StatusCancelled,
	)
	if err != nil {
		return 0, errors.Wrap(err, "archiving events")
	}
	n, err := res.RowsAffected()
	return int(n), errors.Wrap(err, "archiving events")
}
