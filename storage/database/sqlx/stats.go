package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/an-shikaSingh/campus-connect-V0/core"
	"github.com/an-shikaSingh/campus-connect-V0/core/event"
	"github.com/an-shikaSingh/campus-connect-V0/core/registration"
	"github.com/an-shikaSingh/campus-connect-V0/core/stats"
)

type statsRepository struct {
	baseRepository
}

var _ stats.Repository = (*statsRepository)(nil) // interface compliance check

func NewStatsRepository(exec core.DBExecutor) *statsRepository {
	return &statsRepository{baseRepository{exec: exec}}
}

func (repo statsRepository) countBy(ctx context.Context, q string, exec []core.DBExecutor) (map[string]int, error) {
	var rows []countRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q); err != nil {
		return nil, err
	}
	return countMap(rows), nil
}

func (repo statsRepository) CountEventsByStatus(ctx context.Context, exec ...core.DBExecutor) (map[string]int, error) {
	counts, err := repo.countBy(ctx, `SELECT status AS key, COUNT(*) AS count FROM event GROUP BY status`, exec)
	return counts, errors.Wrap(err, "counting events by status")
}

func (repo statsRepository) CountUsersByType(ctx context.Context, exec ...core.DBExecutor) (map[string]int, error) {
	counts, err := repo.countBy(ctx, `SELECT user_type AS key, COUNT(*) AS count FROM "user" GROUP BY user_type`, exec)
	return counts, errors.Wrap(err, "counting users by type")
}

func (repo statsRepository) CountRegistrationsByStatus(ctx context.Context, exec ...core.DBExecutor) (map[string]int, error) {
	counts, err := repo.countBy(ctx, `SELECT status AS key, COUNT(*) AS count FROM registration GROUP BY status`, exec)
	return counts, errors.Wrap(err, "counting registrations by status")
}

func (repo statsRepository) TopEvents(ctx context.Context, limit int, exec ...core.DBExecutor) ([]stats.EventCount, error) {
	var rows []struct {
		EventID   string    `db:"event_id"`
		Title     string    `db:"title"`
		StartDate time.Time `db:"start_date"`
		Confirmed int       `db:"confirmed"`
	}
	q := `SELECT e.id AS event_id, e.title, e.start_date, COUNT(r.id) AS confirmed
		FROM event e JOIN registration r ON r.event_id = e.id AND r.status = $1
		WHERE e.status = $2
		GROUP BY e.id, e.title, e.start_date
		ORDER BY confirmed DESC, e.start_date
		LIMIT $3`
	err := repo.getExec(exec).SelectContext(ctx, &rows, q, registration.StatusConfirmed, event.StatusPublished, limit)
	if err != nil {
		return nil, errors.Wrap(err, "finding top events")
	}

	top := make([]stats.EventCount, 0, len(rows))
	for _, r := range rows {
		top = append(top, stats.EventCount{EventID: r.EventID, Title: r.Title, StartDate: r.StartDate.UTC(), Confirmed: r.Confirmed})
	}
	return top, nil
}
