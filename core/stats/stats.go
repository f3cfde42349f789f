package stats

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/an-shikaSingh/campus-connect-V0/core"
	"github.com/an-shikaSingh/campus-connect-V0/core/event"
	"github.com/an-shikaSingh/campus-connect-V0/core/registration"
)

const topEventsLimit = 5

type (
	// EventCount is an event along with its number of confirmed registrations.
	EventCount struct {
		EventID   string    `json:"event_id"`
		Title     string    `json:"title"`
		StartDate time.Time `json:"start_date"`
		Confirmed int       `json:"confirmed"`
	}

	Overview struct {
		TotalEvents           int            `json:"total_events"`
		EventsByStatus        map[string]int `json:"events_by_status"`
		UpcomingEvents        int            `json:"upcoming_events"`
		TotalUsers            int            `json:"total_users"`
		UsersByType           map[string]int `json:"users_by_type"`
		TotalRegistrations    int            `json:"total_registrations"`
		RegistrationsByStatus map[string]int `json:"registrations_by_status"`
		TopEvents             []EventCount   `json:"top_events"`
	}

	Dashboard struct {
		Registrations       []registration.WithEvent `json:"registrations"`
		ActiveRegistrations int                      `json:"active_registrations"`
		UpcomingRegistered  int                      `json:"upcoming_registered"`
		UpcomingEvents      int                      `json:"upcoming_events"`
	}

	Repository interface {
		CountEventsByStatus(ctx context.Context, exec ...core.DBExecutor) (map[string]int, error)
		CountUsersByType(ctx context.Context, exec ...core.DBExecutor) (map[string]int, error)
		CountRegistrationsByStatus(ctx context.Context, exec ...core.DBExecutor) (map[string]int, error)
		// TopEvents returns the published events with the most confirmed registrations.
		TopEvents(ctx context.Context, limit int, exec ...core.DBExecutor) ([]EventCount, error)
	}

	Service interface {
		Overview(ctx context.Context) (Overview, error)
		Dashboard(ctx context.Context, userID string) (Dashboard, error)
	}

	service struct {
		repo   Repository
		events event.Service
		regs   registration.Service
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository, events event.Service, regs registration.Service) Service {
	return &service{repo: repo, events: events, regs: regs}
}

func (svc *service) Overview(ctx context.Context) (Overview, error) {
	var (
		ov  Overview
		err error
	)

	if ov.EventsByStatus, err = svc.repo.CountEventsByStatus(ctx); err != nil {
		return Overview{}, errors.Wrap(err, "counting events")
	}
	ov.TotalEvents = sum(ov.EventsByStatus)

	if ov.UsersByType, err = svc.repo.CountUsersByType(ctx); err != nil {
		return Overview{}, errors.Wrap(err, "counting users")
	}
	ov.TotalUsers = sum(ov.UsersByType)

	if ov.RegistrationsByStatus, err = svc.repo.CountRegistrationsByStatus(ctx); err != nil {
		return Overview{}, errors.Wrap(err, "counting registrations")
	}
	ov.TotalRegistrations = sum(ov.RegistrationsByStatus)

	if ov.UpcomingEvents, err = svc.countUpcoming(ctx); err != nil {
		return Overview{}, err
	}

	if ov.TopEvents, err = svc.repo.TopEvents(ctx, topEventsLimit); err != nil {
		return Overview{}, errors.Wrap(err, "finding top events")
	}
	if ov.TopEvents == nil {
		ov.TopEvents = []EventCount{}
	}
	return ov, nil
}

func (svc *service) Dashboard(ctx context.Context, userID string) (Dashboard, error) {
	regs, err := svc.regs.ListForUser(ctx, userID)
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "listing registrations")
	}
	if regs == nil {
		regs = []registration.WithEvent{}
	}

	now := core.NowFunc()
	db := Dashboard{Registrations: regs}
	for _, r := range regs {
		if !r.Active() {
			continue
		}
		db.ActiveRegistrations++
		if r.Event.IsPublished() && !r.Event.HasStarted(now) {
			db.UpcomingRegistered++
		}
	}

	if db.UpcomingEvents, err = svc.countUpcoming(ctx); err != nil {
		return Dashboard{}, err
	}
	return db, nil
}

func (svc *service) countUpcoming(ctx context.Context) (int, error) {
	n, err := svc.events.Count(ctx, &event.QueryFilter{Statuses: []string{event.StatusPublished}, Upcoming: true})
	return n, errors.Wrap(err, "counting upcoming events")
}

func sum(counts map[string]int) int {
	var total int
	for _, n := range counts {
		total += n
	}
	return total
}
