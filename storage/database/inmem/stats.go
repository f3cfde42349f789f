package inmemdb

import (
	"context"
	"sort"

	"github.com/an-shikaSingh/campus-connect-V0/core"
	"github.com/an-shikaSingh/campus-connect-V0/core/event"
	"github.com/an-shikaSingh/campus-connect-V0/core/registration"
	"github.com/an-shikaSingh/campus-connect-V0/core/stats"
)

type statsRepository struct {
	db *DB
}

var _ stats.Repository = (*statsRepository)(nil) // interface compliance check

func NewStatsRepository(db *DB) *statsRepository {
	return &statsRepository{db: db}
}

func (repo *statsRepository) CountEventsByStatus(_ context.Context, _ ...core.DBExecutor) (map[string]int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	counts := make(map[string]int)
	for _, evt := range repo.db.t.events {
		counts[evt.Status]++
	}
	return counts, nil
}

func (repo *statsRepository) CountUsersByType(_ context.Context, _ ...core.DBExecutor) (map[string]int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	counts := make(map[string]int)
	for _, usr := range repo.db.t.users {
		counts[usr.UserType]++
	}
	return counts, nil
}

func (repo *statsRepository) CountRegistrationsByStatus(_ context.Context, _ ...core.DBExecutor) (map[string]int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	counts := make(map[string]int)
	for _, reg := range repo.db.t.registrations {
		counts[reg.Status]++
	}
	return counts, nil
}

func (repo *statsRepository) TopEvents(_ context.Context, limit int, _ ...core.DBExecutor) ([]stats.EventCount, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	confirmed := make(map[string]int)
	for _, reg := range repo.db.t.registrations {
		if reg.Status == registration.StatusConfirmed {
			confirmed[reg.EventID]++
		}
	}

	top := make([]stats.EventCount, 0, len(confirmed))
	for id, n := range confirmed {
		evt, ok := repo.db.t.events[id]
		if !ok || evt.Status != event.StatusPublished {
			continue
		}
		top = append(top, stats.EventCount{EventID: evt.ID, Title: evt.Title, StartDate: evt.StartDate, Confirmed: n})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Confirmed != top[j].Confirmed {
			return top[i].Confirmed > top[j].Confirmed
		}
		return top[i].StartDate.Before(top[j].StartDate)
	})
	if limit > 0 && len(top) > limit {
		top = top[:limit]
	}
	return top, nil
}
