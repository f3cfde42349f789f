package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/an-shikaSingh/campus-connect-V0/core"
	"github.com/an-shikaSingh/campus-connect-V0/core/event"
)

var eventComparisons = compareFuncs[event.Event]{
	"title":      func(a, b event.Event) int { return strings.Compare(a.Title, b.Title) },
	"category":   func(a, b event.Event) int { return strings.Compare(a.Category, b.Category) },
	"start_date": func(a, b event.Event) int { return compareTime(a.StartDate, b.StartDate) },
	"end_date":   func(a, b event.Event) int { return compareTime(a.EndDate, b.EndDate) },
	"capacity":   func(a, b event.Event) int { return compareInt(a.Capacity, b.Capacity) },
	"created_at": func(a, b event.Event) int { return compareTime(a.CreatedAt, b.CreatedAt) },
}

type eventRepository struct {
	db *DB
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(db *DB) *eventRepository {
	return &eventRepository{db: db}
}

func (repo *eventRepository) CreateEvent(_ context.Context, evt event.Event, exec ...core.DBExecutor) (event.Event, error) {
	defer repo.db.lockWrite(exec)()

	evt.ID = uuid.New().String()
	repo.db.t.events[evt.ID] = evt
	return evt, nil
}

func (repo *eventRepository) GetEvent(_ context.Context, id string, _ ...core.DBExecutor) (event.Event, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if evt, ok := repo.db.t.events[id]; ok {
		return evt, nil
	}
	return event.Event{}, event.ErrNotFound
}

// LockEvent is GetEvent: transactions are already serialized by DB.WithinTx.
func (repo *eventRepository) LockEvent(ctx context.Context, id string, exec ...core.DBExecutor) (event.Event, error) {
	return repo.GetEvent(ctx, id, exec...)
}

func matchEvent(evt event.Event, filter *event.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.Search != "" && !containsFold(evt.Title, filter.Search) && !containsFold(evt.Description, filter.Search) {
		return false
	}
	if filter.Category != "" && evt.Category != filter.Category {
		return false
	}
	if len(filter.Statuses) > 0 && !core.ContainsString(filter.Statuses, evt.Status) {
		return false
	}
	if filter.OrganizerID != "" && evt.OrganizerID != filter.OrganizerID {
		return false
	}
	if filter.Upcoming && !evt.StartDate.After(filter.Now) {
		return false
	}
	return inTimeRange(evt.StartDate, filter.StartFrom, filter.StartTo)
}

func (repo *eventRepository) QueryEvents(_ context.Context, filter *event.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]event.Event, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	events := make([]event.Event, 0, len(repo.db.t.events))
	for _, evt := range repo.db.t.events {
		if matchEvent(evt, filter) {
			events = append(events, evt)
		}
	}
	sortBy(events, ordering, core.DBOrdering{Field: "start_date", Ascending: true}, eventComparisons)
	if filter != nil && filter.Limit > 0 && len(events) > filter.Limit {
		events = events[:filter.Limit]
	}
	return events, nil
}

func (repo *eventRepository) CountEvents(_ context.Context, filter *event.QueryFilter, _ ...core.DBExecutor) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var n int
	for _, evt := range repo.db.t.events {
		if matchEvent(evt, filter) {
			n++
		}
	}
	return n, nil
}

func (repo *eventRepository) UpdateEvent(_ context.Context, evt event.Event, exec ...core.DBExecutor) (event.Event, error) {
	defer repo.db.lockWrite(exec)()

	orig, ok := repo.db.t.events[evt.ID]
	if !ok {
		return event.Event{}, event.ErrNotFound
	}
	evt.OrganizerID = orig.OrganizerID
	evt.CreatedAt = orig.CreatedAt
	repo.db.t.events[evt.ID] = evt
	return evt, nil
}

func (repo *eventRepository) DeleteEvent(_ context.Context, id string, exec ...core.DBExecutor) error {
	defer repo.db.lockWrite(exec)()

	if _, ok := repo.db.t.events[id]; !ok {
		return event.ErrNotFound
	}
	delete(repo.db.t.events, id)
	for rid, reg := range repo.db.t.registrations {
		if reg.EventID == id {
			delete(repo.db.t.registrations, rid)
		}
	}
	return nil
}

func (repo *eventRepository) QueryCategories(_ context.Context, statuses []string, _ ...core.DBExecutor) ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	seen := make(map[string]bool)
	categories := make([]string, 0, len(event.Categories))
	for _, evt := range repo.db.t.events {
		if len(statuses) > 0 && !core.ContainsString(statuses, evt.Status) {
			continue
		}
		if !seen[evt.Category] {
			seen[evt.Category] = true
			categories = append(categories, evt.Category)
		}
	}
	sort.Strings(categories)
	return categories, nil
}

func (repo *eventRepository) ArchiveEvents(_ context.Context, endedBefore time.Time, exec ...core.DBExecutor) (int, error) {
	defer repo.db.lockWrite(exec)()

	var n int
	for id, evt := range repo.db.t.events {
		if (evt.Status == event.StatusPublished || evt.Status == event.StatusCancelled) && evt.EndDate.Before(endedBefore) {
			evt.Status = event.StatusArchived
			evt.UpdatedAt = endedBefore
			repo.db.t.events[id] = evt
			n++
		}
	}
	return n, nil
}
