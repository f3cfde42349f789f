package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/an-shikaSingh/campus-connect-V0/core"
	"github.com/an-shikaSingh/campus-connect-V0/core/registration"
)

var registrationComparisons = compareFuncs[registration.Registration]{
	"created_at": func(a, b registration.Registration) int { return compareTime(a.CreatedAt, b.CreatedAt) },
	"updated_at": func(a, b registration.Registration) int { return compareTime(a.UpdatedAt, b.UpdatedAt) },
}

type registrationRepository struct {
	db *DB
}

var _ registration.Repository = (*registrationRepository)(nil) // interface compliance check

func NewRegistrationRepository(db *DB) *registrationRepository {
	return &registrationRepository{db: db}
}

// queueOrder sorts regs the way the waitlist is served: oldest first.
func queueOrder(regs []registration.Registration) {
	sort.Slice(regs, func(i, j int) bool {
		if !regs[i].CreatedAt.Equal(regs[j].CreatedAt) {
			return regs[i].CreatedAt.Before(regs[j].CreatedAt)
		}
		return regs[i].ID < regs[j].ID
	})
}

// eventRegistrations returns the registrations to eventID having one of statuses, oldest first.
// The caller holds the lock.
func (repo *registrationRepository) eventRegistrations(eventID string, statuses ...string) []registration.Registration {
	var regs []registration.Registration
	for _, reg := range repo.db.t.registrations {
		if reg.EventID == eventID && core.ContainsString(statuses, reg.Status) {
			regs = append(regs, reg)
		}
	}
	queueOrder(regs)
	return regs
}

func (repo *registrationRepository) CountEventRegistrations(_ context.Context, eventID string, _ ...core.DBExecutor) (int, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var confirmed, waitlisted int
	for _, reg := range repo.db.t.registrations {
		if reg.EventID != eventID {
			continue
		}
		switch reg.Status {
		case registration.StatusConfirmed:
			confirmed++
		case registration.StatusWaitlisted:
			waitlisted++
		}
	}
	return confirmed, waitlisted, nil
}

func (repo *registrationRepository) EventRegistrantIDs(_ context.Context, eventID string, _ ...core.DBExecutor) ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	regs := repo.eventRegistrations(eventID, registration.ActiveStatuses...)
	ids := make([]string, 0, len(regs))
	for _, reg := range regs {
		ids = append(ids, reg.UserID)
	}
	return ids, nil
}

func (repo *registrationRepository) GetRegistration(_ context.Context, userID, eventID string, _ ...core.DBExecutor) (registration.Registration, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, reg := range repo.db.t.registrations {
		if reg.UserID == userID && reg.EventID == eventID {
			return reg, nil
		}
	}
	return registration.Registration{}, registration.ErrNotFound
}

func (repo *registrationRepository) CreateRegistration(_ context.Context, reg registration.Registration, exec ...core.DBExecutor) (registration.Registration, error) {
	defer repo.db.lockWrite(exec)()

	// registration_user_event_key
	for _, r := range repo.db.t.registrations {
		if r.UserID == reg.UserID && r.EventID == reg.EventID {
			return registration.Registration{}, registration.ErrAlreadyRegistered
		}
	}
	reg.ID = uuid.New().String()
	repo.db.t.registrations[reg.ID] = reg
	return reg, nil
}

func (repo *registrationRepository) UpdateRegistration(_ context.Context, reg registration.Registration, exec ...core.DBExecutor) (registration.Registration, error) {
	defer repo.db.lockWrite(exec)()

	orig, ok := repo.db.t.registrations[reg.ID]
	if !ok {
		return registration.Registration{}, registration.ErrNotFound
	}
	reg.UserID = orig.UserID
	reg.EventID = orig.EventID
	repo.db.t.registrations[reg.ID] = reg
	return reg, nil
}

func (repo *registrationRepository) NextWaitlisted(_ context.Context, eventID string, _ ...core.DBExecutor) (registration.Registration, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if regs := repo.eventRegistrations(eventID, registration.StatusWaitlisted); len(regs) > 0 {
		return regs[0], nil
	}
	return registration.Registration{}, registration.ErrNotFound
}

func (repo *registrationRepository) WaitlistPosition(_ context.Context, reg registration.Registration, _ ...core.DBExecutor) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for i, r := range repo.eventRegistrations(reg.EventID, registration.StatusWaitlisted) {
		if r.ID == reg.ID {
			return i + 1, nil
		}
	}
	return 0, nil
}

func matchRegistration(reg registration.Registration, filter *registration.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.UserID != "" && reg.UserID != filter.UserID {
		return false
	}
	if filter.EventID != "" && reg.EventID != filter.EventID {
		return false
	}
	if len(filter.Statuses) > 0 && !core.ContainsString(filter.Statuses, reg.Status) {
		return false
	}
	return inTimeRange(reg.CreatedAt, filter.CreatedFrom, filter.CreatedTo)
}

func (repo *registrationRepository) QueryRegistrations(_ context.Context, filter *registration.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]registration.Registration, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	regs := make([]registration.Registration, 0)
	for _, reg := range repo.db.t.registrations {
		if matchRegistration(reg, filter) {
			regs = append(regs, reg)
		}
	}
	sortBy(regs, ordering, core.DBOrdering{Field: "created_at"}, registrationComparisons)
	return regs, nil
}

func (repo *registrationRepository) CountRegistrations(_ context.Context, filter *registration.QueryFilter, _ ...core.DBExecutor) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var n int
	for _, reg := range repo.db.t.registrations {
		if matchRegistration(reg, filter) {
			n++
		}
	}
	return n, nil
}

func (repo *registrationRepository) ListUserRegistrations(_ context.Context, userID string, _ ...core.DBExecutor) ([]registration.WithEvent, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var regs []registration.Registration
	for _, reg := range repo.db.t.registrations {
		if reg.UserID == userID && reg.Active() {
			regs = append(regs, reg)
		}
	}
	sortBy(regs, nil, core.DBOrdering{Field: "created_at"}, registrationComparisons)

	out := make([]registration.WithEvent, 0, len(regs))
	for _, reg := range regs {
		if evt, ok := repo.db.t.events[reg.EventID]; ok {
			out = append(out, registration.WithEvent{Registration: reg, Event: evt})
		}
	}
	return out, nil
}

func (repo *registrationRepository) ListEventRegistrations(_ context.Context, eventID string, _ ...core.DBExecutor) ([]registration.WithUser, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	regs := repo.eventRegistrations(eventID, registration.ActiveStatuses...)
	out := make([]registration.WithUser, 0, len(regs))
	for _, reg := range regs {
		if usr, ok := repo.db.t.users[reg.UserID]; ok {
			out = append(out, registration.WithUser{Registration: reg, User: usr.Public(), Email: usr.Email})
		}
	}
	return out, nil
}
