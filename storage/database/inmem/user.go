package inmemdb

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/an-shikaSingh/campus-connect-V0/core"
	"github.com/an-shikaSingh/campus-connect-V0/core/user"
)

var userComparisons = compareFuncs[user.User]{
	"first_name": func(a, b user.User) int { return strings.Compare(a.FirstName, b.FirstName) },
	"last_name":  func(a, b user.User) int { return strings.Compare(a.LastName, b.LastName) },
	"email":      func(a, b user.User) int { return strings.Compare(a.Email, b.Email) },
	"user_type":  func(a, b user.User) int { return strings.Compare(a.UserType, b.UserType) },
	"created_at": func(a, b user.User) int { return compareTime(a.CreatedAt, b.CreatedAt) },
	"last_login": func(a, b user.User) int { return compareTime(a.LastLogin, b.LastLogin) },
}

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckEmailUniqueness(_ context.Context, email string, excludedUsers []user.User, _ ...core.DBExecutor) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	excluded := make(map[string]bool, len(excludedUsers))
	for _, u := range excludedUsers {
		excluded[u.ID] = true
	}
	for _, usr := range repo.db.t.users {
		if usr.Email == email && !excluded[usr.ID] {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	defer repo.db.lockWrite(exec)()

	for _, u := range repo.db.t.users {
		if u.Email == usr.Email {
			return user.User{}, user.ErrEmailExists
		}
	}
	usr.ID = uuid.New().String()
	if usr.IsActive == nil {
		usr.SetActive(true)
	}
	repo.db.t.users[usr.ID] = usr
	return usr, nil
}

func matchUser(usr user.User, filter *user.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.Search != "" &&
		!containsFold(usr.FirstName, filter.Search) &&
		!containsFold(usr.LastName, filter.Search) &&
		!containsFold(usr.Email, filter.Search) {
		return false
	}
	if len(filter.UserTypes) > 0 && !core.ContainsString(filter.UserTypes, usr.UserType) {
		return false
	}
	if filter.IsActive != nil && usr.Active() != *filter.IsActive {
		return false
	}
	return inTimeRange(usr.CreatedAt, filter.CreatedFrom, filter.CreatedTo)
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	users := make([]user.User, 0, len(repo.db.t.users))
	for _, usr := range repo.db.t.users {
		if matchUser(usr, filter) {
			users = append(users, usr)
		}
	}
	sortBy(users, ordering, core.DBOrdering{Field: "created_at"}, userComparisons)
	return users, nil
}

func (repo *userRepository) CountUsers(_ context.Context, filter *user.QueryFilter, _ ...core.DBExecutor) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var n int
	for _, usr := range repo.db.t.users {
		if matchUser(usr, filter) {
			n++
		}
	}
	return n, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter, _ ...core.DBExecutor) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	switch {
	case filter.ID != "":
		if usr, ok := repo.db.t.users[filter.ID]; ok {
			return usr, nil
		}
	case filter.Email != "":
		for _, usr := range repo.db.t.users {
			if usr.Email == filter.Email {
				return usr, nil
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	defer repo.db.lockWrite(exec)()

	if _, ok := repo.db.t.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	repo.db.t.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(_ context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	defer repo.db.lockWrite(exec)()

	// ON DELETE RESTRICT
	for _, evt := range repo.db.t.events {
		if core.ContainsString(ids, evt.OrganizerID) {
			return 0, user.ErrOrganizesEvents
		}
	}

	var n int
	for _, id := range ids {
		if _, ok := repo.db.t.users[id]; !ok {
			continue
		}
		delete(repo.db.t.users, id)
		n++

		// ON DELETE CASCADE
		for rid, reg := range repo.db.t.registrations {
			if reg.UserID == id {
				delete(repo.db.t.registrations, rid)
			}
		}
		for nid, notif := range repo.db.t.notifications {
			if notif.UserID == id {
				delete(repo.db.t.notifications, nid)
				repo.db.deleteDeliveries(nid)
			}
		}
	}
	return n, nil
}
