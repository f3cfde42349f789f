package inmemdb

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/an-shikaSingh/campus-connect-V0/core"
	"github.com/an-shikaSingh/campus-connect-V0/core/event"
	"github.com/an-shikaSingh/campus-connect-V0/core/notification"
	"github.com/an-shikaSingh/campus-connect-V0/core/registration"
	"github.com/an-shikaSingh/campus-connect-V0/core/user"
)

type (
	DB struct {
		mutex sync.RWMutex
		txMu  sync.Mutex // one transaction at a time
		t     *tables
	}

	tables struct {
		users         map[string]user.User
		events        map[string]event.Event
		registrations map[string]registration.Registration
		notifications map[string]notification.Notification
		deliveries    map[string]notification.Delivery
	}
)

var _ core.Transactor = (*DB)(nil) // interface compliance check

func Open() *DB {
	return &DB{t: newTables()}
}

func newTables() *tables {
	return &tables{
		users:         make(map[string]user.User),
		events:        make(map[string]event.Event),
		registrations: make(map[string]registration.Registration),
		notifications: make(map[string]notification.Notification),
		deliveries:    make(map[string]notification.Delivery),
	}
}

func (t *tables) clone() *tables {
	c := newTables()
	for k, v := range t.users {
		c.users[k] = v
	}
	for k, v := range t.events {
		c.events[k] = v
	}
	for k, v := range t.registrations {
		c.registrations[k] = v
	}
	for k, v := range t.notifications {
		c.notifications[k] = v
	}
	for k, v := range t.deliveries {
		c.deliveries[k] = v
	}
	return c
}

// txExec marks the repository calls made within DB.WithinTx.
type txExec struct {
	core.DBExecutor
}

// WithinTx serializes transactions and restores the tables as they were before fn when it fails.
func (db *DB) WithinTx(ctx context.Context, fn func(exec core.DBExecutor) error) (err error) {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	if err = ctx.Err(); err != nil {
		return err
	}

	db.mutex.RLock()
	snapshot := db.t.clone()
	db.mutex.RUnlock()

	defer func() {
		if p := recover(); p != nil {
			db.restore(snapshot)
			panic(p)
		}
		if err != nil {
			db.restore(snapshot)
		}
	}()
	return fn(txExec{})
}

// lockWrite locks the tables for writing and returns the unlock func.
// Writes outside of a transaction wait for the running one, so its rollback cannot undo them.
func (db *DB) lockWrite(exec []core.DBExecutor) (unlock func()) {
	inTx := false
	if len(exec) > 0 {
		_, inTx = exec[0].(txExec)
	}
	if !inTx {
		db.txMu.Lock()
	}
	db.mutex.Lock()
	return func() {
		db.mutex.Unlock()
		if !inTx {
			db.txMu.Unlock()
		}
	}
}

func (db *DB) restore(t *tables) {
	db.mutex.Lock()
	db.t = t
	db.mutex.Unlock()
}

// Flush empties every table.
func (db *DB) Flush() {
	db.restore(newTables())
}

// compareFuncs maps a column name to a three-way comparison of T values.
type compareFuncs[T any] map[string]func(a, b T) int

// sortBy sorts items by ordering, falling back to dflt when no ordering field is known.
func sortBy[T any](items []T, ordering []core.DBOrdering, dflt core.DBOrdering, cmps compareFuncs[T]) {
	valid := make([]core.DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		if _, ok := cmps[ord.Field]; ok {
			valid = append(valid, ord)
		}
	}
	if len(valid) == 0 {
		valid = append(valid, dflt)
	}

	sort.SliceStable(items, func(i, j int) bool {
		for _, ord := range valid {
			c := cmps[ord.Field](items[i], items[j])
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// containsFold is a case-insensitive ILIKE '%substr%'.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func inTimeRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && t.After(to) {
		return false
	}
	return true
}
