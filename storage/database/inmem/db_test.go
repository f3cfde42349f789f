package inmemdb

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/an-shikaSingh/campus-connect-V0/core"
	"github.com/an-shikaSingh/campus-connect-V0/core/event"
	"github.com/an-shikaSingh/campus-connect-V0/core/user"
)

func TestDB_WithinTx_rollback(t *testing.T) {
	db := Open()
	users := NewUserRepository(db)
	events := NewEventRepository(db)
	ctx := context.Background()
	errRollback := errors.New("rollback")

	started := make(chan struct{})
	written := make(chan struct{})
	go func() {
		<-started
		_, err := users.CreateUser(ctx, user.User{Email: "ada@test.com", UserType: user.TypeStudent})
		assert.NoError(t, err)
		close(written)
	}()

	err := db.WithinTx(ctx, func(exec core.DBExecutor) error {
		_, err := events.CreateEvent(ctx, event.Event{Title: "Rolled back"}, exec)
		require.NoError(t, err)
		close(started)

		// the write outside of the transaction waits for it
		select {
		case <-written:
			t.Error("user written while the transaction was running")
		case <-time.After(50 * time.Millisecond):
		}
		return errRollback
	})
	assert.Equal(t, errRollback, err)

	select {
	case <-written:
	case <-time.After(time.Second):
		t.Fatal("user never written")
	}

	n, err := users.CountUsers(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = events.CountEvents(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDB_WithinTx_commit(t *testing.T) {
	db := Open()
	events := NewEventRepository(db)
	ctx := context.Background()

	err := db.WithinTx(ctx, func(exec core.DBExecutor) error {
		evt, err := events.CreateEvent(ctx, event.Event{Title: "Kept"}, exec)
		if err != nil {
			return err
		}
		evt.Title = "Kept, renamed"
		_, err = events.UpdateEvent(ctx, evt, exec)
		return err
	})
	require.NoError(t, err)

	got, err := events.QueryEvents(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Kept, renamed", got[0].Title)
}
