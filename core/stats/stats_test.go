package stats_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/an-shikaSingh/campus-connect-V0/core/event"
	"github.com/an-shikaSingh/campus-connect-V0/core/registration"
	"github.com/an-shikaSingh/campus-connect-V0/core/user"
	"github.com/an-shikaSingh/campus-connect-V0/testutil"
)

func TestService_Overview(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()

	ov, err := env.Stats.Overview(ctx)
	require.NoError(t, err)
	assert.Zero(t, ov.TotalEvents)
	assert.NotNil(t, ov.TopEvents)

	env.CreateUser(t, user.TypeAdmin)
	organizer := env.CreateUser(t, user.TypeOrganizer)
	ada := env.CreateUser(t, user.TypeStudent)
	bob := env.CreateUser(t, user.TypeStudent)

	popular := env.CreateEvent(t, organizer, testutil.WithTitle("Hackathon"), testutil.StartingIn(72*time.Hour))
	quiet := env.CreateEvent(t, organizer, testutil.WithTitle("Book club"))
	env.CreateEvent(t, organizer, testutil.Draft())
	cancelled := env.CreateEvent(t, organizer)

	for _, reg := range []struct {
		usr user.User
		evt event.Event
	}{{ada, popular}, {bob, popular}, {ada, quiet}, {ada, cancelled}} {
		_, err = env.Registrations.Register(ctx, reg.usr, reg.evt.ID)
		require.NoError(t, err)
	}
	_, err = env.Events.Transition(ctx, cancelled.ID, event.StatusCancelled, organizer)
	require.NoError(t, err)
	_, err = env.Registrations.Unregister(ctx, bob, popular.ID)
	require.NoError(t, err)

	ov, err = env.Stats.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, ov.TotalEvents)
	assert.Equal(t, map[string]int{event.StatusPublished: 2, event.StatusDraft: 1, event.StatusCancelled: 1}, ov.EventsByStatus)
	assert.Equal(t, 2, ov.UpcomingEvents)
	assert.Equal(t, 4, ov.TotalUsers)
	assert.Equal(t, 2, ov.UsersByType[user.TypeStudent])
	assert.Equal(t, 4, ov.TotalRegistrations)
	assert.Equal(t, 3, ov.RegistrationsByStatus[registration.StatusConfirmed])
	assert.Equal(t, 1, ov.RegistrationsByStatus[registration.StatusCancelled])

	require.Len(t, ov.TopEvents, 2)
	// equal counts: the event starting first comes first
	assert.Equal(t, quiet.ID, ov.TopEvents[0].EventID)
	assert.Equal(t, 1, ov.TopEvents[0].Confirmed)
	assert.Equal(t, "Hackathon", ov.TopEvents[1].Title)
}

func TestService_Dashboard(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	organizer := env.CreateUser(t, user.TypeOrganizer)
	ada := env.CreateUser(t, user.TypeStudent)

	db, err := env.Stats.Dashboard(ctx, ada.ID)
	require.NoError(t, err)
	assert.NotNil(t, db.Registrations)
	assert.Zero(t, db.ActiveRegistrations)

	soon := env.CreateEvent(t, organizer, testutil.StartingIn(time.Hour))
	later := env.CreateEvent(t, organizer, testutil.StartingIn(72*time.Hour))
	env.CreateEvent(t, organizer)
	for _, evt := range []event.Event{soon, later} {
		_, err = env.Registrations.Register(ctx, ada, evt.ID)
		require.NoError(t, err)
	}

	testutil.MockNow(t, soon.StartDate.Add(time.Minute))
	db, err = env.Stats.Dashboard(ctx, ada.ID)
	require.NoError(t, err)
	assert.Len(t, db.Registrations, 2)
	assert.Equal(t, 2, db.ActiveRegistrations)
	assert.Equal(t, 1, db.UpcomingRegistered)
	assert.Equal(t, 2, db.UpcomingEvents)
}
