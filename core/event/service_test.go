package event_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/an-shikaSingh/campus-connect-V0/core"
	"github.com/an-shikaSingh/campus-connect-V0/core/event"
	"github.com/an-shikaSingh/campus-connect-V0/core/notification"
	"github.com/an-shikaSingh/campus-connect-V0/core/user"
	"github.com/an-shikaSingh/campus-connect-V0/testutil"
)

func TestService_Create(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	student := env.CreateUser(t, user.TypeStudent)
	organizer := env.CreateUser(t, user.TypeOrganizer)

	ne := event.NewEvent{
		Title:     "Career fair",
		Category:  "Career",
		StartDate: core.NowFunc().Add(24 * time.Hour),
		EndDate:   core.NowFunc().Add(26 * time.Hour),
	}
	_, err := env.Events.Create(ctx, ne, student)
	assert.Equal(t, event.ErrForbidden, err)

	evt, err := env.Events.Create(ctx, ne, organizer)
	require.NoError(t, err)
	assert.Equal(t, event.StatusDraft, evt.Status)
	assert.Equal(t, organizer.ID, evt.OrganizerID)
	assert.True(t, evt.PublishedAt.IsZero())

	ne.Publish = true
	evt, err = env.Events.Create(ctx, ne, organizer)
	require.NoError(t, err)
	assert.Equal(t, event.StatusPublished, evt.Status)
	assert.False(t, evt.PublishedAt.IsZero())
}

func TestService_Transition(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	admin := env.CreateUser(t, user.TypeAdmin)
	organizer := env.CreateUser(t, user.TypeOrganizer)
	other := env.CreateUser(t, user.TypeOrganizer)

	evt := env.CreateEvent(t, organizer, testutil.Draft())

	tests := []struct {
		name    string
		actor   user.User
		target  string
		wantErr error
		want    string
	}{
		{name: "other organizer", actor: other, target: event.StatusPublished, wantErr: event.ErrForbidden},
		{name: "draft to archived", actor: organizer, target: event.StatusArchived, wantErr: event.ErrInvalidTransition},
		{name: "publish", actor: organizer, target: event.StatusPublished, want: event.StatusPublished},
		{name: "publish twice", actor: organizer, target: event.StatusPublished, wantErr: event.ErrInvalidTransition},
		{name: "admin cancels", actor: admin, target: event.StatusCancelled, want: event.StatusCancelled},
		{name: "cancelled to published", actor: admin, target: event.StatusPublished, wantErr: event.ErrInvalidTransition},
		{name: "archive", actor: organizer, target: event.StatusArchived, want: event.StatusArchived},
		{name: "unknown target", actor: admin, target: "deleted", wantErr: event.ErrInvalidTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := env.Events.Transition(ctx, evt.ID, tt.target, tt.actor)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Status)
		})
	}
}

func TestService_Transition_publishStarted(t *testing.T) {
	env := testutil.NewEnv()
	organizer := env.CreateUser(t, user.TypeOrganizer)
	evt := env.CreateEvent(t, organizer, testutil.Draft(), testutil.StartingIn(time.Hour))

	testutil.MockNow(t, evt.StartDate.Add(time.Second))
	_, err := env.Events.Transition(context.Background(), evt.ID, event.StatusPublished, organizer)
	assert.Equal(t, event.ErrAlreadyStarted, errors.Cause(err))
}

func TestService_Transition_cancelNotifiesRegistrants(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	organizer := env.CreateUser(t, user.TypeOrganizer)
	ada := env.CreateUser(t, user.TypeStudent)
	bob := env.CreateUser(t, user.TypeStudent)
	evt := env.CreateEvent(t, organizer)

	now := time.Now().UTC()
	testutil.MockNow(t, now)
	_, err := env.Registrations.Register(ctx, ada, evt.ID)
	require.NoError(t, err)
	testutil.MockNow(t, now.Add(time.Minute))

	sub, cancel := env.Hub.Subscribe(ada.ID)
	defer cancel()

	_, err = env.Events.Transition(ctx, evt.ID, event.StatusCancelled, organizer)
	require.NoError(t, err)

	notifs, err := env.Notifications.List(ctx, ada.ID, notification.ListFilter{UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, notifs, 2)
	assert.Equal(t, notification.TypeEventCancelled, notifs[0].Type)
	assert.Equal(t, evt.ID, notifs[0].RelatedID)

	n, err := env.Notifications.UnreadCount(ctx, bob.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	env.Drain(t)
	var pushed []string
	for len(sub) > 0 {
		pushed = append(pushed, (<-sub).Type)
	}
	assert.ElementsMatch(t, []string{notification.TypeRegistrationConfirmed, notification.TypeEventCancelled}, pushed)
}

func TestService_Update(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	organizer := env.CreateUser(t, user.TypeOrganizer)
	other := env.CreateUser(t, user.TypeOrganizer)
	ada := env.CreateUser(t, user.TypeStudent)
	bob := env.CreateUser(t, user.TypeStudent)

	evt := env.CreateEvent(t, organizer, testutil.WithCapacity(5, false))
	now := time.Now().UTC()
	testutil.MockNow(t, now)
	for _, u := range []user.User{ada, bob} {
		_, err := env.Registrations.Register(ctx, u, evt.ID)
		require.NoError(t, err)
	}
	testutil.MockNow(t, now.Add(time.Minute))

	ue := event.UpdateEvent{
		Title:       "Advanced Go",
		Description: evt.Description,
		Location:    evt.Location,
		Category:    evt.Category,
		StartDate:   evt.StartDate,
		EndDate:     evt.EndDate,
	}

	_, err := env.Events.Update(ctx, evt.ID, ue, other)
	assert.Equal(t, event.ErrForbidden, errors.Cause(err))

	one := 1
	ue.Capacity = &one
	_, err = env.Events.Update(ctx, evt.ID, ue, organizer)
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "capacity", vErr.Fields[0].Field)

	two := 2
	ue.Capacity = &two
	updated, err := env.Events.Update(ctx, evt.ID, ue, organizer)
	require.NoError(t, err)
	assert.Equal(t, "Advanced Go", updated.Title)
	assert.Equal(t, 2, updated.Capacity)
	assert.Equal(t, organizer.ID, updated.OrganizerID)

	notifs, err := env.Notifications.List(ctx, bob.ID, notification.ListFilter{})
	require.NoError(t, err)
	require.NotEmpty(t, notifs)
	assert.Equal(t, notification.TypeEventUpdated, notifs[0].Type)

	_, err = env.Events.Transition(ctx, evt.ID, event.StatusCancelled, organizer)
	require.NoError(t, err)
	_, err = env.Events.Update(ctx, evt.ID, ue, organizer)
	assert.Equal(t, event.ErrNotEditable, errors.Cause(err))
}

func TestService_Delete(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	organizer := env.CreateUser(t, user.TypeOrganizer)

	published := env.CreateEvent(t, organizer)
	assert.Equal(t, event.ErrNotDraft, errors.Cause(env.Events.Delete(ctx, published.ID, organizer)))

	draft := env.CreateEvent(t, organizer, testutil.Draft())
	require.NoError(t, env.Events.Delete(ctx, draft.ID, organizer))
	_, err := env.Events.GetByID(ctx, draft.ID)
	assert.Equal(t, event.ErrNotFound, errors.Cause(err))
}

func TestService_Query(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	organizer := env.CreateUser(t, user.TypeOrganizer)

	env.CreateEvent(t, organizer, testutil.WithTitle("Go workshop"), testutil.StartingIn(72*time.Hour))
	env.CreateEvent(t, organizer, testutil.WithTitle("Football"), testutil.WithCategory("Sports"), testutil.StartingIn(24*time.Hour))
	env.CreateEvent(t, organizer, testutil.WithTitle("Networking night"), testutil.WithCategory("Networking"), testutil.StartingIn(48*time.Hour))
	env.CreateEvent(t, organizer, testutil.WithTitle("Secret draft"), testutil.WithCategory("Social"), testutil.Draft())

	published := []string{event.StatusPublished}
	tests := []struct {
		name   string
		filter *event.QueryFilter
		want   []string
	}{
		{name: "published by start date", filter: &event.QueryFilter{Statuses: published}, want: []string{"Football", "Networking night", "Go workshop"}},
		{name: "search", filter: &event.QueryFilter{Statuses: published, Search: "WORKSHOP"}, want: []string{"Go workshop"}},
		{name: "category", filter: &event.QueryFilter{Statuses: published, Category: "Sports"}, want: []string{"Football"}},
		{name: "limit", filter: &event.QueryFilter{Statuses: published, Limit: 1}, want: []string{"Football"}},
		{name: "all statuses", filter: &event.QueryFilter{Search: "secret"}, want: []string{"Secret draft"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := env.Events.Query(ctx, tt.filter, nil)
			require.NoError(t, err)
			titles := make([]string, 0, len(events))
			for _, e := range events {
				titles = append(titles, e.Title)
			}
			assert.Equal(t, tt.want, titles)
		})
	}

	categories, err := env.Events.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Networking", "Sports", "Workshop"}, categories)

	featured, err := env.Events.Featured(ctx, 2)
	require.NoError(t, err)
	require.Len(t, featured, 2)
	assert.Equal(t, "Football", featured[0].Title)
}

func TestService_ArchiveFinished(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	organizer := env.CreateUser(t, user.TypeOrganizer)

	soon := env.CreateEvent(t, organizer, testutil.StartingIn(time.Hour))
	later := env.CreateEvent(t, organizer, testutil.StartingIn(72*time.Hour))
	draft := env.CreateEvent(t, organizer, testutil.Draft(), testutil.StartingIn(time.Hour))

	n, err := env.Events.ArchiveFinished(ctx, soon.EndDate.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	for id, want := range map[string]string{
		soon.ID:  event.StatusArchived,
		later.ID: event.StatusPublished,
		draft.ID: event.StatusDraft,
	} {
		evt, err := env.Events.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, evt.Status)
	}
}
