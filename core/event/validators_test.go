package event

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/an-shikaSingh/campus-connect-V0/core"
)

func newTestValidator() *validator.Validate {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	return validate
}

// failedTags maps each failing field to its validation tag.
func failedTags(err error) map[string]string {
	tags := make(map[string]string)
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			tags[fe.Field()] = fe.Tag()
		}
	}
	return tags
}

func TestNewEvent_Validate(t *testing.T) {
	validate := newTestValidator()
	start := core.NowFunc().Add(24 * time.Hour)

	valid := func() NewEvent {
		return NewEvent{
			Title:       "  Intro   to Go ",
			Description: "Goroutines",
			Location:    "Room 101",
			Category:    " workshop",
			StartDate:   start,
			EndDate:     start.Add(time.Hour),
		}
	}

	tests := []struct {
		name   string
		modify func(ne *NewEvent)
		want   map[string]string
	}{
		{name: "valid", modify: func(*NewEvent) {}, want: map[string]string{}},
		{name: "missing title", modify: func(ne *NewEvent) { ne.Title = " " }, want: map[string]string{"title": "required"}},
		{name: "unknown category", modify: func(ne *NewEvent) { ne.Category = "Party" }, want: map[string]string{"category": categoryTag}},
		{name: "past start", modify: func(ne *NewEvent) { ne.StartDate = core.NowFunc().Add(-time.Hour) }, want: map[string]string{"start_date": futureDateTag}},
		{name: "end before start", modify: func(ne *NewEvent) { ne.EndDate = start.Add(-time.Minute) }, want: map[string]string{"end_date": endDateTag}},
		{name: "negative capacity", modify: func(ne *NewEvent) { ne.Capacity = -1 }, want: map[string]string{"capacity": "min"}},
		{name: "bad image url", modify: func(ne *NewEvent) { ne.ImageURL = "ftp://files/x.png" }, want: map[string]string{"image_url": "httpurl"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ne := valid()
			tt.modify(&ne)
			err := ne.Validate(validate)
			assert.Equal(t, tt.want, failedTags(err))
			if len(tt.want) == 0 {
				require.NoError(t, err)
				assert.Equal(t, "Intro to Go", ne.Title)
				assert.Equal(t, "Workshop", ne.Category)
			}
		})
	}
}

func TestUpdateEvent_Validate(t *testing.T) {
	validate := newTestValidator()
	start := core.NowFunc().Add(24 * time.Hour)
	orig := Event{
		Title:       "Intro to Go",
		Description: "Goroutines",
		Location:    "Room 101",
		Category:    "Workshop",
		StartDate:   start,
		EndDate:     start.Add(time.Hour),
		ImageURL:    "https://img.test/go.png",
		Capacity:    10,
	}

	ue := UpdateEvent{Title: "Advanced Go"}
	require.NoError(t, ue.Validate(orig, validate))
	assert.Equal(t, "Advanced Go", ue.Title)
	assert.Equal(t, orig.Location, ue.Location)
	assert.True(t, ue.StartDate.Equal(orig.StartDate))
	assert.True(t, ue.changes(orig))

	empty := ""
	ue = UpdateEvent{ImageURL: &empty}
	require.NoError(t, ue.Validate(orig, validate))
	assert.True(t, ue.changes(orig))

	ue = UpdateEvent{}
	require.NoError(t, ue.Validate(orig, validate))
	assert.False(t, ue.changes(orig))

	ue = UpdateEvent{EndDate: start.Add(-time.Hour)}
	assert.Equal(t, map[string]string{"end_date": endDateTag}, failedTags(ue.Validate(orig, validate)))

	ue = UpdateEvent{StartDate: core.NowFunc().Add(-time.Hour)}
	assert.Equal(t, map[string]string{"start_date": futureDateTag}, failedTags(ue.Validate(orig, validate)))

	// events already under way keep their start date
	running := orig
	running.StartDate = core.NowFunc().Add(-time.Hour)
	ue = UpdateEvent{Title: "Go, live"}
	require.NoError(t, ue.Validate(running, validate))
}

func TestTransitions(t *testing.T) {
	now := time.Now().UTC()
	evt := Event{Status: StatusDraft, StartDate: now.Add(time.Hour)}

	require.NoError(t, evt.transitionTo(StatusPublished, now))
	assert.Equal(t, now, evt.PublishedAt)
	assert.Equal(t, ErrInvalidTransition, evt.transitionTo(StatusDraft, now))

	require.NoError(t, evt.transitionTo(StatusCancelled, now))
	assert.Equal(t, now, evt.CancelledAt)
	require.NoError(t, evt.transitionTo(StatusArchived, now))
	assert.Empty(t, transitions[evt.Status])

	started := Event{Status: StatusDraft, StartDate: now}
	assert.Equal(t, ErrAlreadyStarted, started.transitionTo(StatusPublished, now))

	target, ok := ActionTarget(ActionCancel)
	assert.True(t, ok)
	assert.Equal(t, StatusCancelled, target)
	_, ok = ActionTarget("delete")
	assert.False(t, ok)
}
