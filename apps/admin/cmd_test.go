package main

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/an-shikaSingh/campus-connect-V0/core/event"
	"github.com/an-shikaSingh/campus-connect-V0/core/notification"
	"github.com/an-shikaSingh/campus-connect-V0/core/user"
	inmemdb "github.com/an-shikaSingh/campus-connect-V0/storage/database/inmem"
	"github.com/an-shikaSingh/campus-connect-V0/testutil"
)

var usrRepo user.Repository

func setup(t *testing.T) (*commandLine, *testutil.Env) {
	env := testutil.NewEnv()
	usrRepo = inmemdb.NewUserRepository(env.DB)

	// start CLI
	return &commandLine{
		usrRepo:  usrRepo,
		events:   env.Events,
		regs:     env.RegistrationRepo,
		notifier: env.Notifications,
	}, env
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		if errors.Cause(err) != tt.wantErr {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	case tt.wantErrStr != "":
		if err == nil || err.Error() != tt.wantErrStr {
			t.Errorf("cli.run() error = %v, wantErrStr %s", err, tt.wantErrStr)
		}
	case err != nil:
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	migrateFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "add_tags", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, _ := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "both types", args: []string{"adduser", "-email", "a@test.com", "-admin", "-organizer"}, extra: "pwd", wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-email", "a@test.com"}, wantErr: errHelp},
		{name: "create admin", args: []string{"adduser", "-email", " Root@Test.com ", "-first", "Root", "-admin"}, extra: "s3cret"},
		{name: "demote to organizer", args: []string{"adduser", "-email", "root@test.com", "-organizer"}, extra: "n3w-s3cret"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		pwd, _ := tt.extra.(string)
		mockPassword(pwd)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	usr, err := usrRepo.GetUser(context.Background(), user.GetFilter{Email: "root@test.com"})
	require.NoError(t, err)
	assert.Equal(t, "Root", usr.FirstName)
	assert.Equal(t, user.TypeOrganizer, usr.UserType)
	assert.True(t, usr.Active())
	assert.NoError(t, usr.CheckPassword("n3w-s3cret"))
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, env := setup(t)
	usr := env.CreateUser(t, user.TypeStudent)

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol@test.com"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@test.com"}, extra: "lol", wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", usr.Email}, extra: "lmao"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		pwd, _ := tt.extra.(string)
		mockPassword(pwd)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	refreshedUsr, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
	require.NoError(t, err)
	assert.NoError(t, refreshedUsr.CheckPassword("lmao"))
}

func Test_commandLine_archiveEvents(t *testing.T) {
	cli, env := setup(t)
	organizer := env.CreateUser(t, user.TypeOrganizer)
	evt := env.CreateEvent(t, organizer, testutil.StartingIn(time.Hour))

	testutil.MockNow(t, evt.EndDate.Add(time.Minute))
	require.NoError(t, cli.run([]string{"admin", "archive-events"}))

	got, err := env.Events.GetByID(context.Background(), evt.ID)
	require.NoError(t, err)
	assert.Equal(t, event.StatusArchived, got.Status)
}

func Test_commandLine_notify(t *testing.T) {
	cli, env := setup(t)
	organizer := env.CreateUser(t, user.TypeOrganizer)
	ada := env.CreateUser(t, user.TypeStudent)
	bob := env.CreateUser(t, user.TypeStudent)
	evt := env.CreateEvent(t, organizer)
	_, err := env.Registrations.Register(context.Background(), ada, evt.ID)
	require.NoError(t, err)

	tests := []cliTest{
		{name: "no message", args: []string{"notify"}, wantErr: errHelp},
		{name: "unknown event", args: []string{"notify", "-message", "hi", "-event", "lol"}, wantErr: event.ErrNotFound},
		{name: "registrants", args: []string{"notify", "-message", "Room changed", "-event", evt.ID}},
		{name: "everybody", args: []string{"notify", "-title", "Hello", "-message", "Welcome back"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	ctx := context.Background()
	announcements := func(userID string) []notification.Notification {
		notifs, err := env.Notifications.List(ctx, userID, notification.ListFilter{})
		require.NoError(t, err)
		var out []notification.Notification
		for _, n := range notifs {
			if n.Type == notification.TypeAnnouncement {
				out = append(out, n)
			}
		}
		return out
	}

	adaNotifs := announcements(ada.ID)
	require.Len(t, adaNotifs, 2)
	bobNotifs := announcements(bob.ID)
	require.Len(t, bobNotifs, 1)
	assert.Equal(t, "Hello", bobNotifs[0].Title)
	assert.Equal(t, "Welcome back", bobNotifs[0].Message)
	assert.Len(t, announcements(organizer.ID), 1)

	n, err := env.Notifications.UnreadCount(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
