// Package testutil wires the services on top of the in-memory database for tests.
package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/an-shikaSingh/campus-connect-V0/core"
	"github.com/an-shikaSingh/campus-connect-V0/core/event"
	"github.com/an-shikaSingh/campus-connect-V0/core/notification"
	"github.com/an-shikaSingh/campus-connect-V0/core/registration"
	"github.com/an-shikaSingh/campus-connect-V0/core/stats"
	"github.com/an-shikaSingh/campus-connect-V0/core/user"
	"github.com/an-shikaSingh/campus-connect-V0/services/broker"
	emailsvc "github.com/an-shikaSingh/campus-connect-V0/services/email"
	inmemdb "github.com/an-shikaSingh/campus-connect-V0/storage/database/inmem"
)

// DefaultPassword is the password of every user created by CreateUser.
const DefaultPassword = "Tr0ub4dor&3x"

type (
	NopLogger struct{}

	// NotificationRepository is the in-memory notification storage, deliveries included.
	NotificationRepository interface {
		notification.Repository
		Deliveries(notifID string) []notification.Delivery
	}

	Env struct {
		Conf *core.Config
		DB   *inmemdb.DB
		Hub  *broker.Hub
		Mail core.EmailService

		NotificationRepo NotificationRepository
		EventRepo        event.Repository
		RegistrationRepo registration.Repository

		Users         user.Service
		Events        event.Service
		Registrations registration.Service
		Notifications notification.Service
		Stats         stats.Service
		Dispatcher    *notification.Dispatcher
	}
)

var _ core.Logger = NopLogger{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
func (NopLogger) Fatal(string, ...interface{}) {}

// Config returns the configuration tests run with.
func Config() *core.Config {
	conf := core.NewConfig()
	conf.TestMode = true
	conf.Notification.Workers = 2
	conf.Notification.BatchSize = 10
	conf.Notification.MaxAttempts = 3
	conf.Notification.BaseBackoff = time.Second
	conf.Notification.MaxBackoff = time.Minute
	conf.Notification.LeaseTimeout = time.Minute
	return conf
}

// NewEnv wires every service on a fresh in-memory database.
// Extra senders replace the default ones (realtime through Hub, email through Mail) per channel.
func NewEnv(senders ...notification.Sender) *Env {
	conf := Config()
	logger := NopLogger{}
	core.ParseEmailTemplates(conf, logger)

	db := inmemdb.Open()
	env := &Env{
		Conf:             conf,
		DB:               db,
		Hub:              broker.NewHub(),
		Mail:             emailsvc.NewConsoleServiceMock(logger, conf),
		NotificationRepo: inmemdb.NewNotificationRepository(db),
		EventRepo:        inmemdb.NewEventRepository(db),
		RegistrationRepo: inmemdb.NewRegistrationRepository(db),
	}

	env.Users = user.NewServiceMock(inmemdb.NewUserRepository(db), env.Mail, logger, conf)

	byChannel := map[string]notification.Sender{
		notification.ChannelRealtime: notification.NewRealtimeSender(env.Hub),
		notification.ChannelEmail:    notification.NewEmailSender(env.Users, env.Mail),
	}
	for _, s := range senders {
		byChannel[s.Channel()] = s
	}
	all := make([]notification.Sender, 0, len(byChannel))
	for _, s := range byChannel {
		all = append(all, s)
	}
	env.Dispatcher = notification.NewDispatcher(env.NotificationRepo, logger, conf, all...)

	env.Notifications = notification.NewService(env.NotificationRepo, db, env.Dispatcher, conf)
	env.Events = event.NewService(env.EventRepo, env.RegistrationRepo, registration.NewPromoter(env.RegistrationRepo), env.Users, env.Notifications, db, conf)
	env.Registrations = registration.NewService(env.RegistrationRepo, env.EventRepo, env.Notifications, db)
	env.Stats = stats.NewService(inmemdb.NewStatsRepository(db), env.Events, env.Registrations)
	return env
}

var userSeq int32

// CreateUser creates an active user of the given type, with DefaultPassword.
func (env *Env) CreateUser(t testing.TB, userType string) user.User {
	t.Helper()
	n := atomic.AddInt32(&userSeq, 1)
	usr, err := env.Users.Create(context.Background(), user.NewUser{
		FirstName: fmt.Sprintf("%s%d", userType, n),
		LastName:  "Test",
		Email:     fmt.Sprintf("%s%d@test.com", userType, n),
		Password:  DefaultPassword,
		UserType:  userType,
	})
	if err != nil {
		t.Fatalf("creating %s: %v", userType, err)
	}
	return usr
}

// EventOption customizes the events made by CreateEvent.
type EventOption func(ne *event.NewEvent)

func WithCapacity(capacity int, waitlist bool) EventOption {
	return func(ne *event.NewEvent) {
		ne.Capacity = capacity
		ne.WaitlistEnabled = waitlist
	}
}

func Draft() EventOption {
	return func(ne *event.NewEvent) { ne.Publish = false }
}

func StartingIn(d time.Duration) EventOption {
	return func(ne *event.NewEvent) {
		ne.StartDate = core.NowFunc().Add(d)
		ne.EndDate = ne.StartDate.Add(2 * time.Hour)
	}
}

func WithCategory(category string) EventOption {
	return func(ne *event.NewEvent) { ne.Category = category }
}

func WithTitle(title string) EventOption {
	return func(ne *event.NewEvent) { ne.Title = title }
}

// CreateEvent creates a published, unlimited event organized by organizer, starting in two days.
func (env *Env) CreateEvent(t testing.TB, organizer user.User, opts ...EventOption) event.Event {
	t.Helper()
	start := core.NowFunc().Add(48 * time.Hour)
	ne := event.NewEvent{
		Title:       "Intro to Go",
		Description: "Goroutines, channels and friends.",
		Location:    "Room 101",
		Category:    "Workshop",
		StartDate:   start,
		EndDate:     start.Add(2 * time.Hour),
		Publish:     true,
	}
	for _, opt := range opts {
		opt(&ne)
	}
	evt, err := env.Events.Create(context.Background(), ne, organizer)
	if err != nil {
		t.Fatalf("creating event: %v", err)
	}
	return evt
}

// Drain delivers every pending notification.
func (env *Env) Drain(t testing.TB) notification.DispatchStats {
	t.Helper()
	stats, err := env.Dispatcher.Drain(context.Background())
	if err != nil {
		t.Fatalf("draining notifications: %v", err)
	}
	return stats
}

// MockNow sets core.NowFunc to return now until the test ends.
func MockNow(t testing.TB, now time.Time) {
	t.Helper()
	orig := core.NowFunc
	core.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { core.NowFunc = orig })
}
