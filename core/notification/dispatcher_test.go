package notification_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/an-shikaSingh/campus-connect-V0/core/notification"
	"github.com/an-shikaSingh/campus-connect-V0/core/user"
	emailsvc "github.com/an-shikaSingh/campus-connect-V0/services/email"
	"github.com/an-shikaSingh/campus-connect-V0/testutil"
)

// flakySender fails its first `failures` sends.
type flakySender struct {
	mu       sync.Mutex
	failures int
	sent     []notification.Notification
}

func (s *flakySender) Channel() string { return notification.ChannelRealtime }

func (s *flakySender) Send(_ context.Context, n notification.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("connection reset")
	}
	s.sent = append(s.sent, n)
	return nil
}

func (s *flakySender) Sent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func realtimeDelivery(t *testing.T, env *testutil.Env, notifID string) notification.Delivery {
	t.Helper()
	for _, d := range env.NotificationRepo.Deliveries(notifID) {
		if d.Channel == notification.ChannelRealtime {
			return d
		}
	}
	t.Fatalf("no realtime delivery for %s", notifID)
	return notification.Delivery{}
}

func notify(t *testing.T, env *testutil.Env, usr user.User) notification.Notification {
	t.Helper()
	ctx := context.Background()
	err := env.Notifications.Notify(ctx, []notification.NewNotification{{
		UserID:  usr.ID,
		Type:    notification.TypeAnnouncement,
		Title:   "Library hours",
		Message: "The library closes early today.",
	}})
	require.NoError(t, err)
	notifs, err := env.Notifications.List(ctx, usr.ID, notification.ListFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, notifs, 1)
	return notifs[0]
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{attempts: 0, want: time.Second},
		{attempts: 1, want: time.Second},
		{attempts: 2, want: 2 * time.Second},
		{attempts: 4, want: 8 * time.Second},
		{attempts: 10, want: time.Minute},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, notification.Backoff(time.Second, time.Minute, tt.attempts), "attempts=%d", tt.attempts)
	}
}

func TestDispatcher_retries(t *testing.T) {
	sender := &flakySender{failures: 2}
	env := testutil.NewEnv(sender)
	ada := env.CreateUser(t, user.TypeStudent)

	t0 := time.Now().UTC()
	testutil.MockNow(t, t0)
	n := notify(t, env, ada)

	stats := env.Drain(t)
	assert.Equal(t, 1, stats.Retried)
	dlv := realtimeDelivery(t, env, n.ID)
	assert.Equal(t, notification.DeliveryPending, dlv.Status)
	assert.Equal(t, 1, dlv.Attempts)
	assert.Equal(t, "connection reset", dlv.LastError)
	assert.Equal(t, t0.Add(time.Second), dlv.NextAttemptAt)

	// not due yet
	stats = env.Drain(t)
	assert.Zero(t, stats.Claimed)

	testutil.MockNow(t, t0.Add(time.Second))
	stats = env.Drain(t)
	assert.Equal(t, 1, stats.Retried)
	assert.Equal(t, t0.Add(3*time.Second), realtimeDelivery(t, env, n.ID).NextAttemptAt)

	testutil.MockNow(t, t0.Add(3*time.Second))
	stats = env.Drain(t)
	assert.Equal(t, notification.DispatchStats{Claimed: 1, Delivered: 1}, stats)
	dlv = realtimeDelivery(t, env, n.ID)
	assert.Equal(t, notification.DeliveryDelivered, dlv.Status)
	assert.Equal(t, 3, dlv.Attempts)
	assert.Empty(t, dlv.LastError)
	assert.Equal(t, 1, sender.Sent())
}

func TestDispatcher_givesUp(t *testing.T) {
	sender := &flakySender{failures: 100}
	env := testutil.NewEnv(sender)
	ada := env.CreateUser(t, user.TypeStudent)

	t0 := time.Now().UTC()
	testutil.MockNow(t, t0)
	n := notify(t, env, ada)

	var failed int
	for i := 0; i < env.Conf.Notification.MaxAttempts; i++ {
		testutil.MockNow(t, t0.Add(time.Duration(i)*time.Hour))
		failed += env.Drain(t).Failed
	}
	assert.Equal(t, 1, failed)

	dlv := realtimeDelivery(t, env, n.ID)
	assert.Equal(t, notification.DeliveryFailed, dlv.Status)
	assert.Equal(t, env.Conf.Notification.MaxAttempts, dlv.Attempts)

	testutil.MockNow(t, t0.Add(24*time.Hour))
	assert.Zero(t, env.Drain(t).Claimed)
	assert.Zero(t, sender.Sent())
}

func TestDispatcher_expiredLease(t *testing.T) {
	sender := &flakySender{}
	env := testutil.NewEnv(sender)
	ada := env.CreateUser(t, user.TypeStudent)

	t0 := time.Now().UTC()
	testutil.MockNow(t, t0)
	n := notify(t, env, ada)

	// a worker claims the deliveries and never reports back
	lease := env.Conf.Notification.LeaseTimeout
	claimed, err := env.NotificationRepo.ClaimDeliveries(context.Background(), t0, t0.Add(lease), 10)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	assert.Equal(t, n.ID, claimed[0].Notification.ID)

	assert.Zero(t, env.Drain(t).Claimed)

	testutil.MockNow(t, t0.Add(lease))
	stats := env.Drain(t)
	assert.Equal(t, 2, stats.Delivered)
	dlv := realtimeDelivery(t, env, n.ID)
	assert.Equal(t, notification.DeliveryDelivered, dlv.Status)
	assert.Equal(t, 2, dlv.Attempts)
}

func TestDispatcher_Run(t *testing.T) {
	env := testutil.NewEnv()
	ada := env.CreateUser(t, user.TypeStudent)

	sub, unsubscribe := env.Hub.Subscribe(ada.ID)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		env.Dispatcher.Run(ctx)
		close(done)
	}()

	n := notify(t, env, ada)
	select {
	case got := <-sub:
		assert.Equal(t, n.ID, got.ID)
		assert.Equal(t, "Library hours", got.Title)
	case <-time.After(5 * time.Second):
		t.Fatal("notification not delivered to ada")
	}

	cancel()
	<-done
}

func TestEmailSender(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	ada := env.CreateUser(t, user.TypeStudent)
	sender := notification.NewEmailSender(env.Users, emailsvc.NewConsoleServiceMock(testutil.NopLogger{}, env.Conf))

	emailsvc.ResetSentMessages()
	defer emailsvc.ResetSentMessages()

	n := notification.Notification{UserID: ada.ID, Type: notification.TypeAnnouncement, Title: "Hello", Message: "Welcome!"}
	require.NoError(t, sender.Send(ctx, n))
	msgs := emailsvc.SentMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, ada.Email, msgs[0].To[0].Address)
	assert.Equal(t, "Hello", msgs[0].Subject)

	// unknown recipients are skipped
	n.UserID = "5d4c3b2a-1f50-4c39-9f5e-3e0f2d1d9a02"
	require.NoError(t, sender.Send(ctx, n))
	assert.Len(t, emailsvc.SentMessages(), 1)
}
