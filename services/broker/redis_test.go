package broker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/an-shikaSingh/campus-connect-V0/core"
	"github.com/an-shikaSingh/campus-connect-V0/core/notification"
)

type errorLogger struct {
	mu     sync.Mutex
	errors []string
}

func (l *errorLogger) Debug(string, ...interface{}) {}
func (l *errorLogger) Info(string, ...interface{})  {}
func (l *errorLogger) Warn(string, ...interface{})  {}
func (l *errorLogger) Fatal(string, ...interface{}) {}

func (l *errorLogger) Error(msg string, _ ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *errorLogger) logged() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.errors...)
}

// runRedisBroker starts a broker on an in-memory redis and waits until it listens.
func runRedisBroker(t *testing.T) (*RedisBroker, *miniredis.Miniredis, *errorLogger) {
	t.Helper()
	srv := miniredis.RunT(t)
	conf := core.NewConfig()
	conf.Redis.Address = srv.Addr()
	logger := &errorLogger{}

	b, err := NewRedisBroker(conf, logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("broker still running")
		}
		_ = b.Close()
	})

	require.Eventually(t, func() bool {
		return srv.PubSubNumPat() == 1
	}, 2*time.Second, 10*time.Millisecond)
	return b, srv, logger
}

func receive(t *testing.T, ch <-chan notification.Notification) notification.Notification {
	t.Helper()
	select {
	case n := <-ch:
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("no notification received")
	}
	return notification.Notification{}
}

func TestRedisBroker(t *testing.T) {
	b, _, _ := runRedisBroker(t)
	ctx := context.Background()

	adaCh, cancelAda := b.Subscribe("ada")
	defer cancelAda()
	bobCh, cancelBob := b.Subscribe("bob")
	defer cancelBob()

	require.NoError(t, b.Publish(ctx, notification.Notification{ID: "1", UserID: "ada", Title: "Hi Ada"}))

	n := receive(t, adaCh)
	assert.Equal(t, "1", n.ID)
	assert.Equal(t, "ada", n.UserID)
	assert.Equal(t, "Hi Ada", n.Title)

	select {
	case n := <-bobCh:
		t.Fatalf("bob got %v", n)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRedisBroker_payloads(t *testing.T) {
	b, srv, logger := runRedisBroker(t)

	bobCh, cancel := b.Subscribe("bob")
	defer cancel()

	srv.Publish(channel("bob"), "{not json")
	// no user_id: the channel names the recipient
	srv.Publish(channel("bob"), `{"id": "2", "title": "From another instance"}`)

	n := receive(t, bobCh)
	assert.Equal(t, "2", n.ID)
	assert.Equal(t, "bob", n.UserID)
	assert.Equal(t, "From another instance", n.Title)

	errs := logger.logged()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "notifications:bob")

	select {
	case n := <-bobCh:
		t.Fatalf("unexpected notification %v", n)
	default:
	}
}
