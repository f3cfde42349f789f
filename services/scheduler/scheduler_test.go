package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func every(d time.Duration) string {
	return "@every " + d.String()
}

type countingWaker struct{ n int32 }

func (w *countingWaker) Wake() { atomic.AddInt32(&w.n, 1) }

func TestScheduler(t *testing.T) {
	s := New(nopLogger{})
	waker := new(countingWaker)
	require.NoError(t, s.Add("sweep", every(time.Second), SweepDeliveries(waker)))
	assert.Error(t, s.Add("broken", "not a spec", SweepDeliveries(waker)))

	s.Start()
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&waker.n) > 0 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
