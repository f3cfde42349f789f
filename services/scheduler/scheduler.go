package scheduler

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/an-shikaSingh/campus-connect-V0/core"
	"github.com/an-shikaSingh/campus-connect-V0/core/event"
	"github.com/an-shikaSingh/campus-connect-V0/core/notification"
)

// JobFunc is a scheduled unit of work. Its context is cancelled when the scheduler stops.
type JobFunc func(ctx context.Context) error

// Scheduler runs jobs on cron specs ("@every 30s", "0 * * * *"). A job still running when it
// is due again is skipped.
type Scheduler struct {
	cron   *cron.Cron
	logger core.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func New(logger core.Logger) *Scheduler {
	cl := cronLogger{logger: logger}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)), cron.WithLogger(cl)),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *Scheduler) Add(name, spec string, job JobFunc) error {
	_, err := s.cron.AddFunc(spec, func() {
		if err := job(s.ctx); err != nil && s.ctx.Err() == nil {
			s.logger.Error(fmt.Sprintf("scheduler: %s: %v", name, err), err)
		}
	})
	return errors.Wrapf(err, "scheduling %s (%q)", name, spec)
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for running jobs, at most until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ArchiveEvents archives the events that ended.
func ArchiveEvents(events event.Service, logger core.Logger) JobFunc {
	return func(ctx context.Context) error {
		n, err := events.ArchiveFinished(ctx, core.NowFunc())
		if err != nil {
			return err
		}
		if n > 0 {
			logger.Info(fmt.Sprintf("scheduler: archived %d events", n))
		}
		return nil
	}
}

// SweepDeliveries wakes the dispatcher so that deliveries due for a retry, or whose lease
// expired, get picked up even when nothing new is notified.
func SweepDeliveries(waker notification.Waker) JobFunc {
	return func(context.Context) error {
		waker.Wake()
		return nil
	}
}

type cronLogger struct {
	logger core.Logger
}

func (l cronLogger) Info(string, ...interface{}) {}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(fmt.Sprintf("cron: %s: %v %v", msg, err, keysAndValues), err)
}

var _ cron.Logger = cronLogger{}
