package notification

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/an-shikaSingh/campus-connect-V0/core"
)

// Sender delivers notifications through one channel.
type Sender interface {
	Channel() string
	Send(ctx context.Context, n Notification) error
}

// DispatchStats is what one Drain did.
type DispatchStats struct {
	Claimed   int
	Delivered int
	Retried   int
	Failed    int
}

// Dispatcher drains the delivery outbox with a pool of workers.
// Each claimed delivery is leased: if a worker dies before reporting, the delivery becomes
// due again once the lease expires, so a notification may be delivered more than once.
type Dispatcher struct {
	repo    Repository
	logger  core.Logger
	senders map[string]Sender

	workers     int
	batchSize   int
	maxAttempts int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	lease       time.Duration

	wake    chan struct{}
	drainMu sync.Mutex
}

func NewDispatcher(repo Repository, logger core.Logger, conf *core.Config, senders ...Sender) *Dispatcher {
	d := &Dispatcher{
		repo:        repo,
		logger:      logger,
		senders:     make(map[string]Sender, len(senders)),
		workers:     conf.Notification.Workers,
		batchSize:   conf.Notification.BatchSize,
		maxAttempts: conf.Notification.MaxAttempts,
		baseBackoff: conf.Notification.BaseBackoff,
		maxBackoff:  conf.Notification.MaxBackoff,
		lease:       conf.Notification.LeaseTimeout,
		wake:        make(chan struct{}, 1),
	}
	if d.workers < 1 {
		d.workers = 1
	}
	if d.batchSize < 1 {
		d.batchSize = 1
	}
	if d.maxAttempts < 1 {
		d.maxAttempts = 1
	}
	for _, s := range senders {
		d.senders[s.Channel()] = s
	}
	return d
}

// Wake asks a running dispatcher to drain the outbox. It never blocks.
func (d *Dispatcher) Wake() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Run drains the outbox every time the dispatcher is woken, until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) {
	d.Wake() // pick up whatever was left pending by a previous run
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.wake:
			if _, err := d.Drain(ctx); err != nil && ctx.Err() == nil {
				d.logger.Error(fmt.Sprintf("notification.Dispatcher.Drain: %v", err), err)
			}
		}
	}
}

// Drain claims and processes due deliveries batch after batch until none is left.
func (d *Dispatcher) Drain(ctx context.Context) (DispatchStats, error) {
	d.drainMu.Lock()
	defer d.drainMu.Unlock()

	var total DispatchStats
	for {
		now := core.NowFunc()
		batch, err := d.repo.ClaimDeliveries(ctx, now, now.Add(d.lease), d.batchSize)
		if err != nil {
			return total, errors.Wrap(err, "claiming deliveries")
		}
		if len(batch) == 0 {
			return total, nil
		}

		stats := d.process(ctx, batch)
		total.Claimed += stats.Claimed
		total.Delivered += stats.Delivered
		total.Retried += stats.Retried
		total.Failed += stats.Failed

		if len(batch) < d.batchSize || ctx.Err() != nil {
			return total, ctx.Err()
		}
	}
}

// process fans batch out to the workers and waits for all of them.
func (d *Dispatcher) process(ctx context.Context, batch []Delivery) DispatchStats {
	jobs := make(chan Delivery)
	results := make(chan string, len(batch))

	var wg sync.WaitGroup
	workers := d.workers
	if workers > len(batch) {
		workers = len(batch)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for dlv := range jobs {
				results <- d.deliver(ctx, dlv)
			}
		}()
	}
	for _, dlv := range batch {
		jobs <- dlv
	}
	close(jobs)
	wg.Wait()
	close(results)

	stats := DispatchStats{Claimed: len(batch)}
	for status := range results {
		switch status {
		case DeliveryDelivered:
			stats.Delivered++
		case DeliveryPending:
			stats.Retried++
		case DeliveryFailed:
			stats.Failed++
		}
	}
	return stats
}

// deliver sends one claimed delivery and records the outcome. It returns the new status.
func (d *Dispatcher) deliver(ctx context.Context, dlv Delivery) string {
	var sendErr error
	sender, ok := d.senders[dlv.Channel]
	switch {
	case !ok:
		sendErr = errors.Errorf("no sender for channel %q", dlv.Channel)
		dlv.Attempts = d.maxAttempts // retrying will not help
	case dlv.Attempts > d.maxAttempts:
		sendErr = errors.New("lease expired on last attempt")
	default:
		sendErr = sender.Send(ctx, dlv.Notification)
	}

	now := core.NowFunc()
	dlv.UpdatedAt = now
	if sendErr == nil {
		dlv.Status = DeliveryDelivered
		dlv.LastError = ""
	} else {
		dlv.LastError = sendErr.Error()
		if dlv.Attempts >= d.maxAttempts {
			dlv.Status = DeliveryFailed
			d.logger.Warn(
				fmt.Sprintf("notification.Dispatcher: delivery %s (%s) failed after %d attempts: %v", dlv.ID, dlv.Channel, dlv.Attempts, sendErr),
				sendErr,
			)
		} else {
			dlv.Status = DeliveryPending
			dlv.NextAttemptAt = now.Add(Backoff(d.baseBackoff, d.maxBackoff, dlv.Attempts))
		}
	}

	// a fresh context: the outcome must be recorded even when shutting down
	updCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.repo.UpdateDelivery(updCtx, dlv); err != nil {
		// the lease will expire and the delivery will be retried
		d.logger.Error(fmt.Sprintf("notification.Dispatcher: updating delivery %s: %v", dlv.ID, err), err)
		return DeliveryProcessing
	}
	return dlv.Status
}

// Backoff returns the delay before retrying after the given number of attempts:
// base * 2^(attempts-1), capped at max.
func Backoff(base, max time.Duration, attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	delay := float64(base) * math.Pow(2, float64(attempts-1))
	if max > 0 && delay > float64(max) {
		return max
	}
	return time.Duration(delay)
}
