package broker

import (
	"context"
	"sync"

	"github.com/an-shikaSingh/campus-connect-V0/core/notification"
)

const subscriptionBuffer = 16

// Broker fans notifications out to the realtime subscribers of their user.
type Broker interface {
	Publish(ctx context.Context, n notification.Notification) error
	// Subscribe returns the notifications of userID as they are published, until cancel is called.
	Subscribe(userID string) (notifs <-chan notification.Notification, cancel func())
}

// Hub is an in-process Broker. Subscribers that do not keep up miss notifications,
// which stay available through the notifications list.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan notification.Notification]struct{}
}

var _ Broker = (*Hub)(nil) // interface compliance check

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan notification.Notification]struct{})}
}

func (h *Hub) Publish(_ context.Context, n notification.Notification) error {
	h.broadcast(n)
	return nil
}

func (h *Hub) broadcast(n notification.Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs[n.UserID] {
		select {
		case ch <- n:
		default: // slow subscriber
		}
	}
}

func (h *Hub) Subscribe(userID string) (<-chan notification.Notification, func()) {
	ch := make(chan notification.Notification, subscriptionBuffer)

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[chan notification.Notification]struct{})
	}
	h.subs[userID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[userID], ch)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
			close(ch)
		})
	}
	return ch, cancel
}

// Subscribers returns the number of live subscriptions of userID.
func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}
