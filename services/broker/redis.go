package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/an-shikaSingh/campus-connect-V0/core"
	"github.com/an-shikaSingh/campus-connect-V0/core/notification"
)

const channelPrefix = "notifications:"

func channel(userID string) string {
	return channelPrefix + userID
}

// RedisBroker publishes notifications on per-user Redis channels so that every API instance
// can forward them to its own websocket subscribers.
type RedisBroker struct {
	client *redis.Client
	hub    *Hub
	logger core.Logger
}

var _ Broker = (*RedisBroker)(nil) // interface compliance check

func NewRedisBroker(conf *core.Config, logger core.Logger) (*RedisBroker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         conf.Redis.Address,
		Password:     conf.Redis.Password,
		DB:           conf.Redis.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "connecting to redis")
	}
	return &RedisBroker{client: client, hub: NewHub(), logger: logger}, nil
}

func (b *RedisBroker) Publish(ctx context.Context, n notification.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return errors.Wrap(err, "encoding notification")
	}
	return errors.Wrap(b.client.Publish(ctx, channel(n.UserID), payload).Err(), "publishing notification")
}

func (b *RedisBroker) Subscribe(userID string) (<-chan notification.Notification, func()) {
	return b.hub.Subscribe(userID)
}

// Run forwards every published notification to the local subscribers until ctx is done.
func (b *RedisBroker) Run(ctx context.Context) error {
	pubsub := b.client.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return errors.Wrap(err, "subscribing to notifications")
	}

	msgs := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var n notification.Notification
			if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
				b.logger.Error(fmt.Sprintf("broker: decoding %s message: %v", msg.Channel, err), err)
				continue
			}
			if n.UserID == "" {
				n.UserID = strings.TrimPrefix(msg.Channel, channelPrefix)
			}
			b.hub.broadcast(n)
		}
	}
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}
