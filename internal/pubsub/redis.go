package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

const (
	topicChannelPrefix = "chat:topic:"
	userChannelPrefix  = "chat:user:"
)

// RedisBroker publishes chat traffic over redis pub/sub channels. Every
// publish carries a Delivery envelope so subscribers never have to parse
// identifiers back out of channel names.
type RedisBroker struct {
	log    *log.Logger
	client *redis.Client
}

func NewRedisBroker(logger *log.Logger, addr string) (*RedisBroker, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisBroker{log: logger, client: client}, nil
}

func (b *RedisBroker) PublishToTopic(ctx context.Context, topic string, payload []byte) error {
	envelope, err := json.Marshal(Delivery{Topic: topic, Payload: payload})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	return b.client.Publish(ctx, topicChannelPrefix+topic, envelope).Err()
}

func (b *RedisBroker) PublishToUser(ctx context.Context, user, dest string, payload []byte) error {
	envelope, err := json.Marshal(Delivery{User: user, Dest: dest, Payload: payload})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	return b.client.Publish(ctx, userChannelPrefix+user, envelope).Err()
}

func (b *RedisBroker) Subscribe(ctx context.Context) (<-chan Delivery, error) {
	sub := b.client.PSubscribe(ctx, topicChannelPrefix+"*", userChannelPrefix+"*")

	// wait for the subscription to be established before reading
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("psubscribe: %w", err)
	}

	deliveries := make(chan Delivery, 256)
	go func() {
		defer close(deliveries)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}

				var d Delivery
				if err := json.Unmarshal([]byte(msg.Payload), &d); err != nil {
					b.log.Printf("pubsub: bad envelope on %q: %v", msg.Channel, err)
					continue
				}

				select {
				case deliveries <- d:
				default:
					b.log.Printf("pubsub: delivery channel full, dropping message on %q", msg.Channel)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return deliveries, nil
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}
