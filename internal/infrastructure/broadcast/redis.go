package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"voice-intake-api/internal/domain/webhook"
)

// NewRedisClient connects to redisURL and verifies the connection.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis URL must be provided")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// envelope is the message published on the shared channel.
type envelope struct {
	Origin  string          `json:"origin"`
	Message json.RawMessage `json:"message"`
}

// RedisFanout delivers events to local listeners and to every other
// instance subscribed to the same channel.
type RedisFanout struct {
	rdb     *redis.Client
	channel string
	origin  string
	local   *Registry
	log     zerolog.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	pubsub    *redis.PubSub
	wg        sync.WaitGroup
}

// NewRedisFanout creates a fan-out over channel. Call Start to receive
// events from other instances.
func NewRedisFanout(rdb *redis.Client, channel string, local *Registry, log zerolog.Logger) *RedisFanout {
	return &RedisFanout{
		rdb:     rdb,
		channel: channel,
		origin:  uuid.NewString(),
		local:   local,
		log:     log.With().Str("component", "redis-fanout").Str("channel", channel).Logger(),
	}
}

// Publish delivers event locally, then publishes it for other instances.
// Once local delivery has happened, a failed Redis publish is logged and not
// returned: the caller would otherwise see the event as undelivered and retry
// it, duplicating it for local listeners.
func (f *RedisFanout) Publish(ctx context.Context, event webhook.Event) error {
	msg, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	f.local.Deliver(msg)

	payload, err := json.Marshal(envelope{Origin: f.origin, Message: msg})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := f.rdb.Publish(ctx, f.channel, payload).Err(); err != nil {
		f.log.Warn().Err(err).Str("event_type", event.Type).Msg("failed to publish event to other instances")
	}
	return nil
}

// Start subscribes to the channel. It returns once the subscription is
// confirmed.
func (f *RedisFanout) Start(ctx context.Context) error {
	var err error
	f.startOnce.Do(func() {
		pubsub := f.rdb.Subscribe(ctx, f.channel)
		if _, err = pubsub.Receive(ctx); err != nil {
			_ = pubsub.Close()
			err = fmt.Errorf("subscribe to %s: %w", f.channel, err)
			return
		}
		f.pubsub = pubsub
		f.wg.Add(1)
		go f.run(pubsub.Channel())
		f.log.Info().Str("origin", f.origin).Msg("redis fan-out started")
	})
	return err
}

// Stop closes the subscription and waits for the receive loop to exit.
func (f *RedisFanout) Stop() {
	f.stopOnce.Do(func() {
		if f.pubsub == nil {
			return
		}
		if err := f.pubsub.Close(); err != nil {
			f.log.Warn().Err(err).Msg("failed to close subscription")
		}
		f.wg.Wait()
		f.log.Info().Msg("redis fan-out stopped")
	})
}

func (f *RedisFanout) run(ch <-chan *redis.Message) {
	defer f.wg.Done()
	for msg := range ch {
		f.handle(msg.Payload)
	}
}

// handle delivers a message published by another instance. Messages this
// instance published were already delivered locally.
func (f *RedisFanout) handle(payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		f.log.Warn().Err(err).Msg("unreadable fan-out message")
		return
	}
	if env.Origin == f.origin || len(env.Message) == 0 {
		return
	}
	f.local.Deliver(env.Message)
}
