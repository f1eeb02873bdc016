package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DeliverChannel is the Redis pub/sub channel shared by all processes.
const DeliverChannel = "realtime:deliver"

type relayEnvelope struct {
	RecipientID int64           `json:"recipient_id"`
	Frame       json.RawMessage `json:"frame"`
}

const (
	relayRetryMin = 500 * time.Millisecond
	relayRetryMax = 30 * time.Second
)

// RedisRelay fans frames out over Redis pub/sub. Pub/sub has no backlog, so
// a frame published while no process holds the recipient is simply lost.
type RedisRelay struct {
	client   *redis.Client
	channel  string
	retryMin time.Duration
	retryMax time.Duration
	logger   *zap.Logger
}

func NewRedisRelay(client *redis.Client, logger *zap.Logger) *RedisRelay {
	return &RedisRelay{
		client:   client,
		channel:  DeliverChannel,
		retryMin: relayRetryMin,
		retryMax: relayRetryMax,
		logger:   logger.Named("relay"),
	}
}

func (r *RedisRelay) Publish(ctx context.Context, recipientID int64, frame []byte) error {
	payload, err := json.Marshal(relayEnvelope{RecipientID: recipientID, Frame: frame})
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Run subscribes and hands every frame to deliver until ctx is done. A
// failed or dropped subscription is retried with backoff, so Run only
// returns once ctx is done. ready, if non-nil, is closed once the first
// subscription is confirmed.
func (r *RedisRelay) Run(ctx context.Context, deliver func(recipientID int64, frame []byte), ready chan<- struct{}) error {
	backoff := r.retryMin
	for {
		subscribed, err := r.serve(ctx, deliver, &ready)
		if ctx.Err() != nil {
			return nil
		}
		if subscribed {
			backoff = r.retryMin
		}
		r.logger.Warn("relay subscription lost, retrying",
			zap.Duration("backoff", backoff), zap.Error(err))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > r.retryMax {
			backoff = r.retryMax
		}
	}
}

// serve runs one subscription. subscribed reports whether it was confirmed.
func (r *RedisRelay) serve(ctx context.Context, deliver func(recipientID int64, frame []byte), ready *chan<- struct{}) (subscribed bool, err error) {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return false, fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	if *ready != nil {
		close(*ready)
		*ready = nil
	}
	r.logger.Info("relay subscribed", zap.String("channel", r.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return true, nil
		case msg, ok := <-ch:
			if !ok {
				return true, errors.New("subscription channel closed")
			}
			var env relayEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				r.logger.Warn("bad relay envelope", zap.Error(err))
				continue
			}
			deliver(env.RecipientID, env.Frame)
		}
	}
}
