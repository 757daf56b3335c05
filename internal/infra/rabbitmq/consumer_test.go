package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/fiapx/fiapx-frame-sampler/internal/domain/entity"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestAttemptOf(t *testing.T) {
	tests := []struct {
		name     string
		delivery amqp.Delivery
		want     int
	}{
		{"first delivery", amqp.Delivery{}, 1},
		{"unrelated headers", amqp.Delivery{Headers: amqp.Table{"x-other": "v"}}, 1},
		{"malformed x-death", amqp.Delivery{Headers: amqp.Table{"x-death": "not-a-list"}}, 1},
		{"redelivered", amqp.Delivery{Redelivered: true}, 2},
		{
			"x-death wins over redelivered",
			amqp.Delivery{
				Redelivered: true,
				Headers:     amqp.Table{"x-death": []interface{}{amqp.Table{}, amqp.Table{}, amqp.Table{}}},
			},
			3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, attemptOf(tt.delivery, errors.New("boom")))
		})
	}
}

func TestBackoff(t *testing.T) {
	base := time.Second
	assert.Equal(t, time.Second, backoff(base, 0))
	assert.Equal(t, time.Second, backoff(base, 1))
	assert.Equal(t, 2*time.Second, backoff(base, 2))
	assert.Equal(t, 8*time.Second, backoff(base, 4))
	assert.Equal(t, maxBackoff, backoff(base, 7))
	assert.Equal(t, maxBackoff, backoff(base, 200))
}

func TestAttemptOf_PrefersHandlerAttempt(t *testing.T) {
	err := fmt.Errorf("handle: %w", &entity.RetryableError{Attempt: 5, MaxAttempts: 7, Err: errors.New("boom")})
	assert.Equal(t, 5, attemptOf(amqp.Delivery{Redelivered: true}, err))

	zero := &entity.RetryableError{Err: errors.New("boom")}
	assert.Equal(t, 2, attemptOf(amqp.Delivery{Redelivered: true}, zero))
}

type recordingAck struct {
	acks, nacks, requeues int
}

func (a *recordingAck) Ack(uint64, bool) error { a.acks++; return nil }

func (a *recordingAck) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacks++
	if requeue {
		a.requeues++
	}
	return nil
}

func (a *recordingAck) Reject(uint64, bool) error { return nil }

func TestProcessDelivery_BackoffGrowsWithJobAttempt(t *testing.T) {
	attempt := 0
	var delays []time.Duration
	c := &Consumer{
		baseDelay: time.Second,
		logger:    zap.NewNop(),
		handler: func(context.Context, []byte) error {
			attempt++
			return &entity.RetryableError{Attempt: attempt, MaxAttempts: 8, Err: errors.New("decoder down")}
		},
		wait: func(_ context.Context, d time.Duration) { delays = append(delays, d) },
	}

	ack := &recordingAck{}
	for i := 0; i < 8; i++ {
		d := amqp.Delivery{Acknowledger: ack, DeliveryTag: uint64(i + 1), Redelivered: i > 0}
		c.processDelivery(context.Background(), d, c.logger)
	}

	assert.Equal(t, []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
		16 * time.Second, 32 * time.Second, maxBackoff, maxBackoff,
	}, delays)
	assert.Equal(t, 8, ack.requeues)
	assert.Zero(t, ack.acks)
}

func TestProcessDelivery_AcksSuccessAndRequeuesOnShutdown(t *testing.T) {
	waited := false
	c := &Consumer{
		baseDelay: time.Second,
		logger:    zap.NewNop(),
		handler:   func(context.Context, []byte) error { return nil },
		wait:      func(context.Context, time.Duration) { waited = true },
	}

	ack := &recordingAck{}
	c.processDelivery(context.Background(), amqp.Delivery{Acknowledger: ack}, c.logger)
	assert.Equal(t, 1, ack.acks)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.handler = func(context.Context, []byte) error { return errors.New("extraction canceled") }
	c.processDelivery(ctx, amqp.Delivery{Acknowledger: ack}, c.logger)
	assert.Equal(t, 1, ack.requeues)
	assert.False(t, waited)
}
