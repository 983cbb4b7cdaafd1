package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/Pesokrava/product_catalog/internal/domain"
)

// Delivery is one fetched message together with its acknowledgement callbacks
type Delivery struct {
	Message domain.QueueMessage
	Ack     func() error
	Nak     func() error
}

// PullSubscription is the subset of *nats.Subscription used by PullFetcher
type PullSubscription interface {
	Fetch(batch int, opts ...nats.PullOpt) ([]*nats.Msg, error)
}

// PullFetcher pulls bounded batches from a JetStream durable consumer
type PullFetcher struct {
	sub     PullSubscription
	size    int
	maxWait time.Duration
}

// NewPullFetcher creates a fetcher returning at most size messages per batch
func NewPullFetcher(sub PullSubscription, size int, maxWait time.Duration) *PullFetcher {
	return &PullFetcher{
		sub:     sub,
		size:    size,
		maxWait: maxWait,
	}
}

// FetchBatch waits up to maxWait for messages. An empty batch with a nil error
// means nothing arrived in time.
func (f *PullFetcher) FetchBatch(ctx context.Context) ([]Delivery, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, f.maxWait)
	defer cancel()

	msgs, err := f.sub.Fetch(f.size, nats.Context(fetchCtx))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	deliveries := make([]Delivery, 0, len(msgs))
	for _, msg := range msgs {
		msg := msg
		deliveries = append(deliveries, Delivery{
			Message: domain.QueueMessage{ID: MessageID(msg), Body: msg.Data},
			Ack:     func() error { return msg.Ack() },
			Nak:     func() error { return msg.Nak() },
		})
	}

	return deliveries, nil
}

// MessageID returns the publisher-assigned message id, falling back to the
// stream sequence and finally to a random id
func MessageID(msg *nats.Msg) string {
	if msg.Header != nil {
		if id := msg.Header.Get(nats.MsgIdHdr); id != "" {
			return id
		}
	}

	if meta, err := msg.Metadata(); err == nil {
		return fmt.Sprintf("%s:%d", meta.Stream, meta.Sequence.Stream)
	}

	return uuid.NewString()
}
