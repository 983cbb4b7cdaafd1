// Package catalog implements batch ingestion of product messages.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Pesokrava/product_catalog/internal/domain"
	"github.com/Pesokrava/product_catalog/internal/pkg/logger"
)

// ProductCreator creates and persists one product from parsed input
type ProductCreator interface {
	CreateFromInput(ctx context.Context, input *domain.ProductInput) (*domain.Product, error)
}

// Pipeline turns a batch of queue messages into persisted products and a report.
// It holds no state between batches.
type Pipeline struct {
	creator     ProductCreator
	concurrency int
	itemTimeout time.Duration
	logger      *logger.Logger
}

// NewPipeline creates a batch pipeline.
// concurrency <= 0 sizes the worker pool to the batch; itemTimeout <= 0 disables per-item deadlines.
func NewPipeline(creator ProductCreator, concurrency int, itemTimeout time.Duration, log *logger.Logger) *Pipeline {
	return &Pipeline{
		creator:     creator,
		concurrency: concurrency,
		itemTimeout: itemTimeout,
		logger:      log.Named("catalog-batch"),
	}
}

// ProcessBatch processes every message and always returns a report.
// Each message gets its own result slot, so the report does not depend on completion order.
// Messages not finished when ctx is cancelled are reported as Cancelled failures.
func (p *Pipeline) ProcessBatch(ctx context.Context, messages []domain.QueueMessage) *domain.BatchReport {
	items := make([]domain.BatchItemResult, len(messages))

	if len(messages) > 0 {
		var g errgroup.Group
		g.SetLimit(p.workers(len(messages)))

		for i, msg := range messages {
			i, msg := i, msg // per-iteration copy (go directive < 1.22)
			g.Go(func() error {
				items[i] = p.processMessage(ctx, msg)
				return nil
			})
		}

		// Workers never return errors; failures live in the result slots
		_ = g.Wait()
	}

	report := domain.NewBatchReport(items)

	p.logger.WithFields(map[string]interface{}{
		"batch_size":      len(messages),
		"processed_count": report.ProcessedCount,
		"error_count":     report.ErrorCount,
	}).Info("Batch processed")

	return report
}

func (p *Pipeline) workers(batchSize int) int {
	if p.concurrency <= 0 || p.concurrency > batchSize {
		return batchSize
	}
	return p.concurrency
}

func (p *Pipeline) processMessage(ctx context.Context, msg domain.QueueMessage) (result domain.BatchItemResult) {
	defer func() {
		if rec := recover(); rec != nil {
			result = p.fail(msg, fmt.Errorf("panic while processing message: %v", rec))
		}
	}()

	if err := ctx.Err(); err != nil {
		return p.fail(msg, fmt.Errorf("%w: %w", domain.ErrCancelled, err))
	}

	input, err := domain.ParseInput(msg.Body)
	if err != nil {
		return p.fail(msg, err)
	}

	itemCtx := ctx
	if p.itemTimeout > 0 {
		var cancel context.CancelFunc
		itemCtx, cancel = context.WithTimeout(ctx, p.itemTimeout)
		defer cancel()
	}

	product, err := p.creator.CreateFromInput(itemCtx, input)
	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, domain.ErrValidation) {
			err = fmt.Errorf("%w: %w", domain.ErrCancelled, err)
		}
		return p.fail(msg, err)
	}
	if product == nil {
		return p.fail(msg, errors.New("product creator returned no product"))
	}

	return domain.BatchItemResult{Product: product}
}

// fail logs the failed message with its original payload and builds its result
func (p *Pipeline) fail(msg domain.QueueMessage, err error) domain.BatchItemResult {
	failure := &domain.BatchFailure{
		MessageID: msg.ID,
		RawBody:   string(msg.Body),
		Kind:      domain.KindOf(err),
		Error:     err.Error(),
	}

	p.logger.WithFields(map[string]interface{}{
		"message_id": failure.MessageID,
		"raw_body":   failure.RawBody,
		"error_kind": failure.Kind,
	}).Error("Batch item failed", err)

	return domain.BatchItemResult{Failure: failure}
}
