package domain

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBatchReport(t *testing.T) {
	items := []BatchItemResult{
		{Product: &Product{ID: "1", Title: "Widget"}},
		{Failure: &BatchFailure{MessageID: "m2", RawBody: "not-json", Kind: KindParse}},
		{Product: &Product{ID: "3", Title: "Gadget"}},
	}

	report := NewBatchReport(items)

	assert.Equal(t, 2, report.ProcessedCount)
	assert.Equal(t, 1, report.ErrorCount)
	assert.Equal(t, 3, report.Total())
	assert.Equal(t, "m2", report.Errors[0].MessageID)
}

func TestNewBatchReport_EmptyItemCountsAsInternalFailure(t *testing.T) {
	report := NewBatchReport([]BatchItemResult{{}, {Product: &Product{ID: "1"}}})

	assert.Equal(t, 1, report.ProcessedCount)
	assert.Equal(t, 1, report.ErrorCount)
	require.NotNil(t, report.Errors[0])
	assert.Equal(t, KindInternal, report.Errors[0].Kind)
}

func TestNewBatchReport_Empty(t *testing.T) {
	report := NewBatchReport(nil)

	assert.Equal(t, 0, report.Total())
	assert.NotNil(t, report.Results)
	assert.NotNil(t, report.Errors)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindParse, KindOf(fmt.Errorf("%w: bad", ErrParse)))
	assert.Equal(t, KindValidation, KindOf(fmt.Errorf("%w: bad", ErrValidation)))
	assert.Equal(t, KindPersistence, KindOf(fmt.Errorf("%w: bad", ErrPersistence)))
	assert.Equal(t, KindCancelled, KindOf(ErrCancelled))
	assert.Equal(t, KindCancelled, KindOf(fmt.Errorf("%w: %w", ErrPersistence, context.Canceled)))
	assert.Equal(t, KindInternal, KindOf(assert.AnError))
}
