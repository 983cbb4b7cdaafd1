package domain

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrParse is returned when a message body cannot be decoded into a ProductInput
	ErrParse = errors.New("parse error")

	// ErrValidation is returned when a decoded ProductInput is semantically invalid
	ErrValidation = errors.New("validation error")

	// ErrPersistence is returned when a store write fails
	ErrPersistence = errors.New("persistence error")

	// ErrCancelled is returned for items not completed before the batch was cancelled
	ErrCancelled = errors.New("cancelled")
)

// Error kind names reported in batch failures
const (
	KindParse       = "ParseError"
	KindValidation  = "ValidationError"
	KindPersistence = "PersistenceError"
	KindCancelled   = "Cancelled"
	KindInternal    = "InternalError"
)

// KindOf classifies an item error into one of the ingestion error kinds
func KindOf(err error) string {
	switch {
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, ErrParse):
		return KindParse
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrPersistence):
		return KindPersistence
	default:
		return KindInternal
	}
}
