package reembed

import "errors"

var (
	// ErrStoreRequired is returned when a Reembedder is built without a store.
	ErrStoreRequired = errors.New("document store is required")

	// ErrIngesterRequired is returned when a Reembedder is built without an ingester.
	ErrIngesterRequired = errors.New("ingester is required")

	// ErrInvalidMaxRetries is returned when maxRetries is < 0
	ErrInvalidMaxRetries = errors.New("maxRetries cannot be negative")

	// ErrInvalidBatchSize is returned when batchSize is <= 0
	ErrInvalidBatchSize = errors.New("batchSize must be greater than 0")
)
