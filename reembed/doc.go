// Package reembed re-ingests every document of a project, typically after
// the embedding model or chunking parameters changed.
//
// Documents are listed once, split into batches and run through the
// ingestion pipeline. Results that failed with a retryable error are
// retried with exponential backoff, and progress is reported through slog.
package reembed
