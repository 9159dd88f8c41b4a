// Package ingestion turns stored documents into searchable chunks.
//
// A Pipeline drives each document through its lifecycle:
//
//	pending → processing → complete | failed
//
// Processing loads the document, splits its content with a chunker, embeds
// every chunk and atomically replaces the document's chunk set. Any failure
// marks the document failed and leaves its previous chunks untouched.
//
// ProcessDocumentBatch runs documents concurrently on a bounded worker pool.
// Each document is isolated: a failing document never aborts its siblings,
// and results are returned in input order. Neither entry point returns an
// error; outcomes are reported through core.BatchResult values.
package ingestion
