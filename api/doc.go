// Package api exposes the knowledge pipeline over HTTP.
//
// Routes:
//
//	GET    /healthz
//	POST   /v1/projects/{projectID}/documents
//	GET    /v1/projects/{projectID}/documents
//	POST   /v1/projects/{projectID}/retrieve
//	GET    /v1/documents/{id}
//	DELETE /v1/documents/{id}
//	POST   /v1/documents/{id}/ingest
//	POST   /v1/ingest
//
// Ingestion endpoints report one result per document. A batch where every
// document succeeded answers 200, a mixed batch 207 Multi-Status and a batch
// where every document failed 422. A document left in processing by an
// interrupted run answers 409 until it is re-triggered with
// POST /v1/documents/{id}/ingest?force=true.
package api
