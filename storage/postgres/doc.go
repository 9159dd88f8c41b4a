// Package postgres implements storage.Store on PostgreSQL with pgvector.
//
// Documents and chunks live in two tables joined by a cascading foreign key.
// Vectors are stored in a vector(N) column whose dimension is fixed when the
// schema is migrated; Open refuses to serve a store created with a different
// dimension.
//
// Schema changes are applied with Migrate, which renders the embedded SQL
// migrations for the configured dimension and runs them through
// golang-migrate.
package postgres
