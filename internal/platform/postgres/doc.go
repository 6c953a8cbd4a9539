// Package postgres implements the store interfaces on PostgreSQL.
//
// All stores accept a store.DBTX so callers can pass either the shared
// *sql.DB or a transaction. Status transitions and quota reservations
// are the two places that must be atomic under concurrent workers;
// UpdateTaskStatus takes a row lock inside a transaction, and
// ReserveQuota is a single conditional upsert.
package postgres
