// Package postgres implements storage.Store on PostgreSQL with pgx.
//
// Records live in the quota_control_field table, created by the embedded
// migrations on Open. Transaction-scoped reads take a row lock
// (SELECT ... FOR UPDATE) and transitions are conditional updates that must
// affect exactly one row.
package postgres
