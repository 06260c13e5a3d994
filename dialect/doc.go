// Package dialect defines the execution-channel contract used by the
// statement generator and the schema orchestrator.
//
// The package declares the Driver, Tx and ExecQuerier interfaces, the
// closed set of dialect name constants, and a Debug wrapper that logs
// every outgoing statement.
//
// Statement text is produced by the dialect/sql/schema package and
// submitted through an ExecQuerier; the dialect/sql package provides
// the database/sql-backed implementation.
package dialect
