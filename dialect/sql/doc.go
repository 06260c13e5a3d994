// Package sql provides a thin wrapper around database/sql that adapts
// connection pools and transactions to the dialect.ExecQuerier contract.
package sql
