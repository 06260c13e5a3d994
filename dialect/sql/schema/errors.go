package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ParameterError reports a required argument that is missing or
// structurally invalid. It is raised before any statement is sent.
type ParameterError struct {
	Msg string
}

// Error returns the error string.
func (e *ParameterError) Error() string {
	return "sqlgen: " + e.Msg
}

// IsParameterError returns true if the error is a ParameterError.
func IsParameterError(err error) bool {
	var e *ParameterError
	return errors.As(err, &e)
}

func parameterErrorf(format string, args ...any) *ParameterError {
	return &ParameterError{Msg: fmt.Sprintf(format, args...)}
}

// UnsupportedOperationError reports DDL the dialect cannot express.
// It is raised immediately, with no I/O attempted.
type UnsupportedOperationError struct {
	Op     string
	Reason string
}

// Error returns the error string.
func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("sqlgen: %s is not supported by the mysql dialect: %s", e.Op, e.Reason)
}

// IsUnsupportedOperation returns true if the error is an UnsupportedOperationError.
func IsUnsupportedOperation(err error) bool {
	var e *UnsupportedOperationError
	return errors.As(err, &e)
}

// UnknownConstraintError reports that introspection found no constraint
// of the requested name on the requested table.
type UnknownConstraintError struct {
	Constraint string
	Table      Table
}

// Error returns the error string.
func (e *UnknownConstraintError) Error() string {
	return fmt.Sprintf("sqlgen: unknown constraint %q on table %q", e.Constraint, e.Table)
}

// IsUnknownConstraint returns true if the error is an UnknownConstraintError.
func IsUnknownConstraint(err error) bool {
	var e *UnknownConstraintError
	return errors.As(err, &e)
}

// StatementExecutionError is an opaque failure surfaced from the
// execution channel. The engine error is carried verbatim and never
// reclassified; suppression policies are the caller's responsibility.
type StatementExecutionError struct {
	Stmt string
	Err  error
}

// Error returns the error string.
func (e *StatementExecutionError) Error() string {
	return fmt.Sprintf("sqlgen: statement failed: %v", e.Err)
}

// Unwrap returns the underlying execution error.
func (e *StatementExecutionError) Unwrap() error {
	return e.Err
}

// IsStatementExecution returns true if the error is a StatementExecutionError.
func IsStatementExecution(err error) bool {
	var e *StatementExecutionError
	return errors.As(err, &e)
}

// MySQL error numbers for constraint violations.
const (
	mysqlDuplicateEntry   = 1062
	mysqlForeignKeyParent = 1451 // Cannot delete or update a parent row
	mysqlForeignKeyChild  = 1452 // Cannot add or update a child row
)

// IsUniqueConstraintError reports if the error resulted from a
// uniqueness violation reported by the engine.
func IsUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDuplicateEntry
	}
	// Fallback for channels that flatten driver errors into text.
	return strings.Contains(err.Error(), "Error 1062")
}

// IsForeignKeyConstraintError reports if the error resulted from a
// referential-integrity violation reported by the engine.
func IsForeignKeyConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlForeignKeyParent || me.Number == mysqlForeignKeyChild
	}
	return strings.Contains(err.Error(), "Error 1451") || strings.Contains(err.Error(), "Error 1452")
}
