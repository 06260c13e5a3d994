package schema

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorTaxonomy(t *testing.T) {
	perr := parameterErrorf("column %q requires a name", "x")
	require.EqualError(t, perr, `sqlgen: column "x" requires a name`)
	require.True(t, IsParameterError(perr))
	require.False(t, IsUnsupportedOperation(perr))

	uerr := &UnsupportedOperationError{Op: "renameFunction", Reason: "no native syntax"}
	require.True(t, IsUnsupportedOperation(uerr))
	require.Contains(t, uerr.Error(), "renameFunction")
	require.False(t, IsParameterError(uerr))

	kerr := &UnknownConstraintError{Constraint: "fk_owner", Table: Table{Name: "tasks", Schema: "app"}}
	require.True(t, IsUnknownConstraint(kerr))
	require.EqualError(t, kerr, `sqlgen: unknown constraint "fk_owner" on table "app.tasks"`)

	inner := errors.New("connection reset")
	serr := &StatementExecutionError{Stmt: "TRUNCATE `t`", Err: inner}
	require.True(t, IsStatementExecution(serr))
	require.ErrorIs(t, serr, inner)

	// Classification survives wrapping.
	wrapped := fmt.Errorf("migrate: %w", serr)
	require.True(t, IsStatementExecution(wrapped))
	require.False(t, IsStatementExecution(errors.New("plain")))
}

func TestConstraintErrorClassification(t *testing.T) {
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a' for key 'uniq_email'"}
	assert.True(t, IsUniqueConstraintError(dup))
	assert.False(t, IsForeignKeyConstraintError(dup))

	// The engine error stays classifiable through the orchestration wrapper.
	wrapped := &StatementExecutionError{Stmt: "INSERT ...", Err: dup}
	assert.True(t, IsUniqueConstraintError(wrapped))

	parent := &mysql.MySQLError{Number: 1451, Message: "Cannot delete or update a parent row"}
	child := &mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"}
	assert.True(t, IsForeignKeyConstraintError(parent))
	assert.True(t, IsForeignKeyConstraintError(child))
	assert.False(t, IsUniqueConstraintError(parent))

	// Flattened driver errors fall back to text matching.
	assert.True(t, IsUniqueConstraintError(errors.New("Error 1062: Duplicate entry")))
	assert.True(t, IsForeignKeyConstraintError(errors.New("Error 1452: Cannot add or update a child row")))

	assert.False(t, IsUniqueConstraintError(nil))
	assert.False(t, IsForeignKeyConstraintError(nil))
	assert.False(t, IsUniqueConstraintError(errors.New("syntax error")))
}
