package schema

import (
	"context"
	"log/slog"

	"github.com/tidegate/sqlgen/dialect"
	"github.com/tidegate/sqlgen/dialect/sql"
)

// DefaultDelimiter is the sentinel statement delimiter used while a
// routine body is submitted.
const DefaultDelimiter = "$$"

// Migrate sequences multiple generated statements, plus introspection
// round-trips, for the schema operations MySQL cannot express as one
// statement. Every operation runs strictly in order on the session
// behind the given ExecQuerier; introspection results are never cached
// across calls.
type Migrate struct {
	drv       dialect.ExecQuerier
	gen       MySQL
	delimiter string
	log       *slog.Logger
}

// MigrateOption configures a Migrate.
type MigrateOption func(*Migrate)

// WithDelimiter overrides the sentinel delimiter token used when
// submitting routine bodies.
func WithDelimiter(token string) MigrateOption {
	return func(m *Migrate) {
		m.delimiter = token
	}
}

// WithLogger sets the logger for submitted statements. The default
// discards everything.
func WithLogger(l *slog.Logger) MigrateOption {
	return func(m *Migrate) {
		m.log = l
	}
}

// NewMigrate binds the MySQL generator to an execution channel. The
// dialect variant is fixed here, at construction.
func NewMigrate(drv dialect.ExecQuerier, opts ...MigrateOption) *Migrate {
	m := &Migrate{
		drv:       drv,
		delimiter: DefaultDelimiter,
		log:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RemoveColumn drops a column after dropping every foreign key that
// involves it. The foreign keys are re-derived from a fresh
// introspection query, the implicit primary-key constraint is skipped,
// and each drop must succeed before the column itself is removed.
func (m *Migrate) RemoveColumn(ctx context.Context, t Table, column string) error {
	names, err := m.queryConstraintNames(ctx, m.gen.ForeignKey(t, column))
	if err != nil {
		return err
	}
	for _, name := range names {
		if name == "PRIMARY" {
			continue
		}
		if err := m.exec(ctx, m.gen.DropForeignKey(t, name)); err != nil {
			return err
		}
	}
	return m.exec(ctx, m.gen.RemoveColumn(t, column))
}

// RemoveConstraint looks the constraint up by name and drops it: a
// FOREIGN KEY constraint through DROP FOREIGN KEY, anything else
// through DROP INDEX. A missing constraint is an UnknownConstraintError.
func (m *Migrate) RemoveConstraint(ctx context.Context, t Table, name string) error {
	c, ok, err := m.queryConstraint(ctx, m.gen.ShowConstraints(t, name))
	if err != nil {
		return err
	}
	if !ok {
		return &UnknownConstraintError{Constraint: name, Table: t}
	}
	owner := Table{Name: c.Table, Schema: t.Schema}
	if c.Type == "FOREIGN KEY" {
		return m.exec(ctx, m.gen.DropForeignKey(owner, c.Name))
	}
	stmt, err := m.gen.RemoveIndex(owner, c.Name, nil)
	if err != nil {
		return err
	}
	return m.exec(ctx, stmt)
}

// CreateFunction submits a routine definition as a fixed three-step
// sequence on one session: switch the statement delimiter to the
// sentinel, submit the body terminated by it, restore the semicolon.
// The session delimiter, not this orchestration, owns the switched
// state: a failure after the first step leaves the session on the
// sentinel and is surfaced without attempting the remaining steps.
func (m *Migrate) CreateFunction(ctx context.Context, r Routine) error {
	text, err := m.gen.CreateFunction(r)
	if err != nil {
		return err
	}
	if text == "" {
		return nil
	}
	if err := m.exec(ctx, "DELIMITER "+m.delimiter); err != nil {
		return err
	}
	if err := m.exec(ctx, text+m.delimiter); err != nil {
		return err
	}
	return m.exec(ctx, "DELIMITER ;")
}

// exec submits one statement through the channel.
func (m *Migrate) exec(ctx context.Context, stmt string) error {
	m.log.Debug("exec", "stmt", stmt)
	if err := m.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
		return &StatementExecutionError{Stmt: stmt, Err: err}
	}
	return nil
}

// queryConstraintNames runs an introspection query and collects the
// constraint name of every returned row.
func (m *Migrate) queryConstraintNames(ctx context.Context, query string) ([]string, error) {
	m.log.Debug("query", "stmt", query)
	rows := &sql.Rows{}
	if err := m.drv.Query(ctx, query, []any{}, rows); err != nil {
		return nil, &StatementExecutionError{Stmt: query, Err: err}
	}
	defer rows.Close()
	columns, err := rows.Columns()
	if err != nil {
		return nil, &StatementExecutionError{Stmt: query, Err: err}
	}
	var names []string
	for rows.Next() {
		var name sql.NullString
		dest := make([]any, len(columns))
		dest[0] = &name
		for i := 1; i < len(dest); i++ {
			dest[i] = new(sql.NullString)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, &StatementExecutionError{Stmt: query, Err: err}
		}
		names = append(names, name.String)
	}
	if err := rows.Err(); err != nil {
		return nil, &StatementExecutionError{Stmt: query, Err: err}
	}
	return names, nil
}

// queryConstraint runs the constraint introspection query and returns
// its first row, if any.
func (m *Migrate) queryConstraint(ctx context.Context, query string) (Constraint, bool, error) {
	m.log.Debug("query", "stmt", query)
	rows := &sql.Rows{}
	if err := m.drv.Query(ctx, query, []any{}, rows); err != nil {
		return Constraint{}, false, &StatementExecutionError{Stmt: query, Err: err}
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Constraint{}, false, &StatementExecutionError{Stmt: query, Err: err}
		}
		return Constraint{}, false, nil
	}
	var catalog, name, schema, typ, table, tableSchema sql.NullString
	if err := rows.Scan(&catalog, &name, &schema, &typ, &table, &tableSchema); err != nil {
		return Constraint{}, false, &StatementExecutionError{Stmt: query, Err: err}
	}
	return Constraint{
		Catalog:     catalog.String,
		Name:        name.String,
		Schema:      schema.String,
		Type:        typ.String,
		Table:       table.String,
		TableSchema: tableSchema.String,
	}, true, nil
}
