package schema

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/tidegate/sqlgen/dialect"
	"github.com/tidegate/sqlgen/dialect/sql"
)

var fkColumns = []string{
	"constraint_name", "table_name", "column_name",
	"referenced_table_name", "referenced_column_name",
}

var constraintColumns = []string{
	"constraintCatalog", "constraintName", "constraintSchema",
	"constraintType", "tableName", "tableSchema",
}

func mockMigrate(t *testing.T, opts ...MigrateOption) (*Migrate, sqlmock.Sqlmock) {
	t.Helper()
	db, mk, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewMigrate(sql.OpenDB(dialect.MySQL, db), opts...), mk
}

// escape turns a statement into an exact-match regexp for sqlmock.
func escape(q string) string {
	return "^" + regexp.QuoteMeta(q) + "$"
}

func TestMigrateRemoveColumn(t *testing.T) {
	tbl := Table{Name: "users"}
	gen := MySQL{}

	t.Run("NoForeignKeys", func(t *testing.T) {
		m, mk := mockMigrate(t)
		mk.ExpectQuery(escape(gen.ForeignKey(tbl, "age"))).
			WillReturnRows(sqlmock.NewRows(fkColumns))
		mk.ExpectExec(escape("ALTER TABLE `users` DROP `age`")).
			WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, m.RemoveColumn(context.Background(), tbl, "age"))
		require.NoError(t, mk.ExpectationsWereMet())
	})

	t.Run("DropsForeignKeysFirst", func(t *testing.T) {
		m, mk := mockMigrate(t)
		mk.ExpectQuery(escape(gen.ForeignKey(tbl, "team_id"))).
			WillReturnRows(sqlmock.NewRows(fkColumns).
				AddRow("PRIMARY", "users", "team_id", nil, nil).
				AddRow("users_team_id_fk", "users", "team_id", "teams", "id").
				AddRow("rosters_team_id_fk", "rosters", "team_id", "users", "team_id"))
		// The primary-key row is skipped; both real constraints are
		// dropped before the column itself, in row order.
		mk.ExpectExec(escape("ALTER TABLE `users` DROP FOREIGN KEY `users_team_id_fk`")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mk.ExpectExec(escape("ALTER TABLE `users` DROP FOREIGN KEY `rosters_team_id_fk`")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mk.ExpectExec(escape("ALTER TABLE `users` DROP `team_id`")).
			WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, m.RemoveColumn(context.Background(), tbl, "team_id"))
		require.NoError(t, mk.ExpectationsWereMet())
	})

	t.Run("DropFailureStops", func(t *testing.T) {
		m, mk := mockMigrate(t)
		mk.ExpectQuery(escape(gen.ForeignKey(tbl, "team_id"))).
			WillReturnRows(sqlmock.NewRows(fkColumns).
				AddRow("users_team_id_fk", "users", "team_id", "teams", "id"))
		mk.ExpectExec(escape("ALTER TABLE `users` DROP FOREIGN KEY `users_team_id_fk`")).
			WillReturnError(errors.New("lock wait timeout"))

		err := m.RemoveColumn(context.Background(), tbl, "team_id")
		require.True(t, IsStatementExecution(err))
		require.ErrorContains(t, err, "lock wait timeout")
		require.NoError(t, mk.ExpectationsWereMet())
	})

	t.Run("IntrospectionFailure", func(t *testing.T) {
		m, mk := mockMigrate(t)
		mk.ExpectQuery(escape(gen.ForeignKey(tbl, "age"))).
			WillReturnError(errors.New("table gone"))

		err := m.RemoveColumn(context.Background(), tbl, "age")
		require.True(t, IsStatementExecution(err))
		require.NoError(t, mk.ExpectationsWereMet())
	})
}

func TestMigrateRemoveConstraint(t *testing.T) {
	tbl := Table{Name: "tasks", Schema: "app"}
	gen := MySQL{}

	t.Run("ForeignKey", func(t *testing.T) {
		m, mk := mockMigrate(t)
		mk.ExpectQuery(escape(gen.ShowConstraints(tbl, "tasks_owner_fk"))).
			WillReturnRows(sqlmock.NewRows(constraintColumns).
				AddRow("def", "tasks_owner_fk", "app", "FOREIGN KEY", "tasks", "app"))
		mk.ExpectExec(escape("ALTER TABLE `app`.`tasks` DROP FOREIGN KEY `tasks_owner_fk`")).
			WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, m.RemoveConstraint(context.Background(), tbl, "tasks_owner_fk"))
		require.NoError(t, mk.ExpectationsWereMet())
	})

	t.Run("UniqueBecomesDropIndex", func(t *testing.T) {
		m, mk := mockMigrate(t)
		mk.ExpectQuery(escape(gen.ShowConstraints(tbl, "uniq_email"))).
			WillReturnRows(sqlmock.NewRows(constraintColumns).
				AddRow("def", "uniq_email", "app", "UNIQUE", "tasks", "app"))
		mk.ExpectExec(escape("DROP INDEX `uniq_email` ON `app`.`tasks`")).
			WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, m.RemoveConstraint(context.Background(), tbl, "uniq_email"))
		require.NoError(t, mk.ExpectationsWereMet())
	})

	t.Run("Unknown", func(t *testing.T) {
		m, mk := mockMigrate(t)
		mk.ExpectQuery(escape(gen.ShowConstraints(tbl, "missing"))).
			WillReturnRows(sqlmock.NewRows(constraintColumns))

		err := m.RemoveConstraint(context.Background(), tbl, "missing")
		require.True(t, IsUnknownConstraint(err))
		var kerr *UnknownConstraintError
		require.ErrorAs(t, err, &kerr)
		require.Equal(t, "missing", kerr.Constraint)
		require.Equal(t, "app.tasks", kerr.Table.String())
		require.NoError(t, mk.ExpectationsWereMet())
	})
}

func TestMigrateCreateFunction(t *testing.T) {
	gen := MySQL{}
	routine := Routine{
		Name:     "add_one",
		Params:   []Param{{Name: "x", Type: "INTEGER"}},
		Returns:  "INTEGER",
		Language: "SQL",
		Body:     "RETURN x + 1;",
	}
	text, err := gen.CreateFunction(routine)
	require.NoError(t, err)

	t.Run("ThreeSteps", func(t *testing.T) {
		m, mk := mockMigrate(t)
		mk.ExpectExec(escape("DELIMITER $$")).WillReturnResult(sqlmock.NewResult(0, 0))
		mk.ExpectExec(escape(text + "$$")).WillReturnResult(sqlmock.NewResult(0, 0))
		mk.ExpectExec(escape("DELIMITER ;")).WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, m.CreateFunction(context.Background(), routine))
		require.NoError(t, mk.ExpectationsWereMet())
	})

	t.Run("CustomDelimiter", func(t *testing.T) {
		m, mk := mockMigrate(t, WithDelimiter("//"))
		mk.ExpectExec(escape("DELIMITER //")).WillReturnResult(sqlmock.NewResult(0, 0))
		mk.ExpectExec(escape(text + "//")).WillReturnResult(sqlmock.NewResult(0, 0))
		mk.ExpectExec(escape("DELIMITER ;")).WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, m.CreateFunction(context.Background(), routine))
		require.NoError(t, mk.ExpectationsWereMet())
	})

	t.Run("BodyFailureSkipsRestore", func(t *testing.T) {
		m, mk := mockMigrate(t)
		mk.ExpectExec(escape("DELIMITER $$")).WillReturnResult(sqlmock.NewResult(0, 0))
		mk.ExpectExec(escape(text + "$$")).WillReturnError(errors.New("syntax error"))

		err := m.CreateFunction(context.Background(), routine)
		require.True(t, IsStatementExecution(err))
		var serr *StatementExecutionError
		require.ErrorAs(t, err, &serr)
		require.Equal(t, text+"$$", serr.Stmt)
		// The delimiter restore is never attempted.
		require.NoError(t, mk.ExpectationsWereMet())
	})

	t.Run("InvalidRoutine", func(t *testing.T) {
		m, mk := mockMigrate(t)
		err := m.CreateFunction(context.Background(), Routine{Name: "broken"})
		require.True(t, IsParameterError(err))
		// Nothing reaches the session on a validation failure.
		require.NoError(t, mk.ExpectationsWereMet())
	})
}
