package dialect_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/tidegate/sqlgen/dialect"
	"github.com/tidegate/sqlgen/dialect/sql"
)

func TestDebugDriver(t *testing.T) {
	db, mk, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var logged []string
	drv := dialect.Debug(sql.OpenDB(dialect.MySQL, db), func(_ context.Context, v ...any) {
		logged = append(logged, fmt.Sprint(v...))
	})
	ctx := context.Background()

	mk.ExpectExec("TRUNCATE `users`").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, drv.Exec(ctx, "TRUNCATE `users`", []any{}, nil))

	mk.ExpectBegin()
	mk.ExpectExec("DELIMITER ;").WillReturnResult(sqlmock.NewResult(0, 0))
	mk.ExpectRollback()
	tx, err := drv.Tx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Exec(ctx, "DELIMITER ;", []any{}, nil))
	require.NoError(t, tx.Rollback())

	require.NoError(t, mk.ExpectationsWereMet())
	joined := strings.Join(logged, "\n")
	require.Contains(t, joined, "driver.Exec: query=TRUNCATE `users`")
	require.Contains(t, joined, "driver.Tx: started")
	require.Contains(t, joined, "Tx.Exec: query=DELIMITER ;")
	require.Contains(t, joined, "Tx.Rollback")
}
