package dbexec

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardExecutorNilHandle(t *testing.T) {
	exec := NewStandardExecutor(nil)
	ctx := context.Background()

	_, err := exec.QueryContext(ctx, "SELECT 1")
	assert.ErrorIs(t, err, sql.ErrConnDone)

	_, err = exec.ExecContext(ctx, "DELETE FROM users")
	assert.ErrorIs(t, err, sql.ErrConnDone)

	row := exec.QueryRowContext(ctx, "SELECT 1")
	require.NotNil(t, row)
	var n int
	assert.ErrorIs(t, row.Scan(&n), sql.ErrConnDone)
}
