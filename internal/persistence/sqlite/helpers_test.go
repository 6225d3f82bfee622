package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/wavemeet/internal/persistence/sqlite"
	"github.com/example/wavemeet/internal/testfixtures"
)

func newStorage(t *testing.T) (*sqlite.Storage, context.Context) {
	t.Helper()
	return testfixtures.NewSQLiteStorage(t), context.Background()
}

func countRows(t *testing.T, storage *sqlite.Storage, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, storage.Pool().DB().QueryRow(query, args...).Scan(&n))
	return n
}

var baseTime = testfixtures.ReferenceTime()

func at(offset time.Duration) time.Time {
	return baseTime.Add(offset)
}
