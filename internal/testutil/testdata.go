package testutil

import (
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/require"
)

// Item mirrors the columns of the Hacker News dump. Pointer fields are
// written as optional parquet columns.
type Item struct {
	ID    int64   `parquet:"id"`
	Time  *int64  `parquet:"time,optional"`
	Type  *string `parquet:"type,optional"`
	By    *string `parquet:"by,optional"`
	Title *string `parquet:"title,optional"`
	Score *int64  `parquet:"score,optional"`
}

// WriteParquet writes rows to dir/name and returns the full path.
func WriteParquet[T any](t testing.TB, dir, name string, rows []T) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, parquet.WriteFile(path, rows))
	return path
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
