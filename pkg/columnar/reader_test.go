package columnar

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/edgeflare/hnstream/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanNoFiles(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "hacker_news_full_*.parquet"))
	require.Error(t, err)

	var fae *FileAccessError
	require.ErrorAs(t, err, &fae)
	assert.ErrorIs(t, err, ErrNoFiles)
}

func TestScanNotParquet(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hacker_news_full_1.parquet"), []byte("not parquet"), 0o644))

	_, err := Scan(filepath.Join(dir, "hacker_news_full_*.parquet"))
	var fae *FileAccessError
	require.ErrorAs(t, err, &fae)
	assert.Equal(t, filepath.Join(dir, "hacker_news_full_1.parquet"), fae.Path)
}

func TestCollectAcrossPartitions(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteParquet(t, dir, "hacker_news_full_2.parquet", []testutil.Item{
		{ID: 3, Type: testutil.Ptr("comment"), Score: testutil.Ptr(int64(7))},
	})
	testutil.WriteParquet(t, dir, "hacker_news_full_1.parquet", []testutil.Item{
		{ID: 1, Time: testutil.Ptr(int64(100)), Type: testutil.Ptr("story"), Title: testutil.Ptr("a")},
		{ID: 2, Type: testutil.Ptr("comment")},
	})

	view, err := Scan(filepath.Join(dir, "hacker_news_full_*.parquet"))
	require.NoError(t, err)
	assert.Len(t, view.Files(), 2)
	assert.Contains(t, view.Columns(), "by")

	table, err := view.Select("id", "time", "title").Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, table.Len())
	assert.Equal(t, []string{"id", "time", "title"}, table.ColumnNames())

	ids, err := table.Ints("id")
	require.NoError(t, err)
	for i, want := range []int64{1, 2, 3} {
		got, ok := ids.Value(i)
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}

	times, err := table.Ints("time")
	require.NoError(t, err)
	ts, ok := times.Value(0)
	assert.True(t, ok)
	assert.Equal(t, int64(100), ts)
	assert.True(t, times.IsNull(1))
	assert.True(t, times.IsNull(2))

	titles, err := table.Strings("title")
	require.NoError(t, err)
	title, ok := titles.Value(0)
	assert.True(t, ok)
	assert.Equal(t, "a", title)
	_, ok = titles.Value(1)
	assert.False(t, ok)

	_, err = table.Column("by")
	var sme *SchemaMismatchError
	assert.ErrorAs(t, err, &sme)
}

func TestCollectIsRestartable(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteParquet(t, dir, "items.parquet", []testutil.Item{{ID: 1}, {ID: 2}})

	view, err := Scan(filepath.Join(dir, "*.parquet"))
	require.NoError(t, err)
	view = view.Select("id")

	first, err := view.Collect(context.Background())
	require.NoError(t, err)
	second, err := view.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.Len(), second.Len())
}

func TestCollectMissingColumn(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteParquet(t, dir, "items.parquet", []testutil.Item{{ID: 1}})

	view, err := Scan(filepath.Join(dir, "*.parquet"))
	require.NoError(t, err)

	_, err = view.Select("id", "descendants").Collect(context.Background())
	var sme *SchemaMismatchError
	require.ErrorAs(t, err, &sme)
	assert.Equal(t, "descendants", sme.Column)
}

func TestCollectKindChangesBetweenFiles(t *testing.T) {
	type textID struct {
		ID string `parquet:"id"`
	}
	dir := t.TempDir()
	testutil.WriteParquet(t, dir, "a.parquet", []testutil.Item{{ID: 1}})
	testutil.WriteParquet(t, dir, "b.parquet", []textID{{ID: "2"}})

	view, err := Scan(filepath.Join(dir, "*.parquet"))
	require.NoError(t, err)

	_, err = view.Select("id").Collect(context.Background())
	var sme *SchemaMismatchError
	require.ErrorAs(t, err, &sme)
	assert.Equal(t, "int", sme.Expected)
}

func TestCollectUnsignedColumns(t *testing.T) {
	type unsignedItem struct {
		ID   uint32 `parquet:"id"`
		Time uint64 `parquet:"time"`
	}
	dir := t.TempDir()
	testutil.WriteParquet(t, dir, "items.parquet", []unsignedItem{
		{ID: 3_000_000_000, Time: math.MaxUint64},
		{ID: 7, Time: 1},
	})

	view, err := Scan(filepath.Join(dir, "*.parquet"))
	require.NoError(t, err)
	table, err := view.Select("id", "time").Collect(context.Background())
	require.NoError(t, err)

	ids, err := table.Ints("id")
	require.NoError(t, err)
	assert.True(t, ids.Unsigned())
	id, ok := ids.Uint(0)
	assert.True(t, ok)
	assert.Equal(t, uint64(3_000_000_000), id)
	signed, _ := ids.Value(0)
	assert.Equal(t, int64(3_000_000_000), signed)

	times, err := table.Ints("time")
	require.NoError(t, err)
	ts, ok := times.Uint(0)
	assert.True(t, ok)
	assert.Equal(t, uint64(math.MaxUint64), ts)
	ts, _ = times.Uint(1)
	assert.Equal(t, uint64(1), ts)
}

func TestCollectSignednessChangesBetweenFiles(t *testing.T) {
	type unsignedID struct {
		ID uint64 `parquet:"id"`
	}
	dir := t.TempDir()
	testutil.WriteParquet(t, dir, "a.parquet", []testutil.Item{{ID: 1}})
	testutil.WriteParquet(t, dir, "b.parquet", []unsignedID{{ID: 2}})

	view, err := Scan(filepath.Join(dir, "*.parquet"))
	require.NoError(t, err)

	_, err = view.Select("id").Collect(context.Background())
	var sme *SchemaMismatchError
	require.ErrorAs(t, err, &sme)
	assert.Equal(t, "signed int", sme.Expected)
}

func TestCollectCanceled(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteParquet(t, dir, "items.parquet", []testutil.Item{{ID: 1}})

	view, err := Scan(filepath.Join(dir, "*.parquet"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = view.Collect(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewTableRejectsUnalignedColumns(t *testing.T) {
	_, err := NewTable(
		IntColumnOf("id", testutil.Ptr(int64(1)), testutil.Ptr(int64(2))),
		StringColumnOf("type", testutil.Ptr("story")),
	)
	var sme *SchemaMismatchError
	require.ErrorAs(t, err, &sme)
	assert.Equal(t, "type", sme.Column)
}
