package hackernews

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/edgeflare/hnstream/internal/testutil"
	"github.com/edgeflare/hnstream/pkg/columnar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func i64(v int64) *int64 { return &v }
func str(s string) *string { return &s }

func table(t *testing.T, ids []*int64, times []*int64, types []*string, titles []*string, scores []*int64) *columnar.Table {
	t.Helper()
	tbl, err := columnar.NewTable(
		columnar.IntColumnOf(ColumnID, ids...),
		columnar.IntColumnOf(ColumnTime, times...),
		columnar.StringColumnOf(ColumnType, types...),
		columnar.StringColumnOf(ColumnTitle, titles...),
		columnar.IntColumnOf(ColumnScore, scores...),
	)
	require.NoError(t, err)
	return tbl
}

func TestParseRowType(t *testing.T) {
	testCases := []struct {
		in   string
		want RowType
	}{
		{in: "story", want: Story},
		{in: "comment", want: Comment},
		{in: "poll", want: Comment},
		{in: "pollopt", want: Comment},
		{in: "job", want: Comment},
		{in: "", want: Comment},
		{in: "Story", want: Comment},
		{in: " story", want: Comment},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseRowType(tc.in))
		})
	}
}

func TestEncodeScenarios(t *testing.T) {
	testCases := []struct {
		name  string
		table func(t *testing.T) *columnar.Table
		want  Row
	}{
		{
			name: "story with null time and title",
			table: func(t *testing.T) *columnar.Table {
				return table(t, []*int64{i64(1)}, []*int64{nil}, []*string{str("story")}, []*string{nil}, []*int64{i64(5)})
			},
			want: Row{ID: 1, Timestamp: 0, Type: Story, Title: "", Score: 5},
		},
		{
			name: "comment with null score",
			table: func(t *testing.T) *columnar.Table {
				return table(t, []*int64{i64(2)}, []*int64{i64(1000)}, []*string{str("comment")}, []*string{str("hi")}, []*int64{nil})
			},
			want: Row{ID: 2, Timestamp: 1000, Type: Comment, Title: "hi", Score: 0},
		},
		{
			name: "unknown type falls back to comment",
			table: func(t *testing.T) *columnar.Table {
				return table(t, []*int64{i64(3)}, []*int64{i64(7)}, []*string{str("poll")}, []*string{str("q")}, []*int64{i64(9)})
			},
			want: Row{ID: 3, Timestamp: 7, Type: Comment, Title: "q", Score: 9},
		},
		{
			name: "empty type falls back to comment",
			table: func(t *testing.T) *columnar.Table {
				return table(t, []*int64{i64(4)}, []*int64{nil}, []*string{str("")}, []*string{nil}, []*int64{nil})
			},
			want: Row{ID: 4, Type: Comment},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			msgs, err := Encoder{}.EncodeTable(tc.table(t))
			require.NoError(t, err)
			require.Len(t, msgs, 1)

			got, err := Decode(msgs[0])
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	rows := []Row{
		{ID: 1, Timestamp: 1160418111, Type: Story, Title: "Y Combinator", Score: 57},
		{ID: math.MaxUint32, Timestamp: math.MaxUint64, Type: Comment, Title: "ünïcode ✓", Score: math.MaxUint32},
		{ID: 42, Timestamp: 1, Type: Comment, Title: "x", Score: 1},
	}
	for _, format := range []Format{FormatProtobuf, FormatJSON} {
		t.Run(string(format), func(t *testing.T) {
			enc := Encoder{Format: format}
			for _, r := range rows {
				b, err := enc.Encode(r)
				require.NoError(t, err)

				var got Row
				if format == FormatJSON {
					got, err = DecodeJSON(b)
				} else {
					got, err = Decode(b)
				}
				require.NoError(t, err)
				assert.Equal(t, r, got)
			}
		})
	}
}

func TestEncodeFieldTags(t *testing.T) {
	b, err := Encoder{}.Encode(Row{ID: 1, Timestamp: 2, Type: Comment, Title: "t", Score: 3})
	require.NoError(t, err)

	seen := map[protowire.Number]protowire.Type{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		require.Positive(t, n)
		b = b[n:]
		seen[num] = typ
		n = protowire.ConsumeFieldValue(num, typ, b)
		require.Positive(t, n)
		b = b[n:]
	}

	assert.Equal(t, map[protowire.Number]protowire.Type{
		1: protowire.VarintType,
		2: protowire.VarintType,
		3: protowire.VarintType,
		4: protowire.BytesType,
		5: protowire.VarintType,
	}, seen)
}

func TestEncodePreservesOrder(t *testing.T) {
	const n = 50
	ids := make([]*int64, n)
	times := make([]*int64, n)
	types := make([]*string, n)
	titles := make([]*string, n)
	scores := make([]*int64, n)
	for i := range n {
		ids[i] = i64(int64(n - i))
		if i%2 == 0 {
			types[i] = str("story")
		} else {
			types[i] = str("comment")
		}
		if i%3 == 0 {
			times[i] = i64(int64(i * 10))
		}
	}

	msgs, err := Encoder{}.EncodeTable(table(t, ids, times, types, titles, scores))
	require.NoError(t, err)
	require.Len(t, msgs, n)

	for i, m := range msgs {
		got, err := Decode(m)
		require.NoError(t, err)
		assert.Equal(t, uint32(n-i), got.ID, "row %d", i)
		if i%3 == 0 {
			assert.Equal(t, uint64(i*10), got.Timestamp)
		} else {
			assert.Zero(t, got.Timestamp)
		}
	}
}

func TestRowsMissingRequired(t *testing.T) {
	_, err := Rows(table(t, []*int64{i64(1), nil}, []*int64{nil, nil}, []*string{str("story"), str("story")}, []*string{nil, nil}, []*int64{nil, nil}))
	var mrf *MissingRequiredFieldError
	require.ErrorAs(t, err, &mrf)
	assert.Equal(t, ColumnID, mrf.Column)
	assert.Equal(t, 1, mrf.Row)

	_, err = Rows(table(t, []*int64{i64(1)}, []*int64{nil}, []*string{nil}, []*string{nil}, []*int64{nil}))
	require.ErrorAs(t, err, &mrf)
	assert.Equal(t, ColumnType, mrf.Column)
}

func TestRowsColumnTypeErrors(t *testing.T) {
	t.Run("negative id", func(t *testing.T) {
		_, err := Rows(table(t, []*int64{i64(-1)}, []*int64{nil}, []*string{str("story")}, []*string{nil}, []*int64{nil}))
		var cte *ColumnTypeError
		require.ErrorAs(t, err, &cte)
		assert.Equal(t, ColumnID, cte.Column)
	})

	t.Run("score overflow", func(t *testing.T) {
		_, err := Rows(table(t, []*int64{i64(1)}, []*int64{nil}, []*string{str("story")}, []*string{nil}, []*int64{i64(math.MaxUint32 + 1)}))
		var cte *ColumnTypeError
		require.ErrorAs(t, err, &cte)
		assert.Equal(t, ColumnScore, cte.Column)
		assert.Equal(t, 0, cte.Row)
	})

	t.Run("text type column is integer", func(t *testing.T) {
		tbl, err := columnar.NewTable(
			columnar.IntColumnOf(ColumnID, i64(1)),
			columnar.IntColumnOf(ColumnTime, nil),
			columnar.IntColumnOf(ColumnType, i64(0)),
			columnar.StringColumnOf(ColumnTitle, nil),
			columnar.IntColumnOf(ColumnScore, nil),
		)
		require.NoError(t, err)

		_, err = Rows(tbl)
		var cte *ColumnTypeError
		require.ErrorAs(t, err, &cte)
		assert.Equal(t, ColumnType, cte.Column)
		assert.Equal(t, -1, cte.Row)
	})
}

func TestRowsUnsignedColumns(t *testing.T) {
	u64 := func(v uint64) *uint64 { return &v }
	tbl, err := columnar.NewTable(
		columnar.UintColumnOf(ColumnID, u64(3_000_000_000), u64(math.MaxUint32+1)),
		columnar.UintColumnOf(ColumnTime, u64(math.MaxUint64), nil),
		columnar.StringColumnOf(ColumnType, str("story"), str("story")),
		columnar.StringColumnOf(ColumnTitle, nil, nil),
		columnar.UintColumnOf(ColumnScore, u64(math.MaxUint32), nil),
	)
	require.NoError(t, err)

	_, err = Rows(tbl)
	var cte *ColumnTypeError
	require.ErrorAs(t, err, &cte)
	assert.Equal(t, ColumnID, cte.Column)
	assert.Equal(t, 1, cte.Row)
	assert.Contains(t, cte.Reason, "4294967296")

	first, err := columnar.NewTable(
		columnar.UintColumnOf(ColumnID, u64(3_000_000_000)),
		columnar.UintColumnOf(ColumnTime, u64(math.MaxUint64)),
		columnar.StringColumnOf(ColumnType, str("story")),
		columnar.StringColumnOf(ColumnTitle, nil),
		columnar.UintColumnOf(ColumnScore, u64(math.MaxUint32)),
	)
	require.NoError(t, err)
	rows, err := Rows(first)
	require.NoError(t, err)
	assert.Equal(t, Row{ID: 3_000_000_000, Timestamp: math.MaxUint64, Type: Story, Score: math.MaxUint32}, rows[0])
}

func TestMaterializeUnsignedParquet(t *testing.T) {
	type unsignedItem struct {
		ID    uint32  `parquet:"id"`
		Time  uint64  `parquet:"time"`
		Type  string  `parquet:"type"`
		Title *string `parquet:"title,optional"`
		Score *uint32 `parquet:"score,optional"`
	}
	dir := t.TempDir()
	testutil.WriteParquet(t, dir, "hacker_news_full_1.parquet", []unsignedItem{
		{ID: 3_000_000_000, Time: 1700000000, Type: "story", Score: testutil.Ptr(uint32(4_000_000_000))},
	})

	view, err := columnar.Scan(filepath.Join(dir, "hacker_news_full_*.parquet"))
	require.NoError(t, err)
	tbl, err := Materialize(context.Background(), view)
	require.NoError(t, err)

	rows, err := Rows(tbl)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, uint32(3_000_000_000), rows[0].ID)
	assert.Equal(t, uint64(1700000000), rows[0].Timestamp)
	assert.Equal(t, uint32(4_000_000_000), rows[0].Score)
}

func TestMaterialize(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteParquet(t, dir, "hacker_news_full_1.parquet", []testutil.Item{
		{ID: 1, Type: testutil.Ptr("story"), By: testutil.Ptr("pg"), Score: testutil.Ptr(int64(5))},
		{ID: 2, Time: testutil.Ptr(int64(1000)), Type: testutil.Ptr("comment"), Title: testutil.Ptr("hi")},
	})

	view, err := columnar.Scan(filepath.Join(dir, "hacker_news_full_*.parquet"))
	require.NoError(t, err)

	tbl, err := Materialize(context.Background(), view)
	require.NoError(t, err)
	assert.Equal(t, Columns, tbl.ColumnNames())

	rows, err := Rows(tbl)
	require.NoError(t, err)
	assert.Equal(t, []Row{
		{ID: 1, Type: Story, Score: 5},
		{ID: 2, Timestamp: 1000, Type: Comment, Title: "hi"},
	}, rows)
}

func TestMaterializeSchemaMismatch(t *testing.T) {
	type numericType struct {
		ID    int64  `parquet:"id"`
		Time  int64  `parquet:"time"`
		Type  int64  `parquet:"type"`
		Title string `parquet:"title"`
		Score int64  `parquet:"score"`
	}
	dir := t.TempDir()
	testutil.WriteParquet(t, dir, "items.parquet", []numericType{{ID: 1, Type: 1}})

	view, err := columnar.Scan(filepath.Join(dir, "*.parquet"))
	require.NoError(t, err)

	_, err = Materialize(context.Background(), view)
	var sme *columnar.SchemaMismatchError
	require.ErrorAs(t, err, &sme)
	assert.Equal(t, ColumnType, sme.Column)
}

func TestSchemaText(t *testing.T) {
	assert.Contains(t, Schema(), "message Row")
	_, err := descriptor()
	require.NoError(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatProtobuf, f)

	f, err = ParseFormat("json")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("avro")
	assert.Error(t, err)
}
