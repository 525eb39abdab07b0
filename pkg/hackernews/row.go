// Package hackernews converts Hacker News items read from columnar files into
// protobuf encoded Row messages.
//
// Source columns and how each becomes a Row field:
//
//	id     integer, required        -> id (uint32)
//	time   integer, null -> 0       -> timestamp (uint64)
//	type   text, required           -> type ("story" -> STORY, anything else -> COMMENT)
//	title  text, null -> ""         -> title
//	score  integer, null -> 0       -> score (uint32)
//
// Absent values are replaced by defaults before encoding, so a decoded
// message cannot tell a null from a zero.
package hackernews

import (
	"context"
	"fmt"
	"math"

	"github.com/edgeflare/hnstream/pkg/columnar"
)

// Source column names.
const (
	ColumnID    = "id"
	ColumnTime  = "time"
	ColumnType  = "type"
	ColumnTitle = "title"
	ColumnScore = "score"
)

// Columns lists the projected columns in read order.
var Columns = []string{ColumnID, ColumnTime, ColumnType, ColumnTitle, ColumnScore}

var columnKinds = map[string]columnar.Kind{
	ColumnID:    columnar.KindInt,
	ColumnTime:  columnar.KindInt,
	ColumnType:  columnar.KindString,
	ColumnTitle: columnar.KindString,
	ColumnScore: columnar.KindInt,
}

// RowType is the item kind. Values match the protobuf enum numbers.
type RowType int32

const (
	Story   RowType = 0
	Comment RowType = 1
)

func (t RowType) String() string {
	switch t {
	case Story:
		return "STORY"
	case Comment:
		return "COMMENT"
	default:
		return fmt.Sprintf("RowType(%d)", int32(t))
	}
}

// ParseRowType classifies the textual item type. Only "story" is a Story;
// every other value, known or not, is a Comment.
func ParseRowType(s string) RowType {
	if s == "story" {
		return Story
	}
	return Comment
}

// Row is one item ready for encoding.
type Row struct {
	ID        uint32
	Timestamp uint64
	Type      RowType
	Title     string
	Score     uint32
}

// Materialize projects view onto the Row columns and loads it into memory,
// checking that each column has the storage kind its field needs.
func Materialize(ctx context.Context, view *columnar.View) (*columnar.Table, error) {
	table, err := view.Select(Columns...).Collect(ctx)
	if err != nil {
		return nil, err
	}
	for _, name := range Columns {
		c, err := table.Column(name)
		if err != nil {
			return nil, err
		}
		if want := columnKinds[name]; c.Kind() != want {
			return nil, &columnar.SchemaMismatchError{Column: name, Expected: string(want), Actual: string(c.Kind())}
		}
	}
	return table, nil
}

// Rows converts every table row, in order, applying the defaults for absent
// optional values.
func Rows(t *columnar.Table) ([]Row, error) {
	ids, err := intColumn(t, ColumnID)
	if err != nil {
		return nil, err
	}
	times, err := intColumn(t, ColumnTime)
	if err != nil {
		return nil, err
	}
	types, err := stringColumn(t, ColumnType)
	if err != nil {
		return nil, err
	}
	titles, err := stringColumn(t, ColumnTitle)
	if err != nil {
		return nil, err
	}
	scores, err := intColumn(t, ColumnScore)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, t.Len())
	for i := range rows {
		id, ok, err := uintValue(ids, ColumnID, i)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &MissingRequiredFieldError{Column: ColumnID, Row: i}
		}
		if rows[i].ID, err = toUint32(ColumnID, i, id); err != nil {
			return nil, err
		}

		if rows[i].Timestamp, _, err = uintValue(times, ColumnTime, i); err != nil {
			return nil, err
		}

		typ, ok := types.Value(i)
		if !ok {
			return nil, &MissingRequiredFieldError{Column: ColumnType, Row: i}
		}
		rows[i].Type = ParseRowType(typ)

		rows[i].Title, _ = titles.Value(i)

		score, _, err := uintValue(scores, ColumnScore, i)
		if err != nil {
			return nil, err
		}
		if rows[i].Score, err = toUint32(ColumnScore, i, score); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func intColumn(t *columnar.Table, name string) (*columnar.IntColumn, error) {
	c, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	ic, ok := c.(*columnar.IntColumn)
	if !ok {
		return nil, &ColumnTypeError{Column: name, Row: -1, Reason: fmt.Sprintf("cannot coerce %s to unsigned integer", c.Kind())}
	}
	return ic, nil
}

func stringColumn(t *columnar.Table, name string) (*columnar.StringColumn, error) {
	c, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	sc, ok := c.(*columnar.StringColumn)
	if !ok {
		return nil, &ColumnTypeError{Column: name, Row: -1, Reason: fmt.Sprintf("cannot coerce %s to text", c.Kind())}
	}
	return sc, nil
}

// uintValue reads row i of c as an unsigned value. Negative values of signed
// columns cannot be coerced.
func uintValue(c *columnar.IntColumn, column string, row int) (uint64, bool, error) {
	if c.Unsigned() {
		v, ok := c.Uint(row)
		return v, ok, nil
	}
	v, ok := c.Value(row)
	if ok && v < 0 {
		return 0, false, &ColumnTypeError{Column: column, Row: row, Reason: fmt.Sprintf("negative value %d", v)}
	}
	return uint64(v), ok, nil
}

func toUint32(column string, row int, v uint64) (uint32, error) {
	if v > math.MaxUint32 {
		return 0, &ColumnTypeError{Column: column, Row: row, Reason: fmt.Sprintf("value %d out of uint32 range", v)}
	}
	return uint32(v), nil
}
