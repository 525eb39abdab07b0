package columnar

import (
	"fmt"

	"github.com/parquet-go/parquet-go"
)

// Kind is the storage kind of a column as declared in the source files.
type Kind string

const (
	KindInt    Kind = "int"
	KindString Kind = "string"
)

// kindOf maps a parquet physical type onto a Kind. Types with no mapping keep
// their parquet name so mismatches can be reported precisely.
func kindOf(t parquet.Type) Kind {
	switch t.Kind() {
	case parquet.Int32, parquet.Int64:
		return KindInt
	case parquet.ByteArray:
		return KindString
	default:
		return Kind(t.Kind().String())
	}
}

// Column is one materialized column. Exactly one of the typed accessors applies,
// depending on Kind.
type Column interface {
	Name() string
	Kind() Kind
	Len() int
	IsNull(i int) bool
}

// isUnsigned reports whether t carries an unsigned integer annotation.
func isUnsigned(t parquet.Type) bool {
	lt := t.LogicalType()
	return lt != nil && lt.Integer != nil && !lt.Integer.IsSigned
}

// IntColumn holds integer values widened to 64 bits. Columns annotated as
// unsigned keep their values zero-extended and are read back with Uint.
type IntColumn struct {
	name     string
	unsigned bool
	values   []int64
	nulls    []bool
}

func (c *IntColumn) Name() string      { return c.name }
func (c *IntColumn) Kind() Kind        { return KindInt }
func (c *IntColumn) Len() int          { return len(c.values) }
func (c *IntColumn) IsNull(i int) bool { return c.nulls[i] }

// Unsigned reports whether the source column was declared unsigned.
func (c *IntColumn) Unsigned() bool { return c.unsigned }

// Value returns the i-th value, ok is false for nulls. Unsigned values above
// math.MaxInt64 wrap; use Uint for those columns.
func (c *IntColumn) Value(i int) (int64, bool) {
	if c.nulls[i] {
		return 0, false
	}
	return c.values[i], true
}

// Uint returns the i-th value of an unsigned column.
func (c *IntColumn) Uint(i int) (uint64, bool) {
	if c.nulls[i] {
		return 0, false
	}
	return uint64(c.values[i]), true
}

func (c *IntColumn) append(v parquet.Value) {
	if v.IsNull() {
		c.values = append(c.values, 0)
		c.nulls = append(c.nulls, true)
		return
	}
	var n int64
	switch {
	case v.Kind() == parquet.Int32 && c.unsigned:
		n = int64(v.Uint32())
	case v.Kind() == parquet.Int32:
		n = int64(v.Int32())
	default:
		n = v.Int64()
	}
	c.values = append(c.values, n)
	c.nulls = append(c.nulls, false)
}

// StringColumn holds text values.
type StringColumn struct {
	name   string
	values []string
	nulls  []bool
}

func (c *StringColumn) Name() string      { return c.name }
func (c *StringColumn) Kind() Kind        { return KindString }
func (c *StringColumn) Len() int          { return len(c.values) }
func (c *StringColumn) IsNull(i int) bool { return c.nulls[i] }

// Value returns the i-th value, ok is false for nulls.
func (c *StringColumn) Value(i int) (string, bool) {
	if c.nulls[i] {
		return "", false
	}
	return c.values[i], true
}

func (c *StringColumn) append(v parquet.Value) {
	if v.IsNull() {
		c.values = append(c.values, "")
		c.nulls = append(c.nulls, true)
		return
	}
	c.values = append(c.values, string(v.ByteArray()))
	c.nulls = append(c.nulls, false)
}

// otherColumn keeps the row count of a column whose kind has no typed accessor.
type otherColumn struct {
	name  string
	kind  Kind
	nulls []bool
}

func (c *otherColumn) Name() string      { return c.name }
func (c *otherColumn) Kind() Kind        { return c.kind }
func (c *otherColumn) Len() int          { return len(c.nulls) }
func (c *otherColumn) IsNull(i int) bool { return c.nulls[i] }

func (c *otherColumn) append(v parquet.Value) {
	c.nulls = append(c.nulls, v.IsNull())
}

type appender interface {
	Column
	append(v parquet.Value)
}

func newColumn(name string, kind Kind, unsigned bool) appender {
	switch kind {
	case KindInt:
		return &IntColumn{name: name, unsigned: unsigned}
	case KindString:
		return &StringColumn{name: name}
	default:
		return &otherColumn{name: name, kind: kind}
	}
}

// Table is an in-memory set of index-aligned columns. Row i is the i-th entry
// of every column. A Table is never mutated once built.
type Table struct {
	columns []Column
	index   map[string]int
	rows    int
}

// NewTable builds a Table from columns of equal length.
func NewTable(columns ...Column) (*Table, error) {
	t := &Table{index: make(map[string]int, len(columns))}
	for i, c := range columns {
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, &SchemaMismatchError{
				Column:   c.Name(),
				Expected: fmt.Sprintf("%d rows", t.rows),
				Actual:   fmt.Sprintf("%d rows", c.Len()),
			}
		}
		if _, dup := t.index[c.Name()]; dup {
			return nil, &SchemaMismatchError{Column: c.Name(), Expected: "unique column names"}
		}
		t.index[c.Name()] = i
		t.columns = append(t.columns, c)
	}
	return t, nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return t.rows }

// ColumnNames returns the column names in projection order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name()
	}
	return names
}

// Column returns the named column.
func (t *Table) Column(name string) (Column, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, &SchemaMismatchError{Column: name, Expected: "column present"}
	}
	return t.columns[i], nil
}

// Ints returns the named column as integers.
func (t *Table) Ints(name string) (*IntColumn, error) {
	c, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	ic, ok := c.(*IntColumn)
	if !ok {
		return nil, &SchemaMismatchError{Column: name, Expected: string(KindInt), Actual: string(c.Kind())}
	}
	return ic, nil
}

// Strings returns the named column as text.
func (t *Table) Strings(name string) (*StringColumn, error) {
	c, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	sc, ok := c.(*StringColumn)
	if !ok {
		return nil, &SchemaMismatchError{Column: name, Expected: string(KindString), Actual: string(c.Kind())}
	}
	return sc, nil
}

// IntColumnOf builds an IntColumn from optional values, nil meaning null.
func IntColumnOf(name string, values ...*int64) *IntColumn {
	c := &IntColumn{name: name, values: make([]int64, len(values)), nulls: make([]bool, len(values))}
	for i, v := range values {
		if v == nil {
			c.nulls[i] = true
			continue
		}
		c.values[i] = *v
	}
	return c
}

// UintColumnOf builds an unsigned IntColumn from optional values, nil meaning null.
func UintColumnOf(name string, values ...*uint64) *IntColumn {
	c := &IntColumn{name: name, unsigned: true, values: make([]int64, len(values)), nulls: make([]bool, len(values))}
	for i, v := range values {
		if v == nil {
			c.nulls[i] = true
			continue
		}
		c.values[i] = int64(*v)
	}
	return c
}

// StringColumnOf builds a StringColumn from optional values, nil meaning null.
func StringColumnOf(name string, values ...*string) *StringColumn {
	c := &StringColumn{name: name, values: make([]string, len(values)), nulls: make([]bool, len(values))}
	for i, v := range values {
		if v == nil {
			c.nulls[i] = true
			continue
		}
		c.values[i] = *v
	}
	return c
}
