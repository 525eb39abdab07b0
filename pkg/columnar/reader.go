package columnar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/parquet-go/parquet-go"
)

// ErrNoFiles is wrapped by a FileAccessError when a pattern matches nothing.
var ErrNoFiles = errors.New("no files match pattern")

// readBatch is the number of values pulled from a page per read.
const readBatch = 1024

// View is a lazily evaluated, column-projected view over a set of Parquet files.
// Nothing but file footers is read until Collect. Views are immutable; Select
// returns a new View and the same View can be collected more than once.
type View struct {
	files   []string
	columns []string
}

// Scan matches pattern against the file system and validates every matching
// file as Parquet. The returned view projects all columns of the first file.
func Scan(pattern string) (*View, error) {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, &FileAccessError{Path: pattern, Err: err}
	}
	if len(files) == 0 {
		return nil, &FileAccessError{Path: pattern, Err: ErrNoFiles}
	}
	slices.Sort(files)

	var columns []string
	for i, path := range files {
		err := withFile(path, func(f *parquet.File) error {
			if i == 0 {
				for _, field := range f.Schema().Fields() {
					columns = append(columns, field.Name())
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return &View{files: files, columns: columns}, nil
}

// Select narrows the projection to the named columns, in the given order.
func (v *View) Select(names ...string) *View {
	return &View{files: v.files, columns: slices.Clone(names)}
}

// Files returns the matched file paths in read order.
func (v *View) Files() []string { return slices.Clone(v.files) }

// Columns returns the projected column names.
func (v *View) Columns() []string { return slices.Clone(v.columns) }

// Collect forces the view into memory. Columns are read file after file so
// that row i of every column refers to the same source row.
func (v *View) Collect(ctx context.Context) (*Table, error) {
	cols := make([]appender, len(v.columns))

	for _, path := range v.files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		err := withFile(path, func(f *parquet.File) error {
			for i, name := range v.columns {
				leaf, ok := f.Schema().Lookup(name)
				if !ok {
					return &SchemaMismatchError{Column: name, Expected: "column present in " + path}
				}
				kind := kindOf(leaf.Node.Type())
				unsigned := isUnsigned(leaf.Node.Type())
				if cols[i] == nil {
					cols[i] = newColumn(name, kind, unsigned)
				} else if cols[i].Kind() != kind {
					return &SchemaMismatchError{Column: name, Expected: string(cols[i].Kind()), Actual: string(kind) + " in " + path}
				} else if ic, ok := cols[i].(*IntColumn); ok && ic.unsigned != unsigned {
					return &SchemaMismatchError{Column: name, Expected: signedness(ic.unsigned), Actual: signedness(unsigned) + " in " + path}
				}
				if err := readColumn(f, leaf.ColumnIndex, cols[i]); err != nil {
					return &FileAccessError{Path: path, Err: fmt.Errorf("reading column %s: %w", name, err)}
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	columns := make([]Column, len(cols))
	for i, c := range cols {
		if c == nil {
			c = newColumn(v.columns[i], KindString, false)
		}
		columns[i] = c
	}
	return NewTable(columns...)
}

func signedness(unsigned bool) string {
	if unsigned {
		return "unsigned int"
	}
	return "signed int"
}

func withFile(path string, fn func(*parquet.File) error) error {
	osf, err := os.Open(path)
	if err != nil {
		return &FileAccessError{Path: path, Err: err}
	}
	defer osf.Close()

	info, err := osf.Stat()
	if err != nil {
		return &FileAccessError{Path: path, Err: err}
	}

	f, err := parquet.OpenFile(osf, info.Size())
	if err != nil {
		return &FileAccessError{Path: path, Err: fmt.Errorf("not a parquet file: %w", err)}
	}
	return fn(f)
}

func readColumn(f *parquet.File, columnIndex int, col appender) error {
	buf := make([]parquet.Value, readBatch)
	for _, rg := range f.RowGroups() {
		pages := rg.ColumnChunks()[columnIndex].Pages()
		err := func() error {
			defer pages.Close()
			for {
				page, err := pages.ReadPage()
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return err
				}
				values := page.Values()
				for {
					n, err := values.ReadValues(buf)
					for _, v := range buf[:n] {
						col.append(v)
					}
					if errors.Is(err, io.EOF) {
						break
					}
					if err != nil {
						return err
					}
				}
			}
		}()
		if err != nil {
			return err
		}
	}
	return nil
}
