package columnar

import "fmt"

// FileAccessError reports input files that are missing, unreadable or not Parquet.
type FileAccessError struct {
	Path string
	Err  error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("file access %s: %v", e.Path, e.Err)
}

func (e *FileAccessError) Unwrap() error {
	return e.Err
}

// SchemaMismatchError reports a projected column whose shape differs from what was expected.
type SchemaMismatchError struct {
	Column   string
	Expected string
	Actual   string
}

func (e *SchemaMismatchError) Error() string {
	if e.Actual == "" {
		return fmt.Sprintf("schema mismatch: column %q: %s", e.Column, e.Expected)
	}
	return fmt.Sprintf("schema mismatch: column %q: expected %s, got %s", e.Column, e.Expected, e.Actual)
}
