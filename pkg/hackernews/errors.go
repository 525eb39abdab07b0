package hackernews

import "fmt"

// MissingRequiredFieldError reports a null in a column that must always be present.
type MissingRequiredFieldError struct {
	Column string
	Row    int
}

func (e *MissingRequiredFieldError) Error() string {
	return fmt.Sprintf("missing required field %q at row %d", e.Column, e.Row)
}

// ColumnTypeError reports a column whose storage cannot be coerced to the
// field's type. Row is -1 when the whole column is unusable.
type ColumnTypeError struct {
	Column string
	Row    int
	Reason string
}

func (e *ColumnTypeError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("column %q: %s", e.Column, e.Reason)
	}
	return fmt.Sprintf("column %q row %d: %s", e.Column, e.Row, e.Reason)
}
