package validation

import "fmt"

// ConnectionError reports that the validation store could not be reached or queried.
// Fatal for a render: nothing can be shown without the relation.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("validation store %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// DataFormatError reports a column that is missing or holds a value that cannot be decoded.
// Row is the zero-based position in the relation, -1 when the whole relation is affected.
type DataFormatError struct {
	Column string
	Value  string
	Row    int
	Err    error
}

func (e *DataFormatError) Error() string {
	if e.Row < 0 {
		if e.Column == "" {
			return fmt.Sprintf("data format: %v", e.Err)
		}
		return fmt.Sprintf("data format: column %q: %v", e.Column, e.Err)
	}
	return fmt.Sprintf("data format: row %d column %q value %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *DataFormatError) Unwrap() error {
	return e.Err
}
