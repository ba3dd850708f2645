package models

import "fmt"

// InvalidInputError reports a malformed calculation input. No partial result
// accompanies it.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

// Invalid builds an InvalidInputError with a formatted reason.
func Invalid(field, format string, args ...any) *InvalidInputError {
	return &InvalidInputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ParseRecoverableError reports produced-length text that could not be parsed.
// The loom's lengths are treated as empty and the calculation continues.
type ParseRecoverableError struct {
	LoomID int
	Text   string
	Err    error
}

func (e *ParseRecoverableError) Error() string {
	return fmt.Sprintf("loom %d: unparseable produced lengths %q: %v", e.LoomID, e.Text, e.Err)
}

func (e *ParseRecoverableError) Unwrap() error { return e.Err }

// DataIntegrityError reports a persisted log that cannot be trusted.
type DataIntegrityError struct {
	Log    string
	Index  int
	Reason string
	Err    error
}

func (e *DataIntegrityError) Error() string {
	msg := fmt.Sprintf("data integrity: %s record %d: %s", e.Log, e.Index, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DataIntegrityError) Unwrap() error { return e.Err }

// Log names used in DataIntegrityError.
const (
	SummaryLog = "summary"
	StockLog   = "stock"
)
