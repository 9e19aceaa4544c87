package migration

import (
	"errors"
	"fmt"
)

var (
	// ErrExecutionFailure matches every statement rejected by the database.
	ErrExecutionFailure = errors.New("statement execution failed")
	// ErrConstraintConflict matches a foreign key addition rejected because
	// of existing constraints or data.
	ErrConstraintConflict = errors.New("constraint conflict")
)

// ExecError is returned when a statement fails. It aborts the run; the
// statements applied before it are not rolled back.
type ExecError struct {
	Table     string
	Statement string
	Err       error

	conflict bool
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("failed to reconcile table %s: %v\n  statement: %s", e.Table, e.Err, e.Statement)
}

func (e *ExecError) Unwrap() []error {
	errs := []error{ErrExecutionFailure, e.Err}
	if e.conflict {
		errs = append(errs, ErrConstraintConflict)
	}
	return errs
}
