package migration

import (
	"context"
	"fmt"
	"io"
)

// Executor runs one DDL statement.
type Executor interface {
	Exec(ctx context.Context, stmt string) error
}

// WriterExecutor writes statements instead of running them.
type WriterExecutor struct {
	w io.Writer
}

// NewWriterExecutor creates an executor printing to w.
func NewWriterExecutor(w io.Writer) *WriterExecutor {
	return &WriterExecutor{w: w}
}

func (e *WriterExecutor) Exec(_ context.Context, stmt string) error {
	if _, err := fmt.Fprintf(e.w, "%s;\n\n", stmt); err != nil {
		return fmt.Errorf("failed to write statement: %w", err)
	}
	return nil
}
