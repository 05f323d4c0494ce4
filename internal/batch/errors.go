package batch

import "fmt"

// PanicError wraps a panic recovered from an item's Process function.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic while processing item: %v", e.Value)
}

// FieldsError is implemented by errors that carry structured context worth
// logging alongside the message, such as a failed command's output.
type FieldsError interface {
	error
	LogFields() map[string]any
}
