package toolkit

import "fmt"

// Result is the uniform envelope returned by every tool operation.
// Success and Error are mutually exclusive: a successful Result carries
// Data and an empty Error, a failed one carries an Error and nil Data.
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Ok wraps data in a successful Result.
func Ok(data any) Result {
	return Result{Success: true, Data: data}
}

// Errorf builds a failed Result with a formatted message.
func Errorf(format string, args ...any) Result {
	return Result{Error: fmt.Sprintf(format, args...)}
}

// Err wraps a handler error in a failed Result.
func Err(err error) Result {
	return Result{Error: err.Error()}
}

func (r Result) String() string {
	if r.Success {
		return fmt.Sprintf("Success: %v", r.Data)
	}
	return fmt.Sprintf("Error: %s", r.Error)
}
