package agent

import (
	"errors"
	"fmt"
)

// Errors that end a response cycle. ErrResolution is the exception: it is
// recovered per media part and only surfaces from a Resolver.
var (
	ErrUnrecognizedFormat    = errors.New("unrecognized completion format")
	ErrToolNotFound          = errors.New("tool not found")
	ErrToolExecution         = errors.New("tool execution failed")
	ErrMaxIterationsExceeded = errors.New("max iterations exceeded")
	ErrResolution            = errors.New("media resolution failed")
	ErrCancelled             = errors.New("response cycle cancelled")
	ErrRuntime               = errors.New("agent runtime failed")
)

// ParseReason says why a completion could not be classified.
type ParseReason string

// UnrecognizedFormat is the only ParseReason: neither a final answer nor an action was found.
const UnrecognizedFormat ParseReason = "unrecognized_format"

// ParseError carries the completion that could not be classified, verbatim.
type ParseError struct {
	Reason ParseReason
	Text   string
	Hint   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse agent output (%s, %s): `%s`", e.Reason, e.Hint, e.Text)
}

func (e *ParseError) Unwrap() error {
	return ErrUnrecognizedFormat
}

// ToolError wraps a failure raised by a tool while it ran.
type ToolError struct {
	Tool string
	Err  error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() []error {
	return []error{ErrToolExecution, e.Err}
}
