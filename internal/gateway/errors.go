package gateway

import (
	"errors"
	"fmt"
	"time"
)

var ErrNotOpen = errors.New("gateway: session is not open")

// ConnectionError is returned once the connect retry budget is exhausted.
type ConnectionError struct {
	Server   string
	Attempts int
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect to tool server %q failed after %d attempts: %v", e.Server, e.Attempts, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ToolInvocationError reports a tool that ran but failed.
type ToolInvocationError struct {
	Tool string
	Err  error
}

func (e *ToolInvocationError) Error() string {
	return fmt.Sprintf("tool %s: %v", e.Tool, e.Err)
}

func (e *ToolInvocationError) Unwrap() error { return e.Err }

// TimeoutError reports a call that exceeded the session timeout.
type TimeoutError struct {
	Op    string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.After)
}

func IsTimeout(err error) bool {
	var t *TimeoutError
	return errors.As(err, &t)
}
