// File: internal/tools/errors.go
package tools

import (
	"errors"
	"fmt"
)

// ErrUnknownTool classifies a call naming an operation the registry does
// not hold. The transport maps it to a method-not-found error, never to
// a generic internal failure.
var ErrUnknownTool = errors.New("unknown tool")

// InvalidArgumentsError classifies a schema violation detected before
// the handler runs. It names the violated field.
type InvalidArgumentsError struct {
	Tool   string
	Field  string
	Reason string
}

func (e *InvalidArgumentsError) Error() string {
	return fmt.Sprintf("invalid arguments for tool %q: field %q: %s", e.Tool, e.Field, e.Reason)
}

// isProtocolError reports whether an error is already classified at the
// protocol level and must pass through the dispatcher unwrapped.
func isProtocolError(err error) bool {
	var invalidArgs *InvalidArgumentsError
	return errors.Is(err, ErrUnknownTool) || errors.As(err, &invalidArgs)
}
