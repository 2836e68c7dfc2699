package template

import (
	"errors"
	"fmt"
)

// ErrTemplateNotFound is returned when a template does not exist in a Set.
var ErrTemplateNotFound = errors.New("template not found")

// SyntaxError reports a malformed template.
type SyntaxError struct {
	Name string
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("template: %s:%d: %s", e.Name, e.Line, e.Msg)
}

// ExecError reports a failure while rendering a parsed template.
type ExecError struct {
	Name string
	Line int
	Err  error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("template: %s:%d: %v", e.Name, e.Line, e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}
