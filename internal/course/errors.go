package course

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrBackend covers transport failures and non-2xx replies.
	ErrBackend = errors.New("backend request failed")
	// ErrEmptyResponse means the backend returned no text payload.
	ErrEmptyResponse = errors.New("no data returned from backend")
	// ErrDecode means the payload was not valid JSON for the target type.
	ErrDecode = errors.New("response is not valid JSON")
	// ErrInvalid means the payload did not satisfy the declared schema.
	ErrInvalid = errors.New("response does not match schema")
)

// GenerationError is returned by Generator.Generate.
type GenerationError struct {
	Err     error // one of the sentinels above
	Wrapped error
}

func (e *GenerationError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("generate course: %v: %v", e.Err, e.Wrapped)
	}
	return fmt.Sprintf("generate course: %v", e.Err)
}

func (e *GenerationError) Unwrap() []error {
	if e.Wrapped == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Wrapped}
}

// GradeError is returned by Grader.Evaluate so callers can tell an
// unreachable backend from a malformed grade.
type GradeError struct {
	Err     error
	Wrapped error
}

func (e *GradeError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("grading failed: %v: %v", e.Err, e.Wrapped)
	}
	return fmt.Sprintf("grading failed: %v", e.Err)
}

func (e *GradeError) Unwrap() []error {
	if e.Wrapped == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Wrapped}
}

// FieldError is one structural problem in a backend reply.
type FieldError struct {
	Field   string
	Message string
}

func (f FieldError) String() string {
	return f.Field + ": " + f.Message
}

// ValidationError lists every structural problem found in a reply.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.String()
	}
	return "schema validation: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalid
}
