package course

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/p-n-ai/pai-course/internal/ai"
)

// Validator checks backend replies against a declared response schema. The
// check is structural: presence, JSON types, and enum membership.
type Validator struct {
	schema *gojsonschema.Schema
}

// NewValidator compiles the JSON Schema form of s.
func NewValidator(s *ai.Schema) (*Validator, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(s.JSONSchema()))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: compiled}, nil
}

// MustValidator is NewValidator for package-level schemas known to compile.
func MustValidator(s *ai.Schema) *Validator {
	v, err := NewValidator(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Validate returns an error wrapping ErrDecode when raw is not JSON, or a
// *ValidationError when it does not satisfy the schema.
func (v *Validator) Validate(raw []byte) error {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if result.Valid() {
		return nil
	}

	fields := make([]FieldError, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		fields = append(fields, FieldError{Field: re.Field(), Message: re.Description()})
	}
	return &ValidationError{Fields: fields}
}
