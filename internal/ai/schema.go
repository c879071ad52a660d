package ai

import "strings"

// SchemaType is a node type in a response schema declaration.
type SchemaType string

const (
	TypeObject  SchemaType = "OBJECT"
	TypeArray   SchemaType = "ARRAY"
	TypeString  SchemaType = "STRING"
	TypeInteger SchemaType = "INTEGER"
	TypeNumber  SchemaType = "NUMBER"
	TypeBoolean SchemaType = "BOOLEAN"
)

// Schema declares the expected JSON output shape. It marshals to the
// OpenAPI subset Gemini accepts as responseSchema.
type Schema struct {
	Type        SchemaType         `json:"type"`
	Description string             `json:"description,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

// Object returns an OBJECT node with the given properties and required list.
func Object(props map[string]*Schema, required ...string) *Schema {
	return &Schema{Type: TypeObject, Properties: props, Required: required}
}

// ArrayOf returns an ARRAY node of items.
func ArrayOf(items *Schema) *Schema {
	return &Schema{Type: TypeArray, Items: items}
}

// String returns a STRING node.
func String(description string) *Schema {
	return &Schema{Type: TypeString, Description: description}
}

// Integer returns an INTEGER node.
func Integer(description string) *Schema {
	return &Schema{Type: TypeInteger, Description: description}
}

// Enum returns a STRING node restricted to values.
func Enum(values ...string) *Schema {
	return &Schema{Type: TypeString, Enum: values}
}

// Describe sets the description and returns s.
func (s *Schema) Describe(description string) *Schema {
	s.Description = description
	return s
}

// JSONSchema converts the declaration into a standard JSON Schema document
// (draft-07 keywords) for client-side validation. Undeclared properties are
// allowed.
func (s *Schema) JSONSchema() map[string]any {
	if s == nil {
		return map[string]any{}
	}
	out := map[string]any{"type": strings.ToLower(string(s.Type))}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.Enum) > 0 {
		enum := make([]any, len(s.Enum))
		for i, v := range s.Enum {
			enum[i] = v
		}
		out["enum"] = enum
	}
	if s.Items != nil {
		out["items"] = s.Items.JSONSchema()
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, p := range s.Properties {
			props[name] = p.JSONSchema()
		}
		out["properties"] = props
	}
	if len(s.Required) > 0 {
		req := make([]any, len(s.Required))
		for i, v := range s.Required {
			req[i] = v
		}
		out["required"] = req
	}
	return out
}
