// File: internal/schema/schema.go

// Package schema describes tool argument shapes and validates incoming
// arguments against them before a handler ever runs.
package schema

import (
	"fmt"
	"math"

	json "github.com/json-iterator/go" // Use json-iterator for consistency and performance
)

// Property describes a single argument field.
type Property struct {
	Type        string              `json:"type"`
	Description string              `json:"description,omitempty"`
	Enum        []string            `json:"enum,omitempty"`
	Items       *Property           `json:"items,omitempty"`
	Properties  map[string]Property `json:"properties,omitempty"`
	Required    []string            `json:"required,omitempty"`
}

// Schema is the object-typed argument schema of one tool.
type Schema struct {
	Properties map[string]Property
	Required   []string
}

// ValidationError names the offending field and the reason a call was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Field, e.Reason)
}

// MarshalJSON renders the schema in the wire shape clients expect for
// tool discovery.
func (s Schema) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"type":       "object",
		"properties": s.Properties,
	}
	if s.Properties == nil {
		out["properties"] = map[string]Property{}
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	return json.Marshal(out)
}

// Validate checks args against the schema. It reports the first violation
// found, required fields before type mismatches. Unknown fields are
// tolerated.
func (s Schema) Validate(args map[string]any) error {
	for _, name := range s.Required {
		if _, ok := args[name]; !ok {
			return &ValidationError{Field: name, Reason: "required field is missing"}
		}
	}
	for name, val := range args {
		prop, ok := s.Properties[name]
		if !ok {
			continue
		}
		if err := checkValue(name, prop, val); err != nil {
			return err
		}
	}
	return nil
}

func checkValue(field string, prop Property, val any) error {
	if val == nil {
		return &ValidationError{Field: field, Reason: "value must not be null"}
	}
	switch prop.Type {
	case "string":
		str, ok := val.(string)
		if !ok {
			return &ValidationError{Field: field, Reason: "expected a string"}
		}
		if len(prop.Enum) > 0 && !contains(prop.Enum, str) {
			return &ValidationError{
				Field:  field,
				Reason: fmt.Sprintf("value %q is not one of %v", str, prop.Enum),
			}
		}
	case "number":
		switch val.(type) {
		case float64, int, int64:
		default:
			return &ValidationError{Field: field, Reason: "expected a number"}
		}
	case "integer":
		switch v := val.(type) {
		case int, int64:
		case float64:
			// JSON carries every number as float64; only integral
			// values qualify.
			if v != math.Trunc(v) {
				return &ValidationError{Field: field, Reason: "expected an integer"}
			}
		default:
			return &ValidationError{Field: field, Reason: "expected an integer"}
		}
	case "boolean":
		if _, ok := val.(bool); !ok {
			return &ValidationError{Field: field, Reason: "expected a boolean"}
		}
	case "array":
		items, ok := val.([]any)
		if !ok {
			return &ValidationError{Field: field, Reason: "expected an array"}
		}
		if prop.Items != nil {
			for i, item := range items {
				elemField := fmt.Sprintf("%s[%d]", field, i)
				if err := checkValue(elemField, *prop.Items, item); err != nil {
					return err
				}
			}
		}
	case "object":
		obj, ok := val.(map[string]any)
		if !ok {
			return &ValidationError{Field: field, Reason: "expected an object"}
		}
		for _, req := range prop.Required {
			if _, ok := obj[req]; !ok {
				return &ValidationError{
					Field:  field + "." + req,
					Reason: "required field is missing",
				}
			}
		}
		for name, sub := range prop.Properties {
			if subVal, ok := obj[name]; ok {
				if err := checkValue(field+"."+name, sub, subVal); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
