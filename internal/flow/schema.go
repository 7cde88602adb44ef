package flow

import (
	"fmt"
	"slices"
)

// Option is one choice of a select field
type Option struct {
	Value string
	Label string
}

// Field describes one form input
type Field struct {
	Key      string
	Required bool
	Default  string
	Options  []Option // empty means free text
	Secret   bool
}

// Schema is the ordered field list of a form
type Schema struct {
	Fields []Field
}

// Field looks up a field by key
func (s *Schema) Field(key string) (Field, bool) {
	if s == nil {
		return Field{}, false
	}
	for _, f := range s.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// Keys returns the field keys in form order
func (s *Schema) Keys() []string {
	if s == nil {
		return nil
	}
	keys := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		keys = append(keys, f.Key)
	}
	return keys
}

// ValidationError reports user input that does not fit the form
type ValidationError struct {
	Field  string
	Reason string // required, invalid_option or extra_key
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("flow: invalid input for %q: %s", e.Field, e.Reason)
}

// Validate checks input against the schema. Fields are checked in form order.
func (s *Schema) Validate(input map[string]string) error {
	if s == nil {
		return nil
	}
	for _, f := range s.Fields {
		v, ok := input[f.Key]
		if !ok || v == "" {
			if f.Required {
				return &ValidationError{Field: f.Key, Reason: "required"}
			}
			continue
		}
		if len(f.Options) > 0 && !slices.ContainsFunc(f.Options, func(o Option) bool { return o.Value == v }) {
			return &ValidationError{Field: f.Key, Reason: "invalid_option"}
		}
	}
	for key := range input {
		if _, ok := s.Field(key); !ok {
			return &ValidationError{Field: key, Reason: "extra_key"}
		}
	}
	return nil
}
