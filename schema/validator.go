// Package schema embeds the JSON Schemas used to classify transcript records
// and to check assembled sessions.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Embedded schema names.
const (
	MessageStrict  = "message.strict.schema.json"
	MessageLenient = "message.lenient.schema.json"
	Session        = "session.schema.json"
)

//go:embed *.schema.json
var embedded embed.FS

// Validator validates documents against one embedded JSON Schema.
type Validator struct {
	name   string
	schema *jsonschema.Schema
}

// Names lists the embedded schemas.
func Names() []string {
	return []string{MessageStrict, MessageLenient, Session}
}

// Load returns the raw bytes of an embedded schema.
func Load(name string) ([]byte, error) {
	data, err := embedded.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("unknown schema %q: %w", name, err)
	}
	return data, nil
}

// NewValidator compiles the embedded schema called name.
func NewValidator(name string) (*Validator, error) {
	data, err := Load(name)
	if err != nil {
		return nil, err
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to add embedded schema resource: %w", err)
	}

	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to compile embedded schema %s: %w", name, err)
	}

	return &Validator{name: name, schema: schema}, nil
}

// MustValidator is NewValidator for the embedded schemas, which are known to
// compile.
func MustValidator(name string) *Validator {
	v, err := NewValidator(name)
	if err != nil {
		panic(err)
	}
	return v
}

// Name returns the schema file name.
func (v *Validator) Name() string {
	return v.name
}

// Validate checks any value that can be marshaled to JSON.
func (v *Validator) Validate(data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal value to JSON for validation: %w", err)
	}

	var doc interface{}
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return fmt.Errorf("failed to unmarshal JSON for validation: %w", err)
	}

	return v.ValidateValue(doc)
}

// ValidateValue checks a document already decoded with encoding/json into
// plain maps, slices and scalars.
func (v *Validator) ValidateValue(doc interface{}) error {
	if err := v.schema.Validate(doc); err != nil {
		if validationErr, ok := err.(*jsonschema.ValidationError); ok {
			var errorMessages []string
			collectErrors(validationErr, &errorMessages)
			return fmt.Errorf("%s validation failed:\n%s", v.name, strings.Join(errorMessages, "\n"))
		}
		return fmt.Errorf("%s validation failed: %w", v.name, err)
	}
	return nil
}

// collectErrors recursively collects all validation errors into a slice
func collectErrors(err *jsonschema.ValidationError, messages *[]string) {
	if len(err.Causes) == 0 {
		location := err.InstanceLocation
		if location == "" {
			location = "/"
		}
		*messages = append(*messages, fmt.Sprintf("- %s: %s", location, err.Message))
	}
	for _, cause := range err.Causes {
		collectErrors(cause, messages)
	}
}
