package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rendis/stepflow/pkg/schema"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// settingsSchemaURL identifies the embedded settings.json schema.
const settingsSchemaURL = "https://stepflow.dev/schemas/settings.json"

// settingsSchemaJSON describes ~/.stepflow/settings.json.
const settingsSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://stepflow.dev/schemas/settings.json",
  "type": "object",
  "properties": {
    "log_level": {
      "type": "string",
      "enum": ["debug", "info", "warn", "error"]
    },
    "trace_format": {
      "type": "string",
      "enum": ["text", "json"]
    },
    "strict": { "type": "boolean" },
    "schedule": {
      "type": "string",
      "minLength": 1
    }
  },
  "additionalProperties": false
}`

// JSONSchemaValidator validates JSON documents against JSON Schema Draft
// 2020-12. It backs the validate_schema command and the settings loader.
// It is safe for concurrent use.
type JSONSchemaValidator struct {
	settingsSchema *jsonschema.Schema

	mu    sync.RWMutex
	cache map[string]*jsonschema.Schema
}

// NewJSONSchemaValidator creates a JSONSchemaValidator with the settings
// schema pre-compiled.
func NewJSONSchemaValidator() (*JSONSchemaValidator, error) {
	c := newCompiler()

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(settingsSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal settings schema: %w", err)
	}
	if err := c.AddResource(settingsSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("add settings schema resource: %w", err)
	}

	settings, err := c.Compile(settingsSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile settings schema: %w", err)
	}

	return &JSONSchemaValidator{
		settingsSchema: settings,
		cache:          make(map[string]*jsonschema.Schema),
	}, nil
}

// ValidateSettings checks raw settings.json bytes.
func (v *JSONSchemaValidator) ValidateSettings(data []byte) error {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(data)))
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "settings are not valid JSON").WithCause(err)
	}
	if err := v.settingsSchema.Validate(doc); err != nil {
		return toSchemaError(err)
	}
	return nil
}

// ValidateDocument checks a JSON document against a JSON Schema, both given
// as text. The compiled schema is cached by its text.
//
// A malformed document or schema yields a VALIDATION_ERROR without
// violations; a document that does not conform yields one whose details
// carry the "violations" list.
func (v *JSONSchemaValidator) ValidateDocument(document, schemaText string) error {
	if strings.TrimSpace(schemaText) == "" {
		return schema.NewError(schema.ErrCodeValidation, "schema is empty")
	}

	compiled, err := v.getOrCompile(schemaText)
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "invalid schema").WithCause(err)
	}

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(document))
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "document is not valid JSON").WithCause(err)
	}

	if err := compiled.Validate(doc); err != nil {
		return toSchemaError(err)
	}
	return nil
}

// Violations returns the per-location messages attached to a validation
// error, or nil when err carries none.
func Violations(err error) []string {
	var se *schema.Error
	if !errors.As(err, &se) || se.Details == nil {
		return nil
	}
	out, _ := se.Details["violations"].([]string)
	return out
}

func (v *JSONSchemaValidator) getOrCompile(schemaText string) (*jsonschema.Schema, error) {
	v.mu.RLock()
	if cached, ok := v.cache[schemaText]; ok {
		v.mu.RUnlock()
		return cached, nil
	}
	v.mu.RUnlock()

	v.mu.Lock()
	defer v.mu.Unlock()

	if cached, ok := v.cache[schemaText]; ok {
		return cached, nil
	}

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(schemaText))
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	// Fresh compiler and URL per schema so resources never collide.
	url := fmt.Sprintf("stepflow://document-schema/%d", len(v.cache))
	c := newCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}

	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	v.cache[schemaText] = compiled
	return compiled, nil
}

func newCompiler() *jsonschema.Compiler {
	c := jsonschema.NewCompiler()
	c.AssertFormat()
	return c
}

// toSchemaError flattens a jsonschema.ValidationError into a *schema.Error
// whose details list every leaf violation with its instance location.
func toSchemaError(err error) *schema.Error {
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return schema.NewError(schema.ErrCodeValidation, err.Error())
	}

	violations := collectViolations(verr)
	if len(violations) == 0 {
		return schema.NewError(schema.ErrCodeValidation, verr.Error())
	}

	msg := violations[0]
	if len(violations) > 1 {
		msg = fmt.Sprintf("validation failed with %d errors", len(violations))
	}
	return schema.NewError(schema.ErrCodeValidation, msg).
		WithDetails(map[string]any{"violations": violations})
}

func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}

	var violations []string
	for _, cause := range verr.Causes {
		violations = append(violations, collectViolations(cause)...)
	}
	return violations
}
