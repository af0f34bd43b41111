package validate

import (
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"veritas/core"
)

// Schema is a compiled JSON schema descriptor for one operation's payload
// shape. Compile once, validate many.
type Schema struct {
	Name     string
	compiled *gojsonschema.Schema
}

// CompileSchema compiles a JSON schema document.
func CompileSchema(name string, document []byte) (*Schema, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema %q: %w", name, err)
	}
	return &Schema{Name: name, compiled: compiled}, nil
}

// SchemaRegistry holds compiled schemas keyed by module and operation, for
// callers (the HTTP surface) that do not pass a schema inline.
type SchemaRegistry struct {
	mu      sync.RWMutex
	schemas map[string]*Schema
}

// NewSchemaRegistry returns an empty schema registry.
func NewSchemaRegistry() *SchemaRegistry {
	return &SchemaRegistry{schemas: make(map[string]*Schema)}
}

func schemaKey(module string, op core.Operation) string {
	return module + "/" + string(op)
}

// Register compiles and stores a schema for the given module/operation,
// replacing any previous registration.
func (r *SchemaRegistry) Register(module string, op core.Operation, document []byte) error {
	schema, err := CompileSchema(schemaKey(module, op), document)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.schemas[schema.Name] = schema
	r.mu.Unlock()
	return nil
}

// Lookup returns the schema registered for the given module/operation.
func (r *SchemaRegistry) Lookup(module string, op core.Operation) (*Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	schema, ok := r.schemas[schemaKey(module, op)]
	return schema, ok
}

// ValidateSchema checks a payload against a compiled schema and returns one
// field-level error per violated constraint, nested paths joined with ".".
// No side effects; on success the result echoes the payload as Data.
func ValidateSchema(payload map[string]interface{}, schema *Schema) *core.ValidationResult {
	result := core.NewValidationResult()
	if schema == nil {
		result.Data = payload
		return result
	}

	outcome, err := schema.compiled.Validate(gojsonschema.NewGoLoader(payload))
	if err != nil {
		result.AddError("", fmt.Sprintf("schema validation failed: %v", err), core.CodeSchemaViolation, nil)
		return result
	}

	if !outcome.Valid() {
		for _, violation := range outcome.Errors() {
			result.AddError(schemaFieldPath(violation), violation.Description(), core.CodeSchemaViolation, violation.Value())
		}
		return result
	}

	result.Data = payload
	return result
}

// schemaFieldPath normalizes gojsonschema's field naming: "(root)" becomes
// the missing property name when one is available, otherwise the empty path.
func schemaFieldPath(violation gojsonschema.ResultError) string {
	field := violation.Field()
	if field != "(root)" {
		return field
	}
	if property, ok := violation.Details()["property"].(string); ok {
		return property
	}
	return ""
}

// mustCompileSchema is for package-internal schema literals.
func mustCompileSchema(name, document string) *Schema {
	schema, err := CompileSchema(name, []byte(document))
	if err != nil {
		panic(fmt.Sprintf("invalid embedded schema %q: %v", name, err))
	}
	return schema
}
