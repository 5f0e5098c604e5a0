package validation

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"

	"github.com/xeipuuv/gojsonschema"

	"github.com/temcen/copyink/pkg/models"
)

//go:embed schemas/*.json
var embeddedSchemas embed.FS

// OutputSchema is a strict JSON schema for one content type's generator
// output. Raw is sent to the generator; the compiled form re-checks the
// reply locally.
type OutputSchema struct {
	Name     string
	Raw      json.RawMessage
	compiled *gojsonschema.Schema
}

// SchemaValidator holds the output schema of every content type
type SchemaValidator struct {
	schemas map[models.ContentType]*OutputSchema
}

var schemaFiles = map[models.ContentType]string{
	models.ContentTypeHook:    "hooks.json",
	models.ContentTypeCTA:     "ctas.json",
	models.ContentTypeHashtag: "hashtags.json",
	models.ContentTypeCaption: "captions.json",
	models.ContentTypeReply:   "replies.json",
}

// NewSchemaValidator loads the embedded output schemas
func NewSchemaValidator() (*SchemaValidator, error) {
	return LoadSchemaFromFS(embeddedSchemas, "schemas")
}

// LoadSchemaFromFS loads output schemas from a filesystem
func LoadSchemaFromFS(fsys fs.FS, schemaDir string) (*SchemaValidator, error) {
	sv := &SchemaValidator{
		schemas: make(map[models.ContentType]*OutputSchema, len(schemaFiles)),
	}

	for contentType, filename := range schemaFiles {
		schemaPath := path.Join(schemaDir, filename)

		schemaBytes, err := fs.ReadFile(fsys, schemaPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema file %s: %w", schemaPath, err)
		}

		compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaBytes))
		if err != nil {
			return nil, fmt.Errorf("failed to load schema %s: %w", contentType, err)
		}

		sv.schemas[contentType] = &OutputSchema{
			Name:     contentType.Endpoint(),
			Raw:      json.RawMessage(schemaBytes),
			compiled: compiled,
		}
	}

	return sv, nil
}

// ForContentType returns the output schema for a content type
func (sv *SchemaValidator) ForContentType(ct models.ContentType) (*OutputSchema, error) {
	schema, ok := sv.schemas[ct]
	if !ok {
		return nil, fmt.Errorf("schema for content type %q not found", ct)
	}
	return schema, nil
}

// Validate checks a JSON document against the schema
func (s *OutputSchema) Validate(document []byte) *ValidationResult {
	result, err := s.compiled.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Field:   "document",
				Message: fmt.Sprintf("Document is not valid JSON: %v", err),
				Code:    "INVALID_JSON",
			}},
		}
	}

	validationResult := &ValidationResult{
		Valid:  result.Valid(),
		Errors: make([]ValidationError, 0),
	}

	if !result.Valid() {
		for _, err := range result.Errors() {
			validationResult.Errors = append(validationResult.Errors, ValidationError{
				Field:   err.Field(),
				Message: err.Description(),
				Code:    "SCHEMA_VIOLATION",
				Value:   err.Value(),
				Context: err.Context().String(),
			})
		}
	}

	return validationResult
}

// ValidationResult represents the result of a validation operation
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Code    string      `json:"code"`
	Value   interface{} `json:"value,omitempty"`
	Context string      `json:"context,omitempty"`
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation error in field '%s': %s", ve.Field, ve.Message)
}

// Err folds a failed result into a single error, nil when valid
func (vr *ValidationResult) Err() error {
	if vr.Valid {
		return nil
	}
	if len(vr.Errors) == 1 {
		return vr.Errors[0]
	}
	return fmt.Errorf("%d schema violations, first: %w", len(vr.Errors), vr.Errors[0])
}
