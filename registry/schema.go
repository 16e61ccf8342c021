package registry

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

var (
	//go:embed schemas/metadata.schema.json
	metadataSchemaJSON []byte

	//go:embed schemas/source.schema.json
	sourceSchemaJSON []byte

	metadataSchema = mustSchema("metadata.schema.json", metadataSchemaJSON)
	sourceSchema   = mustSchema("source.schema.json", sourceSchemaJSON)
)

func mustSchema(name string, data []byte) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	if err != nil {
		panic(fmt.Sprintf("registry: compiling %s: %v", name, err))
	}
	return s
}

// Validator validates registry JSON data against the BCR JSON schemas and
// the additional rules the schemas cannot express.
type Validator struct{}

// NewValidator creates a validator for BCR metadata and source files.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateMetadata validates JSON data as a metadata.json file.
func (v *Validator) ValidateMetadata(data []byte) error {
	if err := validateSchema(metadataSchema, data); err != nil {
		return err
	}
	var m Metadata
	if err := unmarshalStrict(data, &m); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return m.Validate()
}

// ValidateSource validates JSON data as a source.json file.
func (v *Validator) ValidateSource(data []byte) error {
	if err := validateSchema(sourceSchema, data); err != nil {
		return err
	}
	var s Source
	if err := unmarshalStrict(data, &s); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return s.Validate()
}

func validateSchema(schema *gojsonschema.Schema, data []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return &FieldError{Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if result.Valid() {
		return nil
	}
	var errs ValidationErrors
	for _, re := range result.Errors() {
		errs.Add(re.Field(), re.Description())
	}
	return errs.ToError()
}

// unmarshalStrict unmarshals JSON with strict settings (disallow unknown fields).
func unmarshalStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// marshalIndent renders v the way BCR files are formatted: four spaces and a
// trailing newline.
func marshalIndent(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
