package document

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/docsubmit/docsubmit/internal/core"
)

// ErrSerialization marks documents that cannot be turned into a valid payload.
var ErrSerialization = errors.New("serialization error")

//go:embed schema.json
var schemaJSON []byte

// Schema returns the JSON Schema documents are validated against.
func Schema() []byte {
	return append([]byte(nil), schemaJSON...)
}

// ValidationError lists the schema violations found in a payload.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "document failed schema validation: " + strings.Join(e.Problems, "; ")
}

// Is lets errors.Is(err, ErrSerialization) match validation failures.
func (e *ValidationError) Is(target error) bool {
	return target == ErrSerialization
}

// JSONSerializer encodes documents as JSON and checks them against the
// embedded schema.
type JSONSerializer struct {
	// SkipValidation disables schema checks.
	SkipValidation bool

	once   sync.Once
	schema *gojsonschema.Schema
	err    error
}

// NewJSONSerializer returns a validating serializer.
func NewJSONSerializer() *JSONSerializer {
	return &JSONSerializer{}
}

// Serialize implements engine.Serializer.
func (s *JSONSerializer) Serialize(doc *core.Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: document is nil", ErrSerialization)
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: encode document: %w", ErrSerialization, err)
	}

	if s.SkipValidation {
		return payload, nil
	}
	if err := s.Validate(payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Validate checks a raw JSON payload against the schema.
func (s *JSONSerializer) Validate(payload []byte) error {
	if !json.Valid(payload) {
		return fmt.Errorf("%w: payload is not valid JSON", ErrSerialization)
	}

	schema, err := s.compiled()
	if err != nil {
		return fmt.Errorf("%w: load schema: %w", ErrSerialization, err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return fmt.Errorf("%w: schema validation failed: %w", ErrSerialization, err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return &ValidationError{Problems: problems}
}

func (s *JSONSerializer) compiled() (*gojsonschema.Schema, error) {
	s.once.Do(func() {
		s.schema, s.err = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	})
	return s.schema, s.err
}
