package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"

	"bga/internal/model"
)

// textsSchema describes the save input: an array of text entries.
const textsSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["source", "path", "key"],
    "properties": {
      "source": {"type": "string"},
      "path": {"type": "string", "minLength": 1},
      "key": {"type": "string"},
      "text": {"type": ["string", "null"]}
    }
  }
}`

var (
	textsSchemaLoader = gojsonschema.NewStringLoader(textsSchema)
	validate          = validator.New()
)

// FieldError is a single schema violation.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every violation found in a save input.
type ValidationError struct {
	Errors []FieldError
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("invalid texts:")
	for _, e := range ve.Errors {
		fmt.Fprintf(&sb, " %s: %s;", e.Field, e.Message)
	}
	return strings.TrimSuffix(sb.String(), ";")
}

// ParseTexts decodes and validates the JSON text list handed to Save.
func ParseTexts(data []byte) ([]model.TextEntry, error) {
	result, err := gojsonschema.Validate(textsSchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("parse texts: %w", err)
	}
	if !result.Valid() {
		ve := &ValidationError{}
		for _, desc := range result.Errors() {
			field := desc.Field()
			if field == "" {
				field = "(root)"
			}
			ve.Errors = append(ve.Errors, FieldError{Field: field, Message: desc.Description()})
		}
		return nil, ve
	}

	var texts []model.TextEntry
	if err := json.Unmarshal(data, &texts); err != nil {
		return nil, fmt.Errorf("parse texts: %w", err)
	}
	for i, t := range texts {
		if err := validate.Struct(t); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return texts, nil
}
