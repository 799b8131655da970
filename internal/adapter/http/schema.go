package http

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/xeipuuv/gojsonschema"
)

// predictSchemaJSON describes the /predict body. Extra properties are ignored.
const predictSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["lat", "lon", "wind_speed", "temperature", "last_threat_count"],
  "properties": {
    "lat":               {"type": "number"},
    "lon":               {"type": "number"},
    "wind_speed":        {"type": "number"},
    "temperature":       {"type": "number"},
    "last_threat_count": {"type": "integer"}
  }
}`

// rootField is how gojsonschema names the document itself.
const rootField = "(root)"

var predictSchema = mustCompileSchema(predictSchemaJSON)

func mustCompileSchema(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("compile predict schema: %v", err))
	}
	return schema
}

// FieldError is one validation failure attributed to a request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// validatePredictBody checks a syntactically valid JSON document against the
// predict schema and returns field errors sorted by field name.
func validatePredictBody(body []byte) ([]FieldError, error) {
	result, err := predictSchema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, fmt.Errorf("validate predict body: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}

	details := make([]FieldError, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		details = append(details, FieldError{
			Field:   fieldName(re),
			Message: re.Description(),
		})
	}
	slices.SortStableFunc(details, func(a, b FieldError) int {
		return cmp.Compare(a.Field, b.Field)
	})
	return details, nil
}

func fieldName(re gojsonschema.ResultError) string {
	if re.Type() == "required" {
		if prop, ok := re.Details()["property"].(string); ok {
			return prop
		}
	}
	if re.Field() == rootField {
		return "body"
	}
	return re.Field()
}
