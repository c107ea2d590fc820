package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ResponseSchema describes the canonical routing response.
const ResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["header", "queryMetadata", "entities", "displayEntities", "errors"],
  "additionalProperties": false,
  "properties": {
    "header": {
      "type": "object",
      "required": ["contractNumber", "partNumber", "customerNumber", "customerName", "createdBy"],
      "additionalProperties": false,
      "properties": {
        "contractNumber": {"type": ["string", "null"]},
        "partNumber":     {"type": ["string", "null"]},
        "customerNumber": {"type": ["string", "null"]},
        "customerName":   {"type": ["string", "null"]},
        "createdBy":      {"type": ["string", "null"]}
      }
    },
    "queryMetadata": {
      "type": "object",
      "required": ["queryType", "actionType", "processingTimeMs"],
      "properties": {
        "queryType": {"enum": ["CONTRACT", "PARTS", "HELP", "PARTS_CREATE_ERROR", "ERROR"]},
        "actionType": {"type": "string", "minLength": 1},
        "processingTimeMs": {"type": "integer", "minimum": 0}
      }
    },
    "entities": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["attribute", "operation", "value", "source"],
        "properties": {
          "attribute": {"type": "string", "minLength": 1},
          "operation": {"enum": ["EQUALS", "IN_YEAR", "BETWEEN", "GREATER_THAN"]},
          "value": {"type": "string"},
          "source": {"enum": ["HEADER", "FILTER"]}
        }
      }
    },
    "displayEntities": {"type": "array", "items": {"type": "string"}},
    "errors": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["code", "message", "severity"],
        "properties": {
          "code": {"type": "string", "minLength": 1},
          "message": {"type": "string"},
          "severity": {"enum": ["WARNING", "BLOCKER"]}
        }
      }
    },
    "diagnostics": {
      "type": "object",
      "required": ["query", "corrections", "confidence", "reason", "snapshotVersion", "ruleSet"],
      "properties": {
        "confidence": {"type": "number", "minimum": 0, "maximum": 1},
        "corrections": {"type": "array"}
      }
    }
  }
}`

// RouteInputSchema describes the variables of a route-user-query job and the
// body of the HTTP route request.
const RouteInputSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["query"],
  "properties": {
    "query": {"type": "string"},
    "requestId": {"type": "string"},
    "includeDiagnostics": {"type": "boolean"}
  }
}`

var (
	responseSchema   = mustCompile(ResponseSchema)
	routeInputSchema = mustCompile(RouteInputSchema)
)

func mustCompile(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("invalid embedded schema: %v", err))
	}
	return schema
}

// ValidateResponseJSON checks an encoded routing response.
func ValidateResponseJSON(doc []byte) (*ValidationResult, error) {
	return validate(responseSchema, gojsonschema.NewBytesLoader(doc))
}

// ValidateResponse checks any value that encodes to a routing response.
func ValidateResponse(resp interface{}) (*ValidationResult, error) {
	return validate(responseSchema, gojsonschema.NewGoLoader(resp))
}

// ValidateRouteInput checks decoded job variables or request body fields.
func ValidateRouteInput(input map[string]interface{}) (*ValidationResult, error) {
	return validate(routeInputSchema, gojsonschema.NewGoLoader(input))
}

func validate(schema *gojsonschema.Schema, doc gojsonschema.JSONLoader) (*ValidationResult, error) {
	result, err := schema.Validate(doc)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	errs := []ValidationError{}
	for _, desc := range result.Errors() {
		errs = append(errs, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return &ValidationResult{
		Valid:  result.Valid(),
		Errors: errs,
	}, nil
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

// GetErrorsForField returns errors for a specific field
func (vr *ValidationResult) GetErrorsForField(field string) []ValidationError {
	var fieldErrors []ValidationError
	for _, err := range vr.Errors {
		if err.Field == field || strings.HasPrefix(err.Field, field+".") {
			fieldErrors = append(fieldErrors, err)
		}
	}
	return fieldErrors
}
