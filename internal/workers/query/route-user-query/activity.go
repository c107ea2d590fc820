// internal/workers/query/route-user-query/activity.go
package routeuserquery

import (
	"encoding/json"

	apperrors "query-router/internal/common/errors"
	"query-router/internal/common/validation"
	"query-router/pkg/registry"
)

// Activity describes this worker for the activity registry.
func Activity(cfg *Config, retries int) registry.Activity {
	return registry.Activity{
		ID:                   TaskType,
		DisplayName:          "Route User Query",
		Description:          "Normalizes, spell-corrects and classifies a free-text query and returns the target module with its extracted filters.",
		Category:             "query",
		Version:              "1.0.0",
		TaskType:             TaskType,
		ImplementationStatus: "completed",
		InputSchema:          schemaMap(validation.RouteInputSchema),
		OutputSchema: map[string]interface{}{
			"type":     "object",
			"required": []interface{}{"queryResponse", "routedModule", "blocked", "cached"},
			"properties": map[string]interface{}{
				"requestId":     map[string]interface{}{"type": "string"},
				"queryResponse": schemaMap(validation.ResponseSchema),
				"routedModule":  map[string]interface{}{"type": "string"},
				"blocked":       map[string]interface{}{"type": "boolean"},
				"cached":        map[string]interface{}{"type": "boolean"},
			},
		},
		ErrorCodes: []string{
			apperrors.BPMNErrorMapping[apperrors.ErrCodeInvalidInput],
			apperrors.BPMNErrorMapping[apperrors.ErrCodeSnapshotNotLoaded],
			apperrors.BPMNErrorMapping[apperrors.ErrCodeInternal],
		},
		Timeout:   cfg.Timeout.String(),
		Retries:   retries,
		Workflows: []string{},
		Tags:      []string{"routing", "nlp", "query"},
	}
}

func schemaMap(schema string) map[string]interface{} {
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(schema), &m); err != nil {
		panic("invalid embedded schema: " + err.Error())
	}
	delete(m, "$schema")
	return m
}
