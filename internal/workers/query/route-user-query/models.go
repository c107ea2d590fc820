// internal/workers/query/route-user-query/models.go
package routeuserquery

import "query-router/internal/models"

type Input struct {
	Query              string `json:"query"`
	RequestID          string `json:"requestId,omitempty"`
	IncludeDiagnostics bool   `json:"includeDiagnostics,omitempty"`
}

type Output struct {
	RequestID     string           `json:"requestId,omitempty"`
	QueryResponse *models.Response `json:"queryResponse"`
	RoutedModule  models.Module    `json:"routedModule"`
	Blocked       bool             `json:"blocked"`
	Cached        bool             `json:"cached"`
}
