// internal/models/response.go
package models

// Response is the structured result of routing one query. Field order is the
// canonical JSON emission order.
type Response struct {
	Header          Header            `json:"header"`
	QueryMetadata   QueryMetadata     `json:"queryMetadata"`
	Entities        []Entity          `json:"entities"`
	DisplayEntities []string          `json:"displayEntities"`
	Errors          []ValidationError `json:"errors"`
	Diagnostics     *Diagnostics      `json:"diagnostics,omitempty"`
}

type QueryMetadata struct {
	QueryType        Module `json:"queryType"`
	ActionType       string `json:"actionType"`
	ProcessingTimeMs int64  `json:"processingTimeMs"`
}

// Diagnostics is only attached when the caller asks for it.
type Diagnostics struct {
	Query           Query        `json:"query"`
	Corrections     []Correction `json:"corrections"`
	Confidence      float64      `json:"confidence"`
	Reason          string       `json:"reason"`
	SnapshotVersion string       `json:"snapshotVersion"`
	RuleSet         string       `json:"ruleSet"`
}

type Correction struct {
	Original  string `json:"original"`
	Corrected string `json:"corrected"`
}

// HasBlocker reports whether the response carries a BLOCKER error.
func (r *Response) HasBlocker() bool {
	return HasBlocker(r.Errors)
}

// ErrorResponse builds the terminal response used for unexpected failures.
func ErrorResponse(code, message string) *Response {
	return &Response{
		QueryMetadata: QueryMetadata{
			QueryType:  ModuleError,
			ActionType: ActionError,
		},
		Entities:        []Entity{},
		DisplayEntities: []string{},
		Errors:          []ValidationError{Blocker(code, message)},
	}
}
