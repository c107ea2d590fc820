// internal/models/query.go
package models

import "fmt"

// Query carries the raw user text and the forms derived from it by the
// normalization and spelling stages. Each stage returns a new value.
type Query struct {
	Raw        string `json:"raw"`
	Normalized string `json:"normalized"`
	Corrected  string `json:"corrected"`
}

func NewQuery(raw string) Query {
	return Query{Raw: raw}
}

func (q Query) WithNormalized(s string) Query {
	q.Normalized = s
	return q
}

func (q Query) WithCorrected(s string) Query {
	q.Corrected = s
	return q
}

type Entity struct {
	Attribute string       `json:"attribute"`
	Operator  Operator     `json:"operation"`
	Value     string       `json:"value"`
	Source    EntitySource `json:"source"`
}

func FilterEntity(attr string, op Operator, value string) Entity {
	return Entity{Attribute: attr, Operator: op, Value: value, Source: SourceFilter}
}

// Header holds the primary record identifiers. Nil fields were not found or
// failed their format rule.
type Header struct {
	ContractNumber *string `json:"contractNumber"`
	PartNumber     *string `json:"partNumber"`
	CustomerNumber *string `json:"customerNumber"`
	CustomerName   *string `json:"customerName"`
	CreatedBy      *string `json:"createdBy"`
}

// HeaderField names one of the Header identifiers.
type HeaderField string

const (
	FieldContractNumber HeaderField = "contractNumber"
	FieldPartNumber     HeaderField = "partNumber"
	FieldCustomerNumber HeaderField = "customerNumber"
	FieldCustomerName   HeaderField = "customerName"
	FieldCreatedBy      HeaderField = "createdBy"
)

// HeaderFields lists the header fields in action-type priority order.
var HeaderFields = []HeaderField{
	FieldContractNumber,
	FieldPartNumber,
	FieldCustomerNumber,
	FieldCustomerName,
	FieldCreatedBy,
}

var headerAttributes = map[HeaderField]string{
	FieldContractNumber: AttrContractNumber,
	FieldPartNumber:     AttrPartNumber,
	FieldCustomerNumber: AttrCustomerNumber,
	FieldCustomerName:   AttrCustomerName,
	FieldCreatedBy:      AttrCreatedBy,
}

func (f HeaderField) Attribute() string {
	return headerAttributes[f]
}

func (h *Header) slot(f HeaderField) **string {
	switch f {
	case FieldContractNumber:
		return &h.ContractNumber
	case FieldPartNumber:
		return &h.PartNumber
	case FieldCustomerNumber:
		return &h.CustomerNumber
	case FieldCustomerName:
		return &h.CustomerName
	case FieldCreatedBy:
		return &h.CreatedBy
	}
	panic(fmt.Sprintf("unknown header field %q", f))
}

// Get returns the field value and whether it is populated.
func (h Header) Get(f HeaderField) (string, bool) {
	p := *h.slot(f)
	if p == nil {
		return "", false
	}
	return *p, true
}

// With returns a copy of the header with the field set.
func (h Header) With(f HeaderField, value string) Header {
	v := value
	*h.slot(f) = &v
	return h
}

func (h Header) IsEmpty() bool {
	for _, f := range HeaderFields {
		if _, ok := h.Get(f); ok {
			return false
		}
	}
	return true
}

// Entities returns the populated identifiers as HEADER entities in field order.
func (h Header) Entities() []Entity {
	out := []Entity{}
	for _, f := range HeaderFields {
		if v, ok := h.Get(f); ok {
			out = append(out, Entity{
				Attribute: f.Attribute(),
				Operator:  OperatorEquals,
				Value:     v,
				Source:    SourceHeader,
			})
		}
	}
	return out
}

type RouteDecision struct {
	Module     Module  `json:"module"`
	ActionType string  `json:"actionType"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// Blocked returns the ERROR decision that replaces d when validation fails.
func (d RouteDecision) Blocked(reason string) RouteDecision {
	return RouteDecision{
		Module:     ModuleError,
		ActionType: ActionError,
		Confidence: d.Confidence,
		Reason:     reason,
	}
}

type ValidationError struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

func Blocker(code, message string) ValidationError {
	return ValidationError{Code: code, Message: message, Severity: SeverityBlocker}
}

func Warning(code, message string) ValidationError {
	return ValidationError{Code: code, Message: message, Severity: SeverityWarning}
}

// HasBlocker reports whether any error in errs is a BLOCKER.
func HasBlocker(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityBlocker {
			return true
		}
	}
	return false
}
