// internal/models/query_types.go
package models

// Module is the domain handler a query is routed to.
type Module string

const (
	ModuleContract         Module = "CONTRACT"
	ModuleParts            Module = "PARTS"
	ModuleHelp             Module = "HELP"
	ModulePartsCreateError Module = "PARTS_CREATE_ERROR"
	ModuleError            Module = "ERROR"
)

// IsRoutable reports whether a classifier is allowed to produce this module.
// ERROR is only ever set by validation.
func (m Module) IsRoutable() bool {
	switch m {
	case ModuleContract, ModuleParts, ModuleHelp, ModulePartsCreateError:
		return true
	}
	return false
}

type Operator string

const (
	OperatorEquals      Operator = "EQUALS"
	OperatorInYear      Operator = "IN_YEAR"
	OperatorBetween     Operator = "BETWEEN"
	OperatorGreaterThan Operator = "GREATER_THAN"
)

type EntitySource string

const (
	SourceHeader EntitySource = "HEADER"
	SourceFilter EntitySource = "FILTER"
)

type Severity string

const (
	SeverityWarning Severity = "WARNING"
	SeverityBlocker Severity = "BLOCKER"
)

// Attribute names used for header identifiers, filters and display fields.
const (
	AttrContractNumber = "CONTRACT_NUMBER"
	AttrPartNumber     = "PART_NUMBER"
	AttrCustomerNumber = "CUSTOMER_NUMBER"
	AttrCustomerName   = "CUSTOMER_NAME"
	AttrCreatedBy      = "CREATED_BY"
	AttrCreatedDate    = "CREATED_DATE"
	AttrEffectiveDate  = "EFFECTIVE_DATE"
	AttrExpirationDate = "EXPIRATION_DATE"
	AttrStatus         = "STATUS"
	AttrDescription    = "DESCRIPTION"
	AttrHelpTopic      = "HELP_TOPIC"
	AttrInstructions   = "INSTRUCTIONS"
	AttrMessage        = "MESSAGE"
	AttrAlternatives   = "ALTERNATIVES"
)

// IsDateAttribute reports whether the attribute holds a date filter.
func IsDateAttribute(attr string) bool {
	switch attr {
	case AttrCreatedDate, AttrEffectiveDate, AttrExpirationDate:
		return true
	}
	return false
}

// Response-level error codes.
const (
	CodeInvalidHeader         = "INVALID_HEADER"
	CodeMissingHeader         = "MISSING_HEADER"
	CodeBusinessRuleViolation = "BUSINESS_RULE_VIOLATION"
	CodeProcessingError       = "PROCESSING_ERROR"
	CodeDuplicateIdentifier   = "DUPLICATE_IDENTIFIER"
)

const ActionError = "error"
