// Package validate applies cross-field business rules and forces blocked
// queries to the ERROR module.
package validate

import (
	"fmt"
	"strings"

	"query-router/internal/models"
	"query-router/internal/pipeline/rules"
)

// PartsCreateAlternatives are offered when a query asks to create parts.
var PartsCreateAlternatives = []string{
	"search existing parts by part number",
	"list the parts on a contract",
	"submit a part creation request through the parts catalog team",
}

type Input struct {
	Header   models.Header
	Filters  []models.Entity
	Decision models.RouteDecision
	// FormatErrors come from extraction and are carried through unchanged.
	FormatErrors []models.ValidationError
}

type Output struct {
	Header   models.Header
	Decision models.RouteDecision
	Errors   []models.ValidationError
}

func Validate(in Input, rs rules.RuleSet) Output {
	errs := make([]models.ValidationError, 0, len(in.FormatErrors)+2)
	errs = append(errs, in.FormatErrors...)

	if rs.RequiresIdentifier(in.Decision.Module) &&
		in.Header.IsEmpty() &&
		len(in.Filters) == 0 &&
		!hasCode(errs, models.CodeInvalidHeader) {
		errs = append(errs, models.Blocker(models.CodeMissingHeader,
			"No identifier or filter found: provide a contract number, part number, customer, date or status"))
	}

	if in.Decision.Module == models.ModulePartsCreateError {
		errs = append(errs, models.Warning(models.CodeBusinessRuleViolation, fmt.Sprintf(
			"Parts cannot be created from a query. Alternatives: %s", strings.Join(PartsCreateAlternatives, "; "))))
	}

	decision := in.Decision
	if b, ok := firstBlocker(errs); ok {
		decision = decision.Blocked(fmt.Sprintf("blocked by %s: %s", b.Code, b.Message))
	}

	return Output{Header: in.Header, Decision: decision, Errors: errs}
}

func hasCode(errs []models.ValidationError, code string) bool {
	for _, e := range errs {
		if e.Code == code {
			return true
		}
	}
	return false
}

func firstBlocker(errs []models.ValidationError) (models.ValidationError, bool) {
	for _, e := range errs {
		if e.Severity == models.SeverityBlocker {
			return e, true
		}
	}
	return models.ValidationError{}, false
}
