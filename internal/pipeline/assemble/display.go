package assemble

import (
	"sort"

	"query-router/internal/models"
	"query-router/internal/pipeline/rules"
)

// Display field names beyond the entity attributes.
const (
	FieldPrice               = "PRICE"
	FieldPriceExpirationDate = "PRICE_EXPIRATION_DATE"
	FieldPaymentTerms        = "PAYMENT_TERMS"
	FieldIncoterms           = "INCOTERMS"
	FieldLeadTime            = "LEAD_TIME"
	FieldMOQ                 = "MOQ"
	FieldUOM                 = "UOM"
	FieldContractLength      = "CONTRACT_LENGTH"
	FieldProjectType         = "PROJECT_TYPE"
)

var moduleDefaults = map[models.Module][]string{
	models.ModuleContract:         {models.AttrContractNumber, models.AttrCustomerName},
	models.ModuleParts:            {models.AttrPartNumber, models.AttrDescription},
	models.ModuleHelp:             {models.AttrHelpTopic, models.AttrInstructions},
	models.ModulePartsCreateError: {models.AttrMessage, models.AttrAlternatives},
}

// DefaultFields returns a copy of the module's default display list.
func DefaultFields(m models.Module) []string {
	return append([]string{}, moduleDefaults[m]...)
}

type phrase struct {
	tokens []string
	field  string
}

func phraseOf(field string, words ...string) phrase {
	return phrase{tokens: words, field: field}
}

// phrases is sorted longest first at init so that a long phrase consumes its
// tokens before a shorter one can.
var phrases = []phrase{
	phraseOf(FieldPriceExpirationDate, "price", "expiration", "date"),
	phraseOf(FieldPriceExpirationDate, "price", "expiration"),
	phraseOf(FieldMOQ, "minimum", "order", "quantity"),
	phraseOf(FieldUOM, "unit", "of", "measure"),
	phraseOf(models.AttrEffectiveDate, "effective", "date"),
	phraseOf(models.AttrExpirationDate, "expiration", "date"),
	phraseOf(models.AttrExpirationDate, "expiry", "date"),
	phraseOf(models.AttrCreatedDate, "created", "date"),
	phraseOf(models.AttrCreatedDate, "creation", "date"),
	phraseOf(models.AttrCustomerName, "customer", "name"),
	phraseOf(models.AttrCustomerNumber, "customer", "number"),
	phraseOf(models.AttrContractNumber, "contract", "number"),
	phraseOf(models.AttrPartNumber, "part", "number"),
	phraseOf(models.AttrCreatedBy, "created", "by"),
	phraseOf(FieldPaymentTerms, "payment", "terms"),
	phraseOf(FieldLeadTime, "lead", "time"),
	phraseOf(FieldContractLength, "contract", "length"),
	phraseOf(FieldProjectType, "project", "type"),
	phraseOf(models.AttrExpirationDate, "expiration"),
	phraseOf(models.AttrExpirationDate, "expiry"),
	phraseOf(FieldIncoterms, "incoterms"),
	phraseOf(FieldMOQ, "moq"),
	phraseOf(FieldUOM, "uom"),
	phraseOf(FieldPrice, "price"),
	phraseOf(FieldPrice, "pricing"),
	phraseOf(models.AttrStatus, "status"),
	phraseOf(models.AttrDescription, "description"),
}

func init() {
	sort.SliceStable(phrases, func(i, j int) bool {
		return len(phrases[i].tokens) > len(phrases[j].tokens)
	})
}

// requestedFields finds display phrases in tokens and returns their fields in
// order of appearance.
func requestedFields(tokens []string) []string {
	consumed := make([]bool, len(tokens))
	type hit struct {
		pos   int
		field string
	}
	var hits []hit

	for _, ph := range phrases {
		n := len(ph.tokens)
		for i := 0; i+n <= len(tokens); i++ {
			if matchAt(tokens, consumed, i, ph.tokens) {
				for k := i; k < i+n; k++ {
					consumed[k] = true
				}
				hits = append(hits, hit{pos: i, field: ph.field})
			}
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.field)
	}
	return out
}

func matchAt(tokens []string, consumed []bool, at int, want []string) bool {
	for k, w := range want {
		if consumed[at+k] || tokens[at+k] != w {
			return false
		}
	}
	return true
}

// onlyShowRemainder returns the tokens after "only show" or "show only".
func onlyShowRemainder(tokens []string) ([]string, bool) {
	for i := 0; i+1 < len(tokens); i++ {
		if (tokens[i] == "only" && tokens[i+1] == "show") || (tokens[i] == "show" && tokens[i+1] == "only") {
			return tokens[i+2:], true
		}
	}
	return nil, false
}

// DisplayFields computes the ordered, de-duplicated field list for a module.
func DisplayFields(module models.Module, filters []models.Entity, text string) []string {
	if module == models.ModuleError {
		return []string{}
	}
	tokens := rules.Tokens(text)

	if rest, ok := onlyShowRemainder(tokens); ok {
		explicit := dedupe(requestedFields(rest))
		if len(explicit) == 0 {
			return DefaultFields(module)
		}
		return explicit
	}

	fields := DefaultFields(module)
	for _, f := range filters {
		fields = append(fields, f.Attribute)
	}
	fields = append(fields, requestedFields(tokens)...)
	return dedupe(fields)
}

func dedupe(fields []string) []string {
	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}
