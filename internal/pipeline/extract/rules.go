package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"query-router/internal/models"
	"query-router/internal/pipeline/rules"
)

// rule is one row of the ordered extraction table. apply reports whether the
// match was used; unused matches leave their span visible to later rules.
type rule struct {
	name    string
	pattern *regexp.Regexp
	apply   func(s *scan, m []int) bool
}

const qualifier = `(?:\s*(?:number|num|no|#)\s*|\s+)?`

const (
	monthNames = `jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?`
	dateTerm   = `(?:(?:` + monthNames + `)(?:\s+\d{4})?|\d{4})`
)

var (
	ordinalPattern = regexp.MustCompile(`^\d+(?:st|nd|rd|th)$`)
	wordPattern    = regexp.MustCompile(`\S+`)
)

var nameStopWords = map[string]bool{
	"a": true, "an": true, "and": true, "or": true, "the": true, "for": true,
	"in": true, "on": true, "of": true, "with": true, "from": true, "to": true,
	"since": true, "after": true, "before": true, "between": true, "during": true,
	"created": true, "by": true, "show": true, "list": true, "get": true,
	"find": true, "only": true, "that": true, "which": true, "where": true,
	"contract": true, "contracts": true, "part": true, "parts": true,
	"number": true, "num": true, "no": true, "status": true, "effective": true,
	"expiration": true, "expiry": true, "date": true, "dates": true,
	"is": true, "are": true, "was": true, "were": true, "please": true,
}

func buildTable(rs rules.RuleSet) []rule {
	statusWords := make([]string, 0, len(rs.StatusVocabulary))
	for _, w := range rs.StatusVocabulary {
		statusWords = append(statusWords, regexp.QuoteMeta(strings.ToLower(w)))
	}
	statusPattern := `(?i)\b(` + strings.Join(statusWords, "|") + `)\b`
	if len(statusWords) == 0 {
		statusPattern = `a^`
	}

	return []rule{
		{
			name:    "contract_number_in_context",
			pattern: regexp.MustCompile(`(?i)\bcontracts?` + qualifier + `(\d+)\b`),
			apply:   applyContractInContext,
		},
		{
			name:    "customer_number_in_context",
			pattern: regexp.MustCompile(`(?i)\b(?:customer|account)s?` + qualifier + `(\d+)\b`),
			apply:   applyCustomerNumber,
		},
		{
			name:    "part_number_in_context",
			pattern: regexp.MustCompile(`(?i)\bparts?` + qualifier + `([a-z0-9][a-z0-9_-]*)\b`),
			apply:   applyPartInContext,
		},
		{
			name:    "created_by",
			pattern: regexp.MustCompile(`(?i)\bcreated\s+by\s+([a-z][a-z0-9._'-]*(?:\s+[a-z][a-z0-9._'-]*)?)`),
			apply:   applyCreatedBy,
		},
		{
			name:    "customer_name",
			pattern: regexp.MustCompile(`(?i)\b(?:customer|client)s?\s+([a-z][a-z0-9&._'-]*(?:\s+[a-z][a-z0-9&._'-]*){0,3})`),
			apply:   applyCustomerName,
		},
		{
			name:    "date_range",
			pattern: regexp.MustCompile(`(?i)\bbetween\s+(` + dateTerm + `)\s+and\s+(` + dateTerm + `)\b`),
			apply:   applyDateRange,
		},
		{
			name:    "date_lower_bound",
			pattern: regexp.MustCompile(`(?i)\b(?:after|since)\s+(\d{4})\b`),
			apply:   applyLowerBound,
		},
		{
			name:    "year",
			pattern: regexp.MustCompile(`\b(\d{4})\b`),
			apply:   applyYear,
		},
		{
			name:    "status",
			pattern: regexp.MustCompile(statusPattern),
			apply:   applyStatus,
		},
		{
			name:    "bare_contract_number",
			pattern: regexp.MustCompile(fmt.Sprintf(`\b(\d{%d,})\b`, rs.ContractMinDigits)),
			apply:   applyBareContract,
		},
		{
			name:    "bare_part_number",
			pattern: regexp.MustCompile(`(?i)\b([a-z0-9][a-z0-9_-]*)\b`),
			apply:   applyBarePart,
		},
	}
}

func applyContractInContext(s *scan, m []int) bool {
	digits := s.group(m, 1)
	if len(digits) < s.rules.ContractMinDigits {
		s.invalid(models.FieldContractNumber, fmt.Sprintf(
			"Invalid contract number '%s': expected %d+ digits, found %s",
			digits, s.rules.ContractMinDigits, plural(len(digits), "digit")))
		return true
	}
	s.setHeader(models.FieldContractNumber, digits)
	return true
}

func applyCustomerNumber(s *scan, m []int) bool {
	digits := s.group(m, 1)
	if len(digits) < s.rules.CustomerNumberMinDigits || len(digits) > s.rules.CustomerNumberMaxDigits {
		s.invalid(models.FieldCustomerNumber, fmt.Sprintf(
			"Invalid customer number '%s': expected %d-%d digits, found %s",
			digits, s.rules.CustomerNumberMinDigits, s.rules.CustomerNumberMaxDigits, plural(len(digits), "digit")))
		return true
	}
	s.setHeader(models.FieldCustomerNumber, digits)
	return true
}

func applyPartInContext(s *scan, m []int) bool {
	value := s.group(m, 1)
	if !strings.ContainsFunc(value, unicode.IsDigit) || ordinalPattern.MatchString(strings.ToLower(value)) {
		return false
	}
	if !strings.ContainsFunc(value, unicode.IsLetter) {
		// A year after "parts" is a date filter, not a malformed part.
		if y, err := strconv.Atoi(value); err == nil && len(value) == 4 && s.yearInRange(y) {
			return false
		}
		s.invalid(models.FieldPartNumber, fmt.Sprintf(
			"Invalid part number '%s': expected %d+ alphanumeric characters with letters and digits",
			value, s.rules.PartMinLength))
		return true
	}
	if n := len([]rune(value)); n < s.rules.PartMinLength {
		s.invalid(models.FieldPartNumber, fmt.Sprintf(
			"Invalid part number '%s': expected %d+ characters, found %s",
			value, s.rules.PartMinLength, plural(n, "character")))
		return true
	}
	s.setHeader(models.FieldPartNumber, strings.ToUpper(value))
	return true
}

func applyCreatedBy(s *scan, m []int) bool {
	name, end, ok := s.nameTokens(m, 1)
	if !ok {
		return false
	}
	s.setHeader(models.FieldCreatedBy, name)
	s.consume(m[0], end)
	return false
}

func applyCustomerName(s *scan, m []int) bool {
	words := wordPattern.FindAllString(s.group(m, 1), -1)
	if len(words) > 0 {
		switch strings.ToLower(words[0]) {
		case "number", "num", "no", "id":
			return false
		}
	}
	name, end, ok := s.nameTokens(m, 1)
	if !ok {
		return false
	}
	if n := len([]rune(name)); n < s.rules.CustomerNameMinLength {
		s.invalid(models.FieldCustomerName, fmt.Sprintf(
			"Invalid customer name '%s': expected %d+ characters, found %s",
			name, s.rules.CustomerNameMinLength, plural(n, "character")))
	} else {
		s.setHeader(models.FieldCustomerName, name)
	}
	s.consume(m[0], end)
	return false
}

func applyDateRange(s *scan, m []int) bool {
	from, to := strings.ToLower(s.group(m, 1)), strings.ToLower(s.group(m, 2))
	for _, term := range []string{from, to} {
		if y, ok := trailingYear(term); ok && !s.yearInRange(y) {
			return false
		}
	}
	s.addFilter(dateAttribute(s.text[:m[0]]), models.OperatorBetween, from+","+to)
	return true
}

func applyLowerBound(s *scan, m []int) bool {
	year := s.group(m, 1)
	if y, _ := strconv.Atoi(year); !s.yearInRange(y) {
		return false
	}
	s.addFilter(dateAttribute(s.text[:m[0]]), models.OperatorGreaterThan, year)
	return true
}

func applyYear(s *scan, m []int) bool {
	year := s.group(m, 1)
	if y, _ := strconv.Atoi(year); !s.yearInRange(y) {
		return false
	}
	s.addFilter(dateAttribute(s.text[:m[0]]), models.OperatorInYear, year)
	return true
}

func applyStatus(s *scan, m []int) bool {
	s.addFilter(models.AttrStatus, models.OperatorEquals, strings.ToUpper(s.group(m, 1)))
	return true
}

func applyBareContract(s *scan, m []int) bool {
	if s.failed[models.FieldContractNumber] {
		return false
	}
	s.setHeader(models.FieldContractNumber, s.group(m, 1))
	return true
}

func applyBarePart(s *scan, m []int) bool {
	value := s.group(m, 1)
	if s.failed[models.FieldPartNumber] ||
		len([]rune(value)) < s.rules.PartMinLength ||
		!strings.ContainsFunc(value, unicode.IsDigit) ||
		!strings.ContainsFunc(value, unicode.IsLetter) ||
		ordinalPattern.MatchString(strings.ToLower(value)) {
		return false
	}
	s.setHeader(models.FieldPartNumber, strings.ToUpper(value))
	return true
}

// dateAttribute picks the date column named by the words just before a date
// expression.
func dateAttribute(before string) string {
	words := strings.Fields(strings.ToLower(before))
	if len(words) > 3 {
		words = words[len(words)-3:]
	}
	for i := len(words) - 1; i >= 0; i-- {
		switch {
		case strings.HasPrefix(words[i], "effective"):
			return models.AttrEffectiveDate
		case strings.HasPrefix(words[i], "expir"):
			return models.AttrExpirationDate
		}
	}
	return models.AttrCreatedDate
}

func trailingYear(term string) (int, bool) {
	f := strings.Fields(term)
	if len(f) == 0 {
		return 0, false
	}
	y, err := strconv.Atoi(f[len(f)-1])
	return y, err == nil
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
