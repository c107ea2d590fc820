// Package extract pulls header identifiers and filter conditions out of a
// corrected query using an ordered table of pattern rules.
package extract

import (
	"fmt"
	"strconv"
	"strings"

	"query-router/internal/models"
	"query-router/internal/pipeline/rules"
)

type Result struct {
	Header  models.Header
	Filters []models.Entity
	// Errors holds INVALID_HEADER blockers and DUPLICATE_IDENTIFIER warnings.
	Errors []models.ValidationError
}

// Extractor is safe for concurrent use; all per-call state lives in a scan.
type Extractor struct {
	rules rules.RuleSet
	table []rule
}

func New(rs rules.RuleSet) *Extractor {
	return &Extractor{rules: rs, table: buildTable(rs)}
}

// RuleNames lists the extraction rules in evaluation order.
func (e *Extractor) RuleNames() []string {
	names := make([]string, len(e.table))
	for i, r := range e.table {
		names[i] = r.name
	}
	return names
}

func (e *Extractor) Extract(text string) Result {
	s := &scan{
		text:     text,
		rules:    e.rules,
		consumed: make([]bool, len(text)),
		failed:   make(map[models.HeaderField]bool),
		filters:  []models.Entity{},
		errors:   []models.ValidationError{},
	}
	for _, r := range e.table {
		for _, m := range r.pattern.FindAllStringSubmatchIndex(text, -1) {
			if s.overlaps(m[0], m[1]) {
				continue
			}
			if r.apply(s, m) {
				s.consume(m[0], m[1])
			}
		}
	}
	return Result{Header: s.header, Filters: s.filters, Errors: s.errors}
}

type scan struct {
	text     string
	rules    rules.RuleSet
	consumed []bool
	failed   map[models.HeaderField]bool
	header   models.Header
	filters  []models.Entity
	errors   []models.ValidationError
}

func (s *scan) group(m []int, n int) string {
	if m[2*n] < 0 {
		return ""
	}
	return s.text[m[2*n]:m[2*n+1]]
}

func (s *scan) overlaps(start, end int) bool {
	for i := start; i < end; i++ {
		if s.consumed[i] {
			return true
		}
	}
	return false
}

func (s *scan) consume(start, end int) {
	for i := start; i < end; i++ {
		s.consumed[i] = true
	}
}

// setHeader populates a field once. A later, different value is reported and
// dropped.
func (s *scan) setHeader(f models.HeaderField, value string) {
	if s.failed[f] {
		return
	}
	if current, ok := s.header.Get(f); ok {
		if current != value {
			s.errors = append(s.errors, models.Warning(models.CodeDuplicateIdentifier, fmt.Sprintf(
				"Multiple values for %s: keeping '%s', ignoring '%s'", f, current, value)))
		}
		return
	}
	s.header = s.header.With(f, value)
}

// invalid records a format failure. The field stays unset for the rest of the
// scan so it never carries both a value and an error.
func (s *scan) invalid(f models.HeaderField, message string) {
	s.failed[f] = true
	s.errors = append(s.errors, models.Blocker(models.CodeInvalidHeader, message))
}

// addFilter keeps the first filter per attribute.
func (s *scan) addFilter(attr string, op models.Operator, value string) {
	for _, f := range s.filters {
		if f.Attribute == attr {
			return
		}
	}
	s.filters = append(s.filters, models.FilterEntity(attr, op, value))
}

func (s *scan) yearInRange(y int) bool {
	return y >= s.rules.MinYear && y <= s.rules.MaxYear
}

// nameTokens returns the leading run of non-stop-word tokens in group n and
// the text offset where that run ends.
func (s *scan) nameTokens(m []int, n int) (string, int, bool) {
	start := m[2*n]
	if start < 0 {
		return "", 0, false
	}
	group := s.group(m, n)
	var words []string
	end := start
	for _, idx := range wordPattern.FindAllStringIndex(group, -1) {
		w := strings.ToLower(group[idx[0]:idx[1]])
		if nameStopWords[w] || s.isStatusWord(w) || isNumeric(w) {
			break
		}
		words = append(words, w)
		end = start + idx[1]
	}
	if len(words) > 0 && words[0] == "name" {
		words = words[1:]
	}
	if len(words) == 0 {
		return "", 0, false
	}
	return strings.Join(words, " "), end, true
}

func (s *scan) isStatusWord(w string) bool {
	for _, v := range s.rules.StatusVocabulary {
		if strings.EqualFold(v, w) {
			return true
		}
	}
	return false
}

func isNumeric(w string) bool {
	_, err := strconv.Atoi(w)
	return err == nil
}
