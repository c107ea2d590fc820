// Package rules holds the named business rule sets and keyword vocabularies
// shared by the pipeline stages.
package rules

import (
	"fmt"
	"sort"

	"query-router/internal/models"
)

// RuleSet is one named variant of the field and routing rules.
type RuleSet struct {
	Name string

	ContractMinDigits       int
	PartMinLength           int
	CustomerNumberMinDigits int
	CustomerNumberMaxDigits int
	CustomerNameMinLength   int
	MinYear                 int
	MaxYear                 int

	StatusVocabulary    []string
	ConfidenceThreshold float64

	// RequireIdentifierFor lists modules that need a header field or filter.
	RequireIdentifierFor []models.Module
}

const (
	NameDefault = "default"
	NameStrict  = "strict"
)

func Default() RuleSet {
	return RuleSet{
		Name:                    NameDefault,
		ContractMinDigits:       6,
		PartMinLength:           3,
		CustomerNumberMinDigits: 4,
		CustomerNumberMaxDigits: 8,
		CustomerNameMinLength:   2,
		MinYear:                 2000,
		MaxYear:                 2099,
		StatusVocabulary:        []string{"ACTIVE", "INACTIVE", "PENDING", "EXPIRED", "FAILED"},
		ConfidenceThreshold:     0.5,
		RequireIdentifierFor:    []models.Module{models.ModuleContract, models.ModuleParts},
	}
}

// Strict requires an identifier for every module and trusts the statistical
// classifier less.
func Strict() RuleSet {
	r := Default()
	r.Name = NameStrict
	r.CustomerNameMinLength = 3
	r.ConfidenceThreshold = 0.6
	r.RequireIdentifierFor = []models.Module{
		models.ModuleContract,
		models.ModuleParts,
		models.ModuleHelp,
		models.ModulePartsCreateError,
	}
	return r
}

var registry = map[string]func() RuleSet{
	NameDefault: Default,
	NameStrict:  Strict,
}

// Lookup returns the rule set registered under name. An empty name selects
// the default set.
func Lookup(name string) (RuleSet, error) {
	if name == "" {
		return Default(), nil
	}
	build, ok := registry[name]
	if !ok {
		return RuleSet{}, fmt.Errorf("unknown rule set %q (available: %v)", name, Names())
	}
	return build(), nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r RuleSet) RequiresIdentifier(m models.Module) bool {
	for _, req := range r.RequireIdentifierFor {
		if req == m {
			return true
		}
	}
	return false
}

// Validate rejects rule sets whose bounds cannot be satisfied.
func (r RuleSet) Validate() error {
	switch {
	case r.ContractMinDigits < 1:
		return fmt.Errorf("rule set %s: contract_min_digits must be positive", r.Name)
	case r.PartMinLength < 1:
		return fmt.Errorf("rule set %s: part_min_length must be positive", r.Name)
	case r.CustomerNumberMinDigits < 1 || r.CustomerNumberMinDigits > r.CustomerNumberMaxDigits:
		return fmt.Errorf("rule set %s: customer number digit range %d-%d is invalid",
			r.Name, r.CustomerNumberMinDigits, r.CustomerNumberMaxDigits)
	case r.MinYear > r.MaxYear:
		return fmt.Errorf("rule set %s: year range %d-%d is invalid", r.Name, r.MinYear, r.MaxYear)
	case r.ConfidenceThreshold < 0 || r.ConfidenceThreshold > 1:
		return fmt.Errorf("rule set %s: confidence threshold %.2f outside [0,1]", r.Name, r.ConfidenceThreshold)
	}
	return nil
}
