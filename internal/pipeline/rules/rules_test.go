package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"query-router/internal/models"
)

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"contract", "123", "for", "ab", "12"}, Tokens("Contract123 for AB-12"))
	assert.Empty(t, Tokens("  -- "))
}

func TestKeywordSet_Count(t *testing.T) {
	set := ParseKeywordLines([]string{
		"# comment",
		"part, parts",
		"",
		"part number",
		"Part Number",
	})
	assert.Equal(t, 3, set.Len())
	assert.Equal(t, []string{"part", "part number", "parts"}, set.Entries())

	tests := []struct {
		name  string
		text  string
		count int
	}{
		{name: "single word", text: "show parts", count: 1},
		{name: "phrase covers both tokens", text: "find part number AB123", count: 3},
		{name: "whole tokens only", text: "partner list", count: 0},
		{name: "empty", text: "", count: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.count, set.Count(Tokens(tt.text)))
			assert.Equal(t, tt.count > 0, set.Contains(Tokens(tt.text)))
		})
	}
}

func TestLookup(t *testing.T) {
	tests := []struct {
		name     string
		ruleSet  string
		expected string
		wantErr  bool
	}{
		{name: "empty selects default", ruleSet: "", expected: NameDefault},
		{name: "default", ruleSet: NameDefault, expected: NameDefault},
		{name: "strict", ruleSet: NameStrict, expected: NameStrict},
		{name: "unknown", ruleSet: "lenient", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs, err := Lookup(tt.ruleSet)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, rs.Name)
			assert.NoError(t, rs.Validate())
		})
	}
	assert.Equal(t, []string{NameDefault, NameStrict}, Names())
}

func TestRequiresIdentifier(t *testing.T) {
	assert.True(t, Default().RequiresIdentifier(models.ModuleContract))
	assert.False(t, Default().RequiresIdentifier(models.ModuleHelp))
	assert.True(t, Strict().RequiresIdentifier(models.ModuleHelp))
}

func TestRuleSet_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RuleSet)
	}{
		{name: "contract digits", mutate: func(r *RuleSet) { r.ContractMinDigits = 0 }},
		{name: "part length", mutate: func(r *RuleSet) { r.PartMinLength = 0 }},
		{name: "customer range", mutate: func(r *RuleSet) { r.CustomerNumberMinDigits = 9 }},
		{name: "years", mutate: func(r *RuleSet) { r.MinYear = 2100 }},
		{name: "threshold", mutate: func(r *RuleSet) { r.ConfidenceThreshold = 1.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := Default()
			tt.mutate(&rs)
			assert.Error(t, rs.Validate())
		})
	}
}
