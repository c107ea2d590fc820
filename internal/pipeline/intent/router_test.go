package intent

import (
	"errors"
	"strings"
	"testing"

	"query-router/internal/common/logger"
	"query-router/internal/models"
	"query-router/internal/pipeline/rules"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockClassifier struct {
	mock.Mock
}

func (m *MockClassifier) Predict(text string) (models.Module, float64, error) {
	args := m.Called(text)
	return args.Get(0).(models.Module), args.Get(1).(float64), args.Error(2)
}

func testVocabulary() Vocabulary {
	return Vocabulary{
		Parts:     rules.NewKeywordSet(rules.DefaultPartsKeywords),
		Create:    rules.NewKeywordSet(rules.DefaultCreateKeywords),
		Contract:  rules.NewKeywordSet(rules.DefaultContractKeywords),
		PastTense: rules.NewKeywordSet(rules.DefaultPastTenseMarkers),
	}
}

func strPtr(s string) *string { return &s }

func TestRouter_Route(t *testing.T) {
	tests := []struct {
		name           string
		input          string
		header         models.Header
		filters        []models.Entity
		expectedModule models.Module
		expectedAction string
	}{
		{
			name:           "contract by number",
			input:          "show contract 123456",
			header:         models.Header{ContractNumber: strPtr("123456")},
			expectedModule: models.ModuleContract,
			expectedAction: "contracts_by_contractNumber",
		},
		{
			name:           "create parts is a business rule violation",
			input:          "create parts for contract 123456",
			header:         models.Header{ContractNumber: strPtr("123456")},
			expectedModule: models.ModulePartsCreateError,
			expectedAction: ActionPartsCreateError,
		},
		{
			name:           "past tense creation is a parts lookup",
			input:          "parts added to contract 123456",
			header:         models.Header{ContractNumber: strPtr("123456")},
			expectedModule: models.ModuleParts,
			expectedAction: "parts_by_contractNumber",
		},
		{
			name:           "parts keyword",
			input:          "show parts for ab123",
			header:         models.Header{PartNumber: strPtr("AB123")},
			expectedModule: models.ModuleParts,
			expectedAction: "parts_by_partNumber",
		},
		{
			name:           "creation without parts is help",
			input:          "how do i create a contract",
			expectedModule: models.ModuleHelp,
			expectedAction: ActionHelp,
		},
		{
			name:  "created in year is a contract date lookup",
			input: "contracts created in 2024",
			filters: []models.Entity{
				models.FilterEntity(models.AttrCreatedDate, models.OperatorInYear, "2024"),
			},
			expectedModule: models.ModuleContract,
			expectedAction: "contracts_by_date",
		},
		{
			name:  "status filter",
			input: "active contracts",
			filters: []models.Entity{
				models.FilterEntity(models.AttrStatus, models.OperatorEquals, "ACTIVE"),
			},
			expectedModule: models.ModuleContract,
			expectedAction: "contracts_by_status",
		},
		{
			name:           "nothing recognized",
			input:          "hello there",
			expectedModule: models.ModuleContract,
			expectedAction: ActionUnknown,
		},
		{
			name:           "glued tokens still see parts",
			input:          "contract123 parts p456",
			header:         models.Header{PartNumber: strPtr("P456")},
			expectedModule: models.ModuleParts,
			expectedAction: "parts_by_partNumber",
		},
	}

	router := New(testVocabulary(), rules.Default(), nil, logger.NewNoOpLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := router.Route(tt.input, tt.header, tt.filters)
			assert.Equal(t, tt.expectedModule, d.Module)
			assert.Equal(t, tt.expectedAction, d.ActionType)
			assert.GreaterOrEqual(t, d.Confidence, 0.1)
			assert.LessOrEqual(t, d.Confidence, 0.95)
			assert.NotEmpty(t, d.Reason)
		})
	}
}

func TestRouter_PartsCreatePrecedence(t *testing.T) {
	router := New(testVocabulary(), rules.Default(), nil, nil)
	createWords := []string{"create", "add", "generate", "make", "build", "insert", "register"}
	partWords := []string{"part", "parts", "component", "items", "inventory"}

	for _, c := range createWords {
		for _, p := range partWords {
			input := strings.Join([]string{"please", c, "new", p, "for", "contract", "123456"}, " ")
			d := router.Route(input, models.Header{}, nil)
			assert.Equal(t, models.ModulePartsCreateError, d.Module, input)
		}
	}
}

func TestRouter_Confidence(t *testing.T) {
	tests := []struct {
		name     string
		vocab    Vocabulary
		input    string
		expected float64
	}{
		{
			name:     "ratio of parts keywords",
			vocab:    testVocabulary(),
			input:    "parts for acme",
			expected: 0.3333,
		},
		{
			name:     "clipped to maximum",
			vocab:    testVocabulary(),
			input:    "contracts",
			expected: 0.95,
		},
		{
			name:     "clipped to minimum",
			vocab:    testVocabulary(),
			input:    "show me everything for customer acme in the northern region please",
			expected: 0.1,
		},
		{
			name:     "empty input",
			vocab:    testVocabulary(),
			input:    "",
			expected: 0.1,
		},
		{
			name: "empty contract vocabulary scores neutral",
			vocab: Vocabulary{
				Parts:  rules.NewKeywordSet(rules.DefaultPartsKeywords),
				Create: rules.NewKeywordSet(rules.DefaultCreateKeywords),
			},
			input:    "show 123456",
			expected: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(tt.vocab, rules.Default(), nil, nil).Route(tt.input, models.Header{}, nil)
			assert.InDelta(t, tt.expected, d.Confidence, 1e-4)
		})
	}
}

func TestRouter_Fallback(t *testing.T) {
	t.Run("consulted on low confidence default", func(t *testing.T) {
		clf := new(MockClassifier)
		clf.On("Predict", "show ab123 stock").Return(models.ModuleParts, 0.8, nil)

		router := New(testVocabulary(), rules.Default(), clf, logger.NewTestLogger(t))
		d := router.Route("show ab123 stock", models.Header{PartNumber: strPtr("AB123")}, nil)

		assert.Equal(t, models.ModuleParts, d.Module)
		assert.Equal(t, "parts_by_partNumber", d.ActionType)
		assert.Equal(t, 0.8, d.Confidence)
		assert.Contains(t, d.Reason, "statistical classifier")
		clf.AssertExpectations(t)
	})

	t.Run("low probability keeps contract", func(t *testing.T) {
		clf := new(MockClassifier)
		clf.On("Predict", mock.Anything).Return(models.ModuleHelp, 0.3, nil)

		d := New(testVocabulary(), rules.Default(), clf, nil).Route("show ab123 stock", models.Header{}, nil)

		assert.Equal(t, models.ModuleContract, d.Module)
		clf.AssertExpectations(t)
	})

	t.Run("error keeps contract", func(t *testing.T) {
		clf := new(MockClassifier)
		clf.On("Predict", mock.Anything).Return(models.Module(""), 0.0, errors.New("model unavailable"))

		d := New(testVocabulary(), rules.Default(), clf, logger.NewTestLogger(t)).Route("show ab123 stock", models.Header{}, nil)

		assert.Equal(t, models.ModuleContract, d.Module)
		assert.Equal(t, "default route", d.Reason)
	})

	t.Run("error modules are never taken", func(t *testing.T) {
		clf := new(MockClassifier)
		clf.On("Predict", mock.Anything).Return(models.ModulePartsCreateError, 0.99, nil)

		d := New(testVocabulary(), rules.Default(), clf, nil).Route("show ab123 stock", models.Header{}, nil)

		assert.Equal(t, models.ModuleContract, d.Module)
	})

	t.Run("keyword rules win over classifier", func(t *testing.T) {
		clf := new(MockClassifier)

		d := New(testVocabulary(), rules.Default(), clf, nil).Route("show parts", models.Header{}, nil)

		assert.Equal(t, models.ModuleParts, d.Module)
		clf.AssertNotCalled(t, "Predict", mock.Anything)
	})

	t.Run("confident default skips classifier", func(t *testing.T) {
		clf := new(MockClassifier)

		d := New(testVocabulary(), rules.Default(), clf, nil).Route("contract agreements", models.Header{}, nil)

		assert.Equal(t, models.ModuleContract, d.Module)
		clf.AssertNotCalled(t, "Predict", mock.Anything)
	})
}

func TestRouteNames_Precedence(t *testing.T) {
	names := RouteNames()
	require.Len(t, names, 4)
	assert.Equal(t, "parts creation requested", names[0])
	assert.Equal(t, "default route", names[3])
}
