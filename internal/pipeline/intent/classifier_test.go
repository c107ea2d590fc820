package intent

import (
	"errors"
	"strings"
	"testing"

	"query-router/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testModel = `{
  "version": "2024-06-01",
  "labels": ["CONTRACT", "PARTS", "HELP"],
  "bias": {"CONTRACT": 0.5},
  "weights": {
    "stock": {"PARTS": 3.0},
    "how": {"HELP": 2.0},
    "renewal": {"CONTRACT": 1.5}
  }
}`

func TestWeightedTokenClassifier_Predict(t *testing.T) {
	clf, err := LoadWeightedTokenClassifier(strings.NewReader(testModel))
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01", clf.Version())

	tests := []struct {
		name          string
		input         string
		expectedLabel models.Module
		minProb       float64
	}{
		{name: "parts token", input: "show ab123 stock", expectedLabel: models.ModuleParts, minProb: 0.8},
		{name: "help token", input: "how does this work", expectedLabel: models.ModuleHelp, minProb: 0.5},
		{name: "bias only", input: "", expectedLabel: models.ModuleContract, minProb: 0.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, prob, err := clf.Predict(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedLabel, label)
			assert.GreaterOrEqual(t, prob, tt.minProb)
			assert.LessOrEqual(t, prob, 1.0)
		})
	}
}

func TestWeightedTokenClassifier_Invalid(t *testing.T) {
	_, err := LoadWeightedTokenClassifier(strings.NewReader(`{"labels": []}`))
	assert.True(t, errors.Is(err, ErrEmptyModel))

	_, err = LoadWeightedTokenClassifier(strings.NewReader(`{"labels": ["ERROR"]}`))
	assert.True(t, errors.Is(err, ErrUnknownLabel))

	_, err = LoadWeightedTokenClassifier(strings.NewReader(`not json`))
	assert.Error(t, err)
}

func TestWeightedTokenClassifier_Stemming(t *testing.T) {
	model := TokenModel{
		Labels:  []models.Module{models.ModuleContract, models.ModuleParts},
		Bias:    map[models.Module]float64{models.ModuleContract: 0.5},
		Weights: map[string]map[models.Module]float64{"stock": {models.ModuleParts: 3.0}},
	}

	plain, err := NewWeightedTokenClassifier(model)
	require.NoError(t, err)
	label, _, err := plain.Predict("low stocks")
	require.NoError(t, err)
	assert.Equal(t, models.ModuleContract, label, "inflected token has no weight without stemming")

	model.Stem = true
	stemmed, err := NewWeightedTokenClassifier(model)
	require.NoError(t, err)
	label, prob, err := stemmed.Predict("low stocks")
	require.NoError(t, err)
	assert.Equal(t, models.ModuleParts, label)
	assert.Greater(t, prob, 0.8)

	label, _, err = stemmed.Predict("AB123 123456")
	require.NoError(t, err)
	assert.Equal(t, models.ModuleContract, label)
}
