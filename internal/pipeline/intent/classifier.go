package intent

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/kljensen/snowball"

	"query-router/internal/models"
	"query-router/internal/pipeline/rules"
)

var (
	ErrEmptyModel   = errors.New("EMPTY_CLASSIFIER_MODEL")
	ErrUnknownLabel = errors.New("UNKNOWN_CLASSIFIER_LABEL")
)

// Classifier is a pre-trained statistical model. It only advises the router.
type Classifier interface {
	Predict(text string) (models.Module, float64, error)
}

// TokenModel is the serialized form of a bag-of-tokens linear model.
type TokenModel struct {
	Version string                               `json:"version"`
	Labels  []models.Module                      `json:"labels"`
	Bias    map[models.Module]float64            `json:"bias"`
	Weights map[string]map[models.Module]float64 `json:"weights"`
	// Stem folds weight keys and query tokens to their English stems, so
	// "contracts" and "contract" share a weight.
	Stem bool `json:"stem,omitempty"`
}

// WeightedTokenClassifier scores each label as bias plus the summed weights
// of the query tokens and returns the softmax probability of the best label.
type WeightedTokenClassifier struct {
	model TokenModel
}

func NewWeightedTokenClassifier(model TokenModel) (*WeightedTokenClassifier, error) {
	if len(model.Labels) == 0 {
		return nil, ErrEmptyModel
	}
	for _, l := range model.Labels {
		if !l.IsRoutable() {
			return nil, fmt.Errorf("%w: %s", ErrUnknownLabel, l)
		}
	}
	if model.Stem {
		model.Weights = stemWeights(model.Weights)
	}
	return &WeightedTokenClassifier{model: model}, nil
}

// stemWeights re-keys weights by stem, summing entries that collapse together.
func stemWeights(weights map[string]map[models.Module]float64) map[string]map[models.Module]float64 {
	out := make(map[string]map[models.Module]float64, len(weights))
	for token, byLabel := range weights {
		key := stem(token)
		if out[key] == nil {
			out[key] = make(map[models.Module]float64, len(byLabel))
		}
		for l, w := range byLabel {
			out[key][l] += w
		}
	}
	return out
}

// stem leaves tokens the stemmer rejects (digits, mixed scripts) unchanged.
func stem(token string) string {
	s, err := snowball.Stem(token, "english", true)
	if err != nil || s == "" {
		return token
	}
	return s
}

func LoadWeightedTokenClassifier(r io.Reader) (*WeightedTokenClassifier, error) {
	var model TokenModel
	if err := json.NewDecoder(r).Decode(&model); err != nil {
		return nil, fmt.Errorf("decode classifier model: %w", err)
	}
	return NewWeightedTokenClassifier(model)
}

func LoadWeightedTokenClassifierFile(path string) (*WeightedTokenClassifier, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open classifier model: %w", err)
	}
	defer f.Close()
	return LoadWeightedTokenClassifier(f)
}

func (c *WeightedTokenClassifier) Version() string {
	return c.model.Version
}

func (c *WeightedTokenClassifier) Predict(text string) (models.Module, float64, error) {
	tokens := rules.Tokens(text)
	if c.model.Stem {
		for i, t := range tokens {
			tokens[i] = stem(t)
		}
	}
	scores := make([]float64, len(c.model.Labels))
	for i, l := range c.model.Labels {
		scores[i] = c.model.Bias[l]
		for _, t := range tokens {
			scores[i] += c.model.Weights[t][l]
		}
	}

	best := 0
	for i := range scores {
		if scores[i] > scores[best] {
			best = i
		}
	}
	var sum float64
	for _, s := range scores {
		sum += math.Exp(s - scores[best])
	}
	return c.model.Labels[best], 1 / sum, nil
}
