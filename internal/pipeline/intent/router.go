// Package intent decides which module handles a query and derives the
// action type from the populated identifiers.
package intent

import (
	"fmt"
	"math"

	"query-router/internal/common/logger"
	"query-router/internal/models"
	"query-router/internal/pipeline/rules"
)

const (
	minConfidence   = 0.1
	maxConfidence   = 0.95
	emptyVocabScore = 0.5
)

// Vocabulary groups the keyword sets the router reads.
type Vocabulary struct {
	Parts     rules.KeywordSet
	Create    rules.KeywordSet
	Contract  rules.KeywordSet
	PastTense rules.KeywordSet
}

// signals are the keyword facts computed once per query.
type signals struct {
	tokens    []string
	parts     int
	create    int
	contract  int
	pastTense bool
}

type route struct {
	name   string
	module models.Module
	when   func(s signals) bool
	score  func(v Vocabulary, s signals) float64
}

// routes is evaluated top-down; the first match wins.
var routes = []route{
	{
		name:   "parts creation requested",
		module: models.ModulePartsCreateError,
		when:   func(s signals) bool { return s.parts > 0 && s.create > 0 && !s.pastTense },
		score: func(v Vocabulary, s signals) float64 {
			return ratio(v.Parts.Len()+v.Create.Len(), s.parts+s.create, len(s.tokens))
		},
	},
	{
		name:   "parts keywords present",
		module: models.ModuleParts,
		when:   func(s signals) bool { return s.parts > 0 },
		score:  func(v Vocabulary, s signals) float64 { return ratio(v.Parts.Len(), s.parts, len(s.tokens)) },
	},
	{
		name:   "creation keywords present",
		module: models.ModuleHelp,
		when:   func(s signals) bool { return s.create > 0 },
		score:  func(v Vocabulary, s signals) float64 { return ratio(v.Create.Len(), s.create, len(s.tokens)) },
	},
	{
		name:   "default route",
		module: models.ModuleContract,
		when:   func(signals) bool { return true },
		score:  func(v Vocabulary, s signals) float64 { return ratio(v.Contract.Len(), s.contract, len(s.tokens)) },
	},
}

type Router struct {
	vocab    Vocabulary
	rules    rules.RuleSet
	fallback Classifier
	log      logger.Logger
}

// New builds a router. fallback may be nil.
func New(vocab Vocabulary, rs rules.RuleSet, fallback Classifier, log logger.Logger) *Router {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Router{vocab: vocab, rules: rs, fallback: fallback, log: log}
}

// RouteNames lists the route table in precedence order.
func RouteNames() []string {
	out := make([]string, len(routes))
	for i, r := range routes {
		out[i] = r.name
	}
	return out
}

func (r *Router) Route(text string, header models.Header, filters []models.Entity) models.RouteDecision {
	s := r.signals(text)

	for _, rt := range routes {
		if !rt.when(s) {
			continue
		}
		d := models.RouteDecision{
			Module:     rt.module,
			Confidence: rt.score(r.vocab, s),
			Reason:     rt.name,
		}
		if rt.module == models.ModuleContract && d.Confidence < r.rules.ConfidenceThreshold {
			d = r.consultFallback(text, d)
		}
		d.ActionType = ActionType(d.Module, header, filters)
		return d
	}
	// unreachable: the default route always matches
	return models.RouteDecision{Module: models.ModuleContract, ActionType: ActionType(models.ModuleContract, header, filters)}
}

func (r *Router) signals(text string) signals {
	tokens := rules.Tokens(text)
	return signals{
		tokens:    tokens,
		parts:     r.vocab.Parts.Count(tokens),
		create:    r.vocab.Create.Count(tokens),
		contract:  r.vocab.Contract.Count(tokens),
		pastTense: r.vocab.PastTense.Contains(tokens),
	}
}

// consultFallback asks the statistical classifier for advice. Its label is
// taken only when confident enough and never for error modules.
func (r *Router) consultFallback(text string, d models.RouteDecision) models.RouteDecision {
	if r.fallback == nil {
		return d
	}
	module, prob, err := r.fallback.Predict(text)
	if err != nil {
		r.log.Warn("Statistical classifier failed, keeping default route", map[string]interface{}{
			"error": err,
		})
		return d
	}
	if prob < r.rules.ConfidenceThreshold {
		return d
	}
	switch module {
	case models.ModuleContract, models.ModuleParts, models.ModuleHelp:
	default:
		return d
	}
	return models.RouteDecision{
		Module:     module,
		Confidence: clip(prob),
		Reason:     fmt.Sprintf("statistical classifier: %s (%.2f)", module, prob),
	}
}

// ratio is matched keywords over total tokens, clipped. An empty vocabulary
// scores a neutral 0.5.
func ratio(vocabSize, matched, total int) float64 {
	if vocabSize == 0 {
		return emptyVocabScore
	}
	if total == 0 {
		return minConfidence
	}
	return clip(float64(matched) / float64(total))
}

func clip(v float64) float64 {
	v = math.Max(minConfidence, math.Min(maxConfidence, v))
	return math.Round(v*1e4) / 1e4
}
