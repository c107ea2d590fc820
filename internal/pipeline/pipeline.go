// Package pipeline routes one query through every stage against a single
// configuration snapshot.
package pipeline

import (
	"fmt"
	"time"

	"query-router/internal/common/logger"
	"query-router/internal/common/metrics"
	"query-router/internal/models"
	"query-router/internal/pipeline/assemble"
	"query-router/internal/pipeline/intent"
	"query-router/internal/pipeline/normalize"
	"query-router/internal/pipeline/snapshot"
	"query-router/internal/pipeline/spelling"
	"query-router/internal/pipeline/validate"
)

// Observer sees every response produced by Process, including error
// responses.
type Observer func(resp *models.Response, took time.Duration, corrections int)

type Option func(*Pipeline)

// WithClock replaces time.Now for processing-time measurement.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithClassifier sets the statistical fallback consulted on low-confidence
// default routes.
func WithClassifier(c intent.Classifier) Option {
	return func(p *Pipeline) { p.classifier = c }
}

func WithLogger(log logger.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithDiagnostics attaches diagnostics to every response.
func WithDiagnostics(enabled bool) Option {
	return func(p *Pipeline) { p.diagnostics = enabled }
}

func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observers = append(p.observers, o) }
}

// MetricsObserver exports each response to the Prometheus collectors.
func MetricsObserver(resp *models.Response, took time.Duration, corrections int) {
	counts := make([]metrics.ErrorCount, len(resp.Errors))
	for i, e := range resp.Errors {
		counts[i] = metrics.ErrorCount{Code: e.Code, Severity: string(e.Severity)}
	}
	metrics.ObserveQuery(string(resp.QueryMetadata.QueryType), took, counts, corrections)
}

// Pipeline is safe for concurrent use.
type Pipeline struct {
	store       *snapshot.Store
	now         func() time.Time
	classifier  intent.Classifier
	log         logger.Logger
	diagnostics bool
	observers   []Observer
}

func New(store *snapshot.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logger.NewNoOpLogger()
	}
	return p
}

// Process routes raw using the pipeline's diagnostics setting.
func (p *Pipeline) Process(raw string) *models.Response {
	return p.Run(raw, p.diagnostics)
}

// Run routes raw. It never returns nil: unexpected failures become a single
// PROCESSING_ERROR blocker.
func (p *Pipeline) Run(raw string, includeDiagnostics bool) (resp *models.Response) {
	start := p.now()
	corrections := 0

	defer func() {
		if r := recover(); r != nil {
			p.log.Error("Query processing panicked", map[string]interface{}{
				"panic": fmt.Sprint(r),
			})
			resp = models.ErrorResponse(models.CodeProcessingError, fmt.Sprintf("Processing failed: %v", r))
		}
		took := p.now().Sub(start)
		if took < 0 {
			took = 0
		}
		resp.QueryMetadata.ProcessingTimeMs = took.Milliseconds()
		for _, o := range p.observers {
			o(resp, took, corrections)
		}
	}()

	snap := p.store.Load()
	if snap == nil {
		return models.ErrorResponse(models.CodeProcessingError, "Processing failed: no routing configuration loaded")
	}

	q := models.NewQuery(raw)
	q = q.WithNormalized(normalize.Normalize(raw, snap.Normalize))

	corrected := spelling.Correct(q.Normalized, snap.Dictionary)
	q = q.WithCorrected(corrected.Text)
	corrections = len(corrected.Applied)

	extracted := snap.Extractor().Extract(q.Corrected)

	router := intent.New(snap.Vocabulary, snap.Rules, p.classifier, p.log)
	decision := router.Route(q.Corrected, extracted.Header, extracted.Filters)

	validated := validate.Validate(validate.Input{
		Header:       extracted.Header,
		Filters:      extracted.Filters,
		Decision:     decision,
		FormatErrors: extracted.Errors,
	}, snap.Rules)

	return assemble.Assemble(assemble.Input{
		Query:              q,
		Header:             validated.Header,
		Filters:            extracted.Filters,
		Decision:           validated.Decision,
		Errors:             validated.Errors,
		Corrections:        corrected.Applied,
		SnapshotVersion:    snap.Version,
		RuleSet:            snap.Rules.Name,
		IncludeDiagnostics: includeDiagnostics,
	})
}

// Snapshot returns the snapshot the next call will use.
func (p *Pipeline) Snapshot() *snapshot.Snapshot {
	return p.store.Load()
}
