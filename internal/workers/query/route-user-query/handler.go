// internal/workers/query/route-user-query/handler.go
package routeuserquery

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.opentelemetry.io/otel/attribute"

	"query-router/internal/common/database"
	apperrors "query-router/internal/common/errors"
	"query-router/internal/common/logger"
	"query-router/internal/common/metrics"
	"query-router/internal/common/observability"
	"query-router/internal/common/validation"
	"query-router/internal/models"
	"query-router/internal/pipeline"
)

const (
	TaskType = "route-user-query"
)

type Handler struct {
	config   *Config
	pipeline *pipeline.Pipeline
	cache    *database.RedisClient
	obs      *observability.Observability
	errors   *apperrors.ErrorHandler
	logger   logger.Logger
}

// NewHandler builds the worker handler. cache and obs may be nil.
func NewHandler(config *Config, p *pipeline.Pipeline, cache *database.RedisClient, obs *observability.Observability, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		pipeline: p,
		cache:    cache,
		obs:      obs,
		errors:   apperrors.NewErrorHandler(log),
		logger:   log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	ctx, span := h.obs.StartSpan(ctx, TaskType,
		attribute.Int64("jobKey", job.Key),
		attribute.Int64("processInstanceKey", job.ProcessInstanceKey),
	)

	output, err := h.handle(ctx, job)
	observability.EndSpan(span, err)

	if err != nil {
		bpmnErr := h.errors.HandleJobError(ctx, client, job, err)
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, bpmnErr.Code).Inc()
		h.obs.RecordJobProcessed(ctx, "failed")
		return
	}

	h.completeJob(client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.obs.RecordJobProcessed(ctx, "completed")
	h.obs.RecordJobDuration(ctx, time.Since(start), "completed")
}

func (h *Handler) handle(ctx context.Context, job entities.Job) (*Output, error) {
	input, err := DecodeInput(job.Variables)
	if err != nil {
		return nil, err
	}
	return h.Execute(ctx, input)
}

// DecodeInput parses and validates job variables.
func DecodeInput(variables string) (*Input, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(variables), &raw); err != nil {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err))
	}

	result, err := validation.ValidateRouteInput(raw)
	if err != nil {
		return nil, apperrors.NewInvalidInputError(err.Error())
	}
	if !result.Valid {
		return nil, apperrors.NewInvalidInputError(strings.Join(result.GetErrorMessages(), "; "))
	}

	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err))
	}
	return &input, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if h.config.MaxQueryLength > 0 && len(input.Query) > h.config.MaxQueryLength {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf(
			"query is %d bytes, limit is %d", len(input.Query), h.config.MaxQueryLength))
	}

	snap := h.pipeline.Snapshot()
	if snap == nil {
		return nil, apperrors.NewSnapshotNotLoadedError()
	}

	key := h.cacheKey(snap.Version, input)
	if resp, ok := h.lookup(ctx, key); ok {
		h.obs.RecordQueryRouted(ctx, string(resp.QueryMetadata.QueryType), true)
		return newOutput(input, resp, true), nil
	}

	resp := h.pipeline.Run(input.Query, input.IncludeDiagnostics)
	h.obs.RecordQueryRouted(ctx, string(resp.QueryMetadata.QueryType), false)

	h.logger.Info("query routed", map[string]interface{}{
		"requestId":  input.RequestID,
		"module":     resp.QueryMetadata.QueryType,
		"actionType": resp.QueryMetadata.ActionType,
		"errors":     len(resp.Errors),
	})

	// Only cache when the snapshot did not change mid-call, and never cache
	// internal failures.
	if current := h.pipeline.Snapshot(); current != nil && current.Version == snap.Version &&
		!hasCode(resp.Errors, models.CodeProcessingError) {
		h.store(ctx, key, resp)
	}

	return newOutput(input, resp, false), nil
}

func newOutput(input *Input, resp *models.Response, cached bool) *Output {
	return &Output{
		RequestID:     input.RequestID,
		QueryResponse: resp,
		RoutedModule:  resp.QueryMetadata.QueryType,
		Blocked:       resp.HasBlocker(),
		Cached:        cached,
	}
}

// cacheKey scopes cached responses to one snapshot version so a reload
// invalidates them implicitly.
func (h *Handler) cacheKey(version string, input *Input) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%t\x00%s", input.IncludeDiagnostics, input.Query)))
	return h.config.CacheKeyPrefix + version + ":" + hex.EncodeToString(sum[:])
}

func (h *Handler) cachingEnabled() bool {
	return h.cache != nil && h.config.CacheTTL > 0
}

// lookup treats every cache failure as a miss.
func (h *Handler) lookup(ctx context.Context, key string) (*models.Response, bool) {
	if !h.cachingEnabled() {
		return nil, false
	}
	var resp models.Response
	err := h.cache.GetJSON(ctx, key, &resp)
	switch {
	case err == nil:
		metrics.WorkerCacheLookups.WithLabelValues(TaskType, "hit").Inc()
		return &resp, true
	case errors.Is(err, database.ErrCacheMiss):
		metrics.WorkerCacheLookups.WithLabelValues(TaskType, "miss").Inc()
	default:
		metrics.WorkerCacheLookups.WithLabelValues(TaskType, "error").Inc()
		h.logger.Warn("cache lookup failed, routing without cache", map[string]interface{}{
			"error": apperrors.NewCacheUnavailableError(err),
		})
	}
	return nil, false
}

func (h *Handler) store(ctx context.Context, key string, resp *models.Response) {
	if !h.cachingEnabled() {
		return
	}
	if err := h.cache.SetJSON(ctx, key, resp, h.config.CacheTTL); err != nil {
		h.logger.Warn("failed to cache routing response", map[string]interface{}{
			"error": apperrors.NewCacheUnavailableError(err),
		})
	}
}

func hasCode(errs []models.ValidationError, code string) bool {
	for _, e := range errs {
		if e.Code == code {
			return true
		}
	}
	return false
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err,
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err,
		})
	}
}
