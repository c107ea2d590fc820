package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "query-router/internal/common/errors"
	"query-router/internal/pipeline/extract"
	"query-router/internal/pipeline/intent"
	"query-router/internal/pipeline/snapshot"
)

const (
	codeInternal     = string(apperrors.ErrCodeInternal)
	codeInvalidInput = string(apperrors.ErrCodeInvalidInput)
	codeRateLimited  = "RATE_LIMITED"
	codeUnauthorized = "UNAUTHORIZED"
	codeReloadFailed = string(apperrors.ErrCodeConfigLoadFailed)
	codeNotReady     = string(apperrors.ErrCodeSnapshotNotLoaded)
)

// maxQueryBytes bounds the request body of the route endpoint.
const maxQueryBytes = 64 << 10

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorBody{Error: errorDetail{
		Code:      code,
		Message:   message,
		RequestID: requestIDFrom(c),
	}})
}

type routeRequest struct {
	Query              *string `json:"query"`
	IncludeDiagnostics bool    `json:"includeDiagnostics"`
}

// routeQuery always answers 200 with a routing response once the body
// parses; blockers are part of the response, not transport errors.
func (s *Server) routeQuery(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxQueryBytes)

	var req routeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, codeInvalidInput, "body must be JSON: "+err.Error())
		return
	}
	if req.Query == nil {
		abortWithError(c, http.StatusBadRequest, codeInvalidInput, "query is required")
		return
	}

	resp := s.pipeline.Run(*req.Query, req.IncludeDiagnostics)
	c.JSON(http.StatusOK, resp)
}

type snapshotBody struct {
	Version   string    `json:"version"`
	LoadedAt  time.Time `json:"loadedAt"`
	Source    string    `json:"source"`
	RuleSet   string    `json:"ruleSet"`
	Keywords  keywords  `json:"keywords"`
	Spelling  int       `json:"spellingCorrections"`
	Routes    []string  `json:"routes"`
	Extractor []string  `json:"extractionRules"`
}

type keywords struct {
	Parts     int `json:"parts"`
	Create    int `json:"create"`
	Contract  int `json:"contract"`
	PastTense int `json:"pastTense"`
}

func describe(snap *snapshot.Snapshot) snapshotBody {
	var ruleNames []string
	if ex := snap.Extractor(); ex != nil {
		ruleNames = ex.RuleNames()
	} else {
		ruleNames = extract.New(snap.Rules).RuleNames()
	}
	return snapshotBody{
		Version:  snap.Version,
		LoadedAt: snap.LoadedAt,
		Source:   snap.Source,
		RuleSet:  snap.Rules.Name,
		Keywords: keywords{
			Parts:     snap.Vocabulary.Parts.Len(),
			Create:    snap.Vocabulary.Create.Len(),
			Contract:  snap.Vocabulary.Contract.Len(),
			PastTense: snap.Vocabulary.PastTense.Len(),
		},
		Spelling:  snap.Dictionary.Len(),
		Routes:    intent.RouteNames(),
		Extractor: ruleNames,
	}
}

func (s *Server) reload(c *gin.Context) {
	snap, err := s.store.Reload(c.Request.Context())
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, codeReloadFailed, err.Error())
		return
	}
	c.JSON(http.StatusOK, describe(snap))
}

func (s *Server) snapshotInfo(c *gin.Context) {
	snap := s.store.Load()
	if snap == nil {
		abortWithError(c, http.StatusServiceUnavailable, codeNotReady, "no routing configuration loaded")
		return
	}
	c.JSON(http.StatusOK, describe(snap))
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   s.opts.Now().UTC().Format(time.RFC3339),
	})
}

// ready fails while no snapshot is published or any dependency check fails.
func (s *Server) ready(c *gin.Context) {
	checks := map[string]string{}
	healthy := true

	if s.store.Load() == nil {
		checks["snapshot"] = "not loaded"
		healthy = false
	} else {
		checks["snapshot"] = "ok"
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(s.opts.Checks))
	for name := range s.opts.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := s.opts.Checks[name](ctx); err != nil {
			checks[name] = err.Error()
			healthy = false
			continue
		}
		checks[name] = "ok"
	}

	status, label := http.StatusOK, "ready"
	if !healthy {
		status, label = http.StatusServiceUnavailable, "not ready"
	}
	c.JSON(status, gin.H{
		"status": label,
		"checks": checks,
		"time":   s.opts.Now().UTC().Format(time.RFC3339),
	})
}
