// Package api exposes the routing pipeline over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"query-router/internal/common/logger"
	"query-router/internal/pipeline"
	"query-router/internal/pipeline/snapshot"
)

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

type Options struct {
	AdminToken string
	// RateLimit is requests per second on the route endpoint; 0 disables.
	RateLimit float64
	RateBurst int
	Checks    map[string]ReadinessCheck
	Now       func() time.Time
}

type Server struct {
	pipeline *pipeline.Pipeline
	store    *snapshot.Store
	log      logger.Logger
	opts     Options
	engine   *gin.Engine
}

func NewServer(p *pipeline.Pipeline, store *snapshot.Store, log logger.Logger, opts Options) *Server {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		pipeline: p,
		store:    store,
		log:      log.WithFields(map[string]interface{}{"component": "http"}),
		opts:     opts,
		engine:   gin.New(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.Use(RequestID(), Recovery(s.log), AccessLog(s.log))

	s.engine.GET("/health", s.health)
	s.engine.GET("/ready", s.ready)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.engine.Group("/api/v1")
	if s.opts.RateLimit > 0 {
		burst := s.opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		v1.Use(RateLimit(rate.NewLimiter(rate.Limit(s.opts.RateLimit), burst)))
	}
	v1.POST("/query/route", s.routeQuery)

	if s.opts.AdminToken == "" {
		s.log.Warn("Admin token not configured; /admin routes are unauthenticated", map[string]interface{}{
			"routes": []string{"/admin/reload", "/admin/snapshot"},
		})
	}
	admin := s.engine.Group("/admin", AdminAuth(s.opts.AdminToken))
	admin.POST("/reload", s.reload)
	admin.GET("/snapshot", s.snapshotInfo)
}

// Handler returns the HTTP handler for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.engine
}
