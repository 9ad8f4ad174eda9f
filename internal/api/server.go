// Package api exposes a small read and trigger HTTP surface over a TARA
// database: analysis lookup, the risk register, batch recalculation, and
// report export. Mutating the analysis itself stays with the CLI.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/autogt/autogt/internal/database"
	"github.com/autogt/autogt/internal/report"
	"github.com/autogt/autogt/internal/risk"
	"github.com/autogt/autogt/pkg/logger"
)

// shutdownGrace bounds how long in-flight requests may run after the
// server's context is canceled.
const shutdownGrace = 10 * time.Second

// Server serves the read-only API for a single AutoGT database.
type Server struct {
	db      *database.DB
	engine  *risk.Engine
	builder *report.Builder
	log     logger.Logger
	limiter *rate.Limiter
	addr    string
}

// NewServer wires the API against an open database. rateLimit is the
// sustained requests-per-second budget; zero or negative disables limiting.
func NewServer(db *database.DB, engine *risk.Engine, policy risk.Policy, addr string, rateLimit float64, log logger.Logger) *Server {
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	var limiter *rate.Limiter
	if rateLimit > 0 {
		burst := int(rateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(rateLimit), burst)
	}

	return &Server{
		db:      db,
		engine:  engine,
		builder: report.NewBuilder(db, engine.Matrix(), policy, log),
		log:     log.With("component", "api"),
		limiter: limiter,
		addr:    addr,
	}
}

// Router builds the gin engine with middleware and all routes attached.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(s.log))
	if s.limiter != nil {
		router.Use(rateLimit(s.limiter))
	}

	router.GET("/healthz", s.handleHealth)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/analyses", s.handleListAnalyses)
		v1.GET("/analyses/:id", s.handleGetAnalysis)
		v1.GET("/analyses/:id/risks", s.handleListRisks)
		v1.POST("/analyses/:id/risks/recalculate", s.handleRecalculate)
		v1.GET("/analyses/:id/export/:format", s.handleExport)
	}

	return router
}

// Run serves until the context is canceled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.Info("API server listening", "addr", s.addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down api server: %w", err)
	}
	s.log.Info("API server stopped")
	return nil
}
