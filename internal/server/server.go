package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Behodler/yield-strategy-router/internal/ledger"
	"github.com/Behodler/yield-strategy-router/internal/observability"
	"github.com/Behodler/yield-strategy-router/internal/query"
	"github.com/Behodler/yield-strategy-router/internal/router"
	"github.com/Behodler/yield-strategy-router/internal/surplus"
	"github.com/Behodler/yield-strategy-router/internal/vault"
)

// Server exposes the router over HTTP/JSON. All mutating requests and live
// balance reads are funneled through a single-goroutine ops loop, which is
// what serializes access to the router; the audit-history endpoints read
// Postgres directly.
type Server struct {
	rt        *router.Router
	extractor *surplus.Extractor
	queries   *query.Service // nil when Postgres is disabled
	health    *observability.HealthChecker
	metrics   *observability.Metrics

	ops    chan func()
	engine *gin.Engine
	log    zerolog.Logger
}

func New(
	rt *router.Router,
	extractor *surplus.Extractor,
	queries *query.Service,
	health *observability.HealthChecker,
	metrics *observability.Metrics,
	log zerolog.Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		rt:        rt,
		extractor: extractor,
		queries:   queries,
		health:    health,
		metrics:   metrics,
		ops:       make(chan func()),
		engine:    gin.New(),
		log:       log.With().Str("component", "server").Logger(),
	}
	s.routes()
	return s
}

// Engine returns the configured gin engine.
func (s *Server) Engine() *gin.Engine { return s.engine }

// RunOps drives the ops loop. Must run on exactly one goroutine; blocks
// until ctx is cancelled.
func (s *Server) RunOps(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-s.ops:
			fn()
		}
	}
}

// do runs fn on the ops goroutine and waits for it to finish.
func (s *Server) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	wrapped := func() {
		fn()
		close(done)
	}
	select {
	case s.ops <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit runs fn on the ops goroutine, serialized with request handling.
// Used for periodic work that reads router state, like snapshots.
func (s *Server) Submit(ctx context.Context, fn func()) error {
	return s.do(ctx, fn)
}

func (s *Server) routes() {
	s.engine.Use(gin.Recovery())

	s.engine.GET("/healthz", gin.WrapF(s.health.LivenessHandler))
	s.engine.GET("/readyz", gin.WrapF(s.health.ReadinessHandler))

	v1 := s.engine.Group("/v1")
	{
		v1.POST("/auth/clients", s.handleSetClient)
		v1.POST("/auth/withdrawers", s.handleSetWithdrawer)

		v1.POST("/deposits", s.handleDeposit)
		v1.POST("/withdrawals", s.handleWithdraw)
		v1.POST("/withdrawals/from", s.handleWithdrawFrom)
		v1.POST("/withdrawals/emergency", s.handleEmergencyWithdraw)
		v1.POST("/withdrawals/total", s.handleTotalWithdrawal)
		v1.GET("/withdrawals/total/:asset/:client", s.handleWithdrawalStatus)

		v1.GET("/balances/:asset/:account", s.handleBalance)

		v1.POST("/surplus/configure", s.handleConfigureExtractor)
		v1.POST("/surplus/withdraw", s.handleWithdrawSurplus)

		v1.GET("/events", s.handleEvents)
		v1.GET("/events/:asset", s.handleEventsByAsset)
		v1.GET("/journal/:asset/:client", s.handleJournal)
	}
}

// observe records the outcome of one operation.
func (s *Server) observe(op string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.OpsDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.OpsRejected.WithLabelValues(op, rejectReason(err)).Inc()
		return
	}
	s.metrics.OpsApplied.WithLabelValues(op).Inc()
}

func rejectReason(err error) string {
	var still *router.StillWaitingError
	switch {
	case errors.Is(err, ledger.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ledger.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ledger.ErrNoBalance):
		return "no_balance"
	case errors.Is(err, router.ErrReentrantCall):
		return "reentrant"
	case errors.As(err, &still):
		return "still_waiting"
	case errors.Is(err, surplus.ErrBadPercentage):
		return "bad_percentage"
	case errors.Is(err, surplus.ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, surplus.ErrNoSurplus):
		return "no_surplus"
	case errors.Is(err, vault.ErrInsufficientShares):
		return "insufficient_shares"
	default:
		return "internal"
	}
}

// fail maps a domain error to an HTTP response.
func fail(c *gin.Context, err error) {
	var still *router.StillWaitingError
	switch {
	case errors.As(err, &still):
		c.JSON(http.StatusConflict, gin.H{
			"error":         "still_waiting",
			"message":       still.Error(),
			"executable_at": still.ExecutableAt.Format(time.RFC3339),
		})
	case errors.Is(err, ledger.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "unauthorized", "message": err.Error()})
	case errors.Is(err, ledger.ErrInvalidArgument),
		errors.Is(err, surplus.ErrBadPercentage):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_argument", "message": err.Error()})
	case errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrNoBalance),
		errors.Is(err, surplus.ErrNoSurplus),
		errors.Is(err, vault.ErrInsufficientShares),
		errors.Is(err, vault.ErrInsufficientFunds):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "insufficient", "message": err.Error()})
	case errors.Is(err, router.ErrReentrantCall),
		errors.Is(err, surplus.ErrNotConfigured):
		c.JSON(http.StatusConflict, gin.H{"error": "conflict", "message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": err.Error()})
	}
}
