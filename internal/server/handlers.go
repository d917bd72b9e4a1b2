package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Behodler/yield-strategy-router/internal/router"
	"github.com/Behodler/yield-strategy-router/internal/surplus"
)

// ============================================================================
// Authorization
// ============================================================================

type setAuthRequest struct {
	Caller   uuid.UUID `json:"caller" binding:"required"`
	Identity uuid.UUID `json:"identity"`
	Enabled  bool      `json:"enabled"`
}

func (s *Server) handleSetClient(c *gin.Context) {
	var req setAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_argument", "message": err.Error()})
		return
	}

	start := time.Now()
	var opErr error
	if err := s.do(c.Request.Context(), func() {
		opErr = s.rt.SetClient(req.Caller, req.Identity, req.Enabled)
	}); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "unavailable"})
		return
	}
	s.observe("set_client", start, opErr)
	if opErr != nil {
		fail(c, opErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"identity": req.Identity, "enabled": req.Enabled})
}

func (s *Server) handleSetWithdrawer(c *gin.Context) {
	var req setAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_argument", "message": err.Error()})
		return
	}

	start := time.Now()
	var opErr error
	if err := s.do(c.Request.Context(), func() {
		opErr = s.rt.SetWithdrawer(req.Caller, req.Identity, req.Enabled)
	}); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "unavailable"})
		return
	}
	s.observe("set_withdrawer", start, opErr)
	if opErr != nil {
		fail(c, opErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"identity": req.Identity, "enabled": req.Enabled})
}

// ============================================================================
// Deposit / Withdraw
// ============================================================================

type depositRequest struct {
	Caller    uuid.UUID `json:"caller" binding:"required"`
	Asset     string    `json:"asset" binding:"required"`
	Amount    int64     `json:"amount" binding:"required"`
	Recipient uuid.UUID `json:"recipient"`
}

func (s *Server) handleDeposit(c *gin.Context) {
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_argument", "message": err.Error()})
		return
	}

	start := time.Now()
	var (
		shares int64
		opErr  error
	)
	if err := s.do(c.Request.Context(), func() {
		shares, opErr = s.rt.Deposit(req.Caller, req.Asset, req.Amount, req.Recipient)
	}); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "unavailable"})
		return
	}
	s.observe("deposit", start, opErr)
	if opErr != nil {
		fail(c, opErr)
		return
	}
	if s.metrics != nil {
		s.metrics.DepositVolume.WithLabelValues(req.Asset).Add(float64(req.Amount))
	}
	c.JSON(http.StatusOK, gin.H{"asset": req.Asset, "amount": req.Amount, "shares": shares})
}

func (s *Server) handleWithdraw(c *gin.Context) {
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_argument", "message": err.Error()})
		return
	}

	start := time.Now()
	var (
		paid  int64
		opErr error
	)
	if err := s.do(c.Request.Context(), func() {
		paid, opErr = s.rt.Withdraw(req.Caller, req.Asset, req.Amount, req.Recipient)
	}); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "unavailable"})
		return
	}
	s.observe("withdraw", start, opErr)
	if opErr != nil {
		fail(c, opErr)
		return
	}
	if s.metrics != nil {
		s.metrics.WithdrawalVolume.WithLabelValues(req.Asset).Add(float64(paid))
	}
	c.JSON(http.StatusOK, gin.H{"asset": req.Asset, "paid": paid})
}

type withdrawFromRequest struct {
	Caller    uuid.UUID `json:"caller" binding:"required"`
	Asset     string    `json:"asset" binding:"required"`
	Client    uuid.UUID `json:"client"`
	Amount    int64     `json:"amount" binding:"required"`
	Recipient uuid.UUID `json:"recipient"`
}

func (s *Server) handleWithdrawFrom(c *gin.Context) {
	var req withdrawFromRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_argument", "message": err.Error()})
		return
	}

	start := time.Now()
	var (
		paid  int64
		opErr error
	)
	if err := s.do(c.Request.Context(), func() {
		paid, opErr = s.rt.WithdrawFrom(req.Caller, req.Asset, req.Client, req.Amount, req.Recipient)
	}); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "unavailable"})
		return
	}
	s.observe("withdraw_from", start, opErr)
	if opErr != nil {
		fail(c, opErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"asset": req.Asset, "paid": paid})
}

type emergencyRequest struct {
	Caller uuid.UUID `json:"caller" binding:"required"`
	Asset  string    `json:"asset" binding:"required"`
	Amount int64     `json:"amount" binding:"required"`
}

func (s *Server) handleEmergencyWithdraw(c *gin.Context) {
	var req emergencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_argument", "message": err.Error()})
		return
	}

	start := time.Now()
	var (
		redeemed int64
		opErr    error
	)
	if err := s.do(c.Request.Context(), func() {
		redeemed, opErr = s.rt.EmergencyWithdraw(req.Caller, req.Asset, req.Amount)
	}); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "unavailable"})
		return
	}
	s.observe("emergency_withdraw", start, opErr)
	if opErr != nil {
		fail(c, opErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"asset": req.Asset, "redeemed": redeemed})
}

// ============================================================================
// Total Withdrawal
// ============================================================================

type totalWithdrawalRequest struct {
	Caller uuid.UUID `json:"caller" binding:"required"`
	Asset  string    `json:"asset" binding:"required"`
	Client uuid.UUID `json:"client"`
}

func (s *Server) handleTotalWithdrawal(c *gin.Context) {
	var req totalWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_argument", "message": err.Error()})
		return
	}

	start := time.Now()
	var (
		out   *router.Outcome
		opErr error
	)
	if err := s.do(c.Request.Context(), func() {
		out, opErr = s.rt.TotalWithdrawal(req.Caller, req.Asset, req.Client)
	}); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "unavailable"})
		return
	}
	s.observe("total_withdrawal", start, opErr)
	if opErr != nil {
		fail(c, opErr)
		return
	}

	if out.Initiated {
		if s.metrics != nil {
			s.metrics.TotalWithdrawalsInitiated.WithLabelValues(req.Asset).Inc()
		}
		c.JSON(http.StatusOK, gin.H{
			"phase":          "initiated",
			"cached_balance": out.CachedBalance,
			"executable_at":  out.ExecutableAt.Format(time.RFC3339),
			"expires_at":     out.ExpiresAt.Format(time.RFC3339),
		})
		return
	}
	if s.metrics != nil {
		s.metrics.TotalWithdrawalsExecuted.WithLabelValues(req.Asset).Inc()
	}
	c.JSON(http.StatusOK, gin.H{
		"phase":             "executed",
		"cached_balance":    out.CachedBalance,
		"redeemed":          out.Redeemed,
		"cleared_principal": out.ClearedPrincipal,
	})
}

func (s *Server) handleWithdrawalStatus(c *gin.Context) {
	asset := c.Param("asset")
	client, err := uuid.Parse(c.Param("client"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_argument", "message": "bad client id"})
		return
	}

	var (
		status router.WithdrawalStatus
		rec    *router.WithdrawalRecord
	)
	if err := s.do(c.Request.Context(), func() {
		status, rec = s.rt.WithdrawalStatusOf(asset, client)
	}); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "unavailable"})
		return
	}

	resp := gin.H{"asset": asset, "client": client, "status": status.String()}
	if rec != nil {
		resp["cached_balance"] = rec.CachedBalance
		resp["cached_principal"] = rec.CachedPrincipal
		resp["initiated_at"] = rec.InitiatedAt.Format(time.RFC3339)
		resp["executable_at"] = rec.ExecutableAt().Format(time.RFC3339)
		resp["expires_at"] = rec.ExpiresAt().Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, resp)
}

// ============================================================================
// Balances
// ============================================================================

func (s *Server) handleBalance(c *gin.Context) {
	asset := c.Param("asset")
	account, err := uuid.Parse(c.Param("account"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_argument", "message": "bad account id"})
		return
	}
	kind := c.DefaultQuery("kind", "principal")

	var (
		amount int64
		opErr  error
	)
	if err := s.do(c.Request.Context(), func() {
		switch kind {
		case "principal":
			amount, opErr = s.rt.PrincipalOf(asset, account)
		case "total":
			amount, opErr = s.rt.TotalBalanceOf(asset, account)
		case "raw":
			amount, opErr = s.rt.BalanceOf(asset, account)
		default:
			amount, opErr = s.rt.PrincipalOf(asset, account)
		}
	}); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "unavailable"})
		return
	}
	if opErr != nil {
		fail(c, opErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"asset": asset, "account": account, "kind": kind, "amount": amount})
}

// ============================================================================
// Surplus
// ============================================================================

type configureRequest struct {
	Caller  uuid.UUID `json:"caller" binding:"required"`
	Token   string    `json:"token" binding:"required"`
	Pool    uuid.UUID `json:"pool"`
	Adapter uuid.UUID `json:"adapter"`
	Client  uuid.UUID `json:"client"`
}

func (s *Server) handleConfigureExtractor(c *gin.Context) {
	var req configureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_argument", "message": err.Error()})
		return
	}

	start := time.Now()
	var opErr error
	if err := s.do(c.Request.Context(), func() {
		opErr = s.extractor.Configure(req.Caller, surplus.Config{
			Token:   req.Token,
			Pool:    req.Pool,
			Adapter: req.Adapter,
			Client:  req.Client,
		})
	}); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "unavailable"})
		return
	}
	s.observe("configure_extractor", start, opErr)
	if opErr != nil {
		fail(c, opErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": req.Token, "client": req.Client})
}

type withdrawSurplusRequest struct {
	Caller     uuid.UUID `json:"caller" binding:"required"`
	Percentage int64     `json:"percentage" binding:"required"`
	Recipient  uuid.UUID `json:"recipient"`
}

func (s *Server) handleWithdrawSurplus(c *gin.Context) {
	var req withdrawSurplusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_argument", "message": err.Error()})
		return
	}

	start := time.Now()
	var (
		amount int64
		opErr  error
	)
	if err := s.do(c.Request.Context(), func() {
		amount, opErr = s.extractor.WithdrawSurplusPercent(req.Caller, req.Percentage, req.Recipient)
	}); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "unavailable"})
		return
	}
	s.observe("withdraw_surplus", start, opErr)
	if opErr != nil {
		fail(c, opErr)
		return
	}
	if s.metrics != nil {
		if cfg := s.extractor.Config(); cfg != nil {
			s.metrics.SurplusExtracted.WithLabelValues(cfg.Token).Add(float64(amount))
		}
	}
	c.JSON(http.StatusOK, gin.H{"percentage": req.Percentage, "amount": amount})
}

// ============================================================================
// Audit History
// ============================================================================

func (s *Server) handleEvents(c *gin.Context) {
	if s.queries == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "event log disabled"})
		return
	}

	from, _ := strconv.ParseInt(c.DefaultQuery("from", "0"), 10, 64)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	events, err := s.queries.Events(c.Request.Context(), from, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (s *Server) handleEventsByAsset(c *gin.Context) {
	if s.queries == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "event log disabled"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	events, err := s.queries.EventsByAsset(c.Request.Context(), c.Param("asset"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (s *Server) handleJournal(c *gin.Context) {
	if s.queries == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "event log disabled"})
		return
	}

	client, err := uuid.Parse(c.Param("client"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_argument", "message": "bad client id"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	journals, err := s.queries.JournalByClient(c.Request.Context(), client, c.Param("asset"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"journals": journals})
}
