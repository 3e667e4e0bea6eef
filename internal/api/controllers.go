package api

import (
	"net/http"
	"strconv"
	"strings"

	"governance-core/internal/mode"
	"governance-core/internal/risk"
	"governance-core/internal/trade"

	"github.com/gin-gonic/gin"
)

type setModeRequest struct {
	Mode   string `json:"mode" binding:"required,oneof=AGGRESSIVE OBSERVE_ONLY"`
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

type setRiskStateRequest struct {
	State  string `json:"state" binding:"required,oneof=ACTIVE PROBATION PAUSED SHUTDOWN"`
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

type submitTradeRequest struct {
	StrategyID   string  `json:"strategy_id" binding:"required"`
	StrategyType string  `json:"strategy_type" binding:"required"`
	Pair         string  `json:"pair" binding:"required"`
	Action       string  `json:"action" binding:"required,oneof=BUY SELL"`
	Amount       float64 `json:"amount" binding:"required,gt=0"`
	Price        float64 `json:"price" binding:"required,gt=0"`
}

func respondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, gin.H{
		"code":  code,
		"error": msg,
	})
}

func limitQuery(c *gin.Context, def, max int) int {
	limit := def
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > max {
		limit = max
	}
	return limit
}

func (s *Server) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.System.Status())
}

func (s *Server) getMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.Metrics.GetSnapshot())
}

func (s *Server) getMode(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"mode":        s.System.Modes.Mode(),
		"permissions": s.System.Modes.Permissions(),
	})
}

func (s *Server) setMode(c *gin.Context) {
	var req setModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	s.System.Modes.Set(mode.Mode(strings.ToUpper(req.Mode)), req.Reason)
	c.JSON(http.StatusOK, gin.H{
		"mode":        s.System.Modes.Mode(),
		"permissions": s.System.Modes.Permissions(),
	})
}

func (s *Server) getModeHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"history": s.System.Modes.History()})
}

func (s *Server) getRiskMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"state":   s.System.Risk.RiskState(),
		"metrics": s.System.Risk.Metrics(),
		"limits":  s.System.Risk.Limits(),
	})
}

func (s *Server) setRiskState(c *gin.Context) {
	var req setRiskStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	s.System.Risk.SetState(risk.State(strings.ToUpper(req.State)), req.Reason)
	c.JSON(http.StatusOK, gin.H{"state": s.System.Risk.RiskState()})
}

func (s *Server) getRiskHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"history": s.System.Risk.StateHistory()})
}

// submitTrade feeds a trade request through the full governance
// pipeline. A blocked or denied trade is a 200 with the outcome; only
// configuration failures surface as errors.
func (s *Server) submitTrade(c *gin.Context) {
	var req submitTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	tr := trade.NewRequest(req.StrategyID, req.Pair, req.Action, req.Amount, req.Price)
	out, err := s.System.ProcessTrade(c.Request.Context(), tr, req.StrategyType)
	if err != nil {
		respondError(c, http.StatusConflict, "EXECUTION_CONFIG", err.Error())
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getExecutions(c *gin.Context) {
	if s.DB == nil {
		c.JSON(http.StatusOK, gin.H{"executions": s.System.Exec.History()})
		return
	}
	limit := limitQuery(c, 100, 500)
	execs, err := s.DB.GetExecutions(c.Request.Context(), limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"executions": execs})
}

func (s *Server) getDenials(c *gin.Context) {
	if s.DB == nil {
		respondError(c, http.StatusServiceUnavailable, "NO_DB", "journal not configured")
		return
	}
	limit := limitQuery(c, 100, 500)
	denials, err := s.DB.GetDenials(c.Request.Context(), limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"denials": denials})
}

func (s *Server) getShadowRecords(c *gin.Context) {
	if s.Shadow == nil {
		respondError(c, http.StatusServiceUnavailable, "NO_SHADOW", "shadow tracking not enabled")
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": s.Shadow.Records()})
}

func (s *Server) getShadowSummary(c *gin.Context) {
	if s.Shadow == nil {
		respondError(c, http.StatusServiceUnavailable, "NO_SHADOW", "shadow tracking not enabled")
		return
	}
	c.JSON(http.StatusOK, s.Shadow.Summary())
}
