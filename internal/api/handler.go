package api

import (
	"net/http"
	"time"

	"governance-core/internal/events"
	"governance-core/internal/governance"
	"governance-core/internal/monitor"
	"governance-core/internal/shadow"
	"governance-core/pkg/db"

	"github.com/gin-gonic/gin"
)

// Server wires HTTP endpoints around the governance system.
type Server struct {
	Router  *gin.Engine
	Bus     *events.Bus
	DB      *db.Database
	System  *governance.System
	Shadow  *shadow.Tracker
	Metrics *monitor.SystemMetrics
	Meta    SystemMeta
}

// SystemMeta describes runtime status exposed to the UI.
type SystemMeta struct {
	ExecutionMode string
	Version       string
}

func NewServer(bus *events.Bus, database *db.Database, sys *governance.System, shadowTracker *shadow.Tracker, metrics *monitor.SystemMetrics, meta SystemMeta, ratePerSec float64, rateBurst int) *Server {
	r := gin.New()

	// Middleware stack (order matters!)
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger(metrics))
	r.Use(RateLimitMiddleware(ratePerSec, rateBurst))
	r.Use(TimeoutMiddleware(30 * time.Second))
	r.Use(CORSMiddleware())

	s := &Server{
		Router:  r,
		Bus:     bus,
		DB:      database,
		System:  sys,
		Shadow:  shadowTracker,
		Metrics: metrics,
		Meta:    meta,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/ws", s.websocket)

	api := s.Router.Group("/api")
	{
		api.GET("/status", s.getStatus)
		api.GET("/metrics", s.getMetrics)

		api.GET("/mode", s.getMode)
		api.POST("/mode", s.setMode)
		api.GET("/mode/history", s.getModeHistory)

		api.GET("/risk", s.getRiskMetrics)
		api.POST("/risk/state", s.setRiskState)
		api.GET("/risk/history", s.getRiskHistory)

		api.POST("/trades", s.submitTrade)

		api.GET("/executions", s.getExecutions)
		api.GET("/denials", s.getDenials)
		api.GET("/shadow", s.getShadowRecords)
		api.GET("/shadow/summary", s.getShadowSummary)
	}
}

// Start runs the HTTP server on the given address.
func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"execution_mode": s.Meta.ExecutionMode,
		"version":        s.Meta.Version,
		"time":           time.Now().UTC(),
	})
}
