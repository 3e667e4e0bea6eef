package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"governance-core/internal/api"
	"governance-core/internal/capital"
	"governance-core/internal/confidence"
	"governance-core/internal/events"
	"governance-core/internal/execution"
	"governance-core/internal/gate"
	"governance-core/internal/governance"
	"governance-core/internal/journal"
	"governance-core/internal/mode"
	"governance-core/internal/monitor"
	"governance-core/internal/regime"
	"governance-core/internal/risk"
	"governance-core/internal/shadow"
	"governance-core/internal/trade"
	"governance-core/pkg/config"
	"governance-core/pkg/db"
	"governance-core/pkg/exchange"
	"governance-core/pkg/exchange/sim"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	log.Printf("governance core starting (port %s, mode %s, execution %s)",
		cfg.Port, cfg.InitialMode, cfg.ExecutionMode)

	limits, err := cfg.LoadRiskLimits()
	if err != nil {
		log.Fatalf("risk limits load failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := events.NewBus()

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("db init failed: %v", err)
	}
	defer database.Close()
	if err := db.Migrate(database.DB); err != nil {
		log.Fatalf("db migrations failed: %v", err)
	}

	jrnl := journal.New(database, bus)
	jrnl.Start(ctx)

	// Governance layers
	initialMode := mode.ObserveOnly
	if cfg.InitialMode == string(mode.Aggressive) {
		initialMode = mode.Aggressive
	}
	modes := mode.NewController(initialMode, bus)
	governor := risk.NewGovernor(limits, cfg.InitialCapital, bus)
	permGate := gate.New(modes, governor)

	pool := capital.NewPool(cfg.InitialCapital)
	detector := regime.NewDetector(cfg.RegimeWindowSize)
	confGate := confidence.NewGate(cfg.MinConfidence,
		time.Duration(cfg.ConfidenceMaxAgeSecs)*time.Second)
	shadowTracker := shadow.NewTracker(cfg.ShadowMaxRecords)
	metrics := monitor.NewSystemMetrics()

	// Execution routing
	execMode := execution.Mode(cfg.ExecutionMode)
	var adapter exchange.Adapter
	switch execMode {
	case execution.ModeReal:
		// No real venue adapter ships with this build; REAL requires one.
		log.Fatalf("execution mode REAL requires a venue adapter, none configured")
	case execution.ModeSimulation, execution.ModeShadow, execution.ModeSentinel:
		adapter = sim.New(sim.Config{
			FeeRate:             cfg.SimFeeRate,
			SlippageBps:         cfg.SimSlippageBps,
			GatewayLatencyMinMs: cfg.SimGwLatencyMinMs,
			GatewayLatencyMaxMs: cfg.SimGwLatencyMaxMs,
			InitialBalance:      cfg.SimInitialBalance,
		})
	default:
		log.Fatalf("unknown execution mode %q", cfg.ExecutionMode)
	}

	execMgr := execution.NewManager(execution.Config{
		Mode:        execMode,
		Modes:       modes,
		Risk:        governor,
		Gate:        permGate,
		Adapter:     adapter,
		Shadow:      shadowTracker,
		Confidence:  confGate,
		Runtime:     metrics,
		Regimes:     detector,
		SentinelCap: cfg.SentinelCapitalCap,
		Bus:         bus,
	})

	sys := &governance.System{
		Modes:      modes,
		Risk:       governor,
		Gate:       permGate,
		Exec:       execMgr,
		Capital:    pool,
		Regimes:    detector,
		Confidence: confGate,
		Bus:        bus,
	}

	// Keep the capital pool in step with executed trades.
	execStream, unsubExec := bus.Subscribe(events.EventTradeExecuted, 128)
	go func() {
		defer unsubExec()
		for {
			select {
			case <-ctx.Done():
				return
			case v := <-execStream:
				res, ok := v.(trade.Result)
				if !ok || !res.Success {
					continue
				}
				if res.PnL != 0 {
					// Position closed: return the notional with PnL.
					pool.ApplyPnL(res.StrategyID, res.Value, res.PnL)
					continue
				}
				if err := pool.Allocate(res.StrategyID, res.Value); err != nil {
					log.Printf("capital allocation lagging execution: %v", err)
				}
			}
		}
	}()

	version := os.Getenv("APP_VERSION")
	if version == "" {
		version = "v1.0-dev"
	}

	server := api.NewServer(bus, database, sys, shadowTracker, metrics, api.SystemMeta{
		ExecutionMode: string(execMode),
		Version:       version,
	}, cfg.RateLimitPerSec, cfg.RateLimitBurst)
	go func() {
		if err := server.Start(":" + cfg.Port); err != nil {
			log.Fatalf("api server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("shutting down")
}
