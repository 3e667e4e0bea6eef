package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"governance-core/internal/risk"
)

// Config holds environment-driven settings for the governance core.
type Config struct {
	Port string

	// Operating mode at startup: "AGGRESSIVE" or "OBSERVE_ONLY".
	InitialMode string

	// Execution routing: "SIMULATION", "REAL", "SHADOW" or "SENTINEL".
	ExecutionMode string

	// Capital
	InitialCapital     float64
	SentinelCapitalCap float64

	// Risk limits; env values override the YAML profile.
	RiskProfilePath string

	// Regime detection
	RegimeWindowSize int

	// Confidence gate
	MinConfidence        float64
	ConfidenceMaxAgeSecs int

	// Simulated exchange
	SimInitialBalance float64
	SimFeeRate        float64 // decimal (e.g. 0.0004 = 4 bps)
	SimSlippageBps    float64 // slippage applied on fills (bps)
	SimGwLatencyMinMs int     // simulated gateway latency lower bound
	SimGwLatencyMaxMs int     // simulated gateway latency upper bound

	// Shadow tracking
	ShadowMaxRecords int

	// Database
	DBPath string

	// API
	RateLimitPerSec float64
	RateLimitBurst  int
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	return &Config{
		Port:                 getEnv("PORT", "8080"),
		InitialMode:          strings.ToUpper(getEnv("INITIAL_MODE", "OBSERVE_ONLY")),
		ExecutionMode:        strings.ToUpper(getEnv("EXECUTION_MODE", "SIMULATION")),
		InitialCapital:       getEnvFloat("INITIAL_CAPITAL", 10000.0),
		SentinelCapitalCap:   getEnvFloat("SENTINEL_CAPITAL_CAP", 100.0),
		RiskProfilePath:      getEnv("RISK_PROFILE_PATH", ""),
		RegimeWindowSize:     getEnvInt("REGIME_WINDOW_SIZE", 20),
		MinConfidence:        getEnvFloat("MIN_CONFIDENCE", 0.5),
		ConfidenceMaxAgeSecs: getEnvInt("CONFIDENCE_MAX_AGE_SECS", 300),
		SimInitialBalance:    getEnvFloat("SIM_INITIAL_BALANCE", 10000.0),
		SimFeeRate:           getEnvFloat("SIM_FEE_RATE", 0.0004),
		SimSlippageBps:       getEnvFloat("SIM_SLIPPAGE_BPS", 2),
		SimGwLatencyMinMs:    getEnvInt("SIM_GATEWAY_LATENCY_MIN_MS", 0),
		SimGwLatencyMaxMs:    getEnvInt("SIM_GATEWAY_LATENCY_MAX_MS", 0),
		ShadowMaxRecords:     getEnvInt("SHADOW_MAX_RECORDS", 10000),
		DBPath:               getEnv("DB_PATH", "./data/governance.db"),
		RateLimitPerSec:      getEnvFloat("RATE_LIMIT_PER_SEC", 20),
		RateLimitBurst:       getEnvInt("RATE_LIMIT_BURST", 40),
	}, nil
}

// LoadRiskLimits resolves the risk limit set: defaults, overlaid by the
// YAML profile when configured, overlaid by env vars.
func (c *Config) LoadRiskLimits() (risk.Limits, error) {
	limits := risk.DefaultLimits()

	if c.RiskProfilePath != "" {
		data, err := os.ReadFile(c.RiskProfilePath)
		if err != nil {
			return limits, fmt.Errorf("read risk profile: %w", err)
		}
		if err := yaml.Unmarshal(data, &limits); err != nil {
			return limits, fmt.Errorf("parse risk profile: %w", err)
		}
	}

	limits.MaxSystemDrawdownPct = getEnvFloat("MAX_SYSTEM_DRAWDOWN_PCT", limits.MaxSystemDrawdownPct)
	limits.MaxSystemDailyLoss = getEnvFloat("MAX_SYSTEM_DAILY_LOSS", limits.MaxSystemDailyLoss)
	limits.MaxStrategyDrawdownPct = getEnvFloat("MAX_STRATEGY_DRAWDOWN_PCT", limits.MaxStrategyDrawdownPct)
	limits.MaxStrategyDailyLoss = getEnvFloat("MAX_STRATEGY_DAILY_LOSS", limits.MaxStrategyDailyLoss)
	limits.MaxAssetExposure = getEnvFloat("MAX_ASSET_EXPOSURE", limits.MaxAssetExposure)
	limits.MaxPositionSizePct = getEnvFloat("MAX_POSITION_SIZE_PCT", limits.MaxPositionSizePct)

	return limits, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
