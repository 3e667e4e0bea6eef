// Package regime classifies recent price action per symbol and decides
// which strategy types may trade under the detected regime.
package regime

import (
	"fmt"
	"math"
	"sync"
)

// Regime labels the detected market condition for one symbol.
type Regime string

const (
	TrendingUp   Regime = "TRENDING_UP"
	TrendingDown Regime = "TRENDING_DOWN"
	Ranging      Regime = "RANGING"
	Volatile     Regime = "VOLATILE"
	Unknown      Regime = "UNKNOWN"
)

// Eligibility is the verdict on whether a strategy type may trade now.
type Eligibility struct {
	Allowed    bool    `json:"allowed"`
	Reason     string  `json:"reason,omitempty"`
	Regime     Regime  `json:"regime"`
	Confidence float64 `json:"confidence"`
}

// strategyRegimes maps each strategy type to the regimes it is suited
// for. A strategy absent from the map trades in any regime.
var strategyRegimes = map[string][]Regime{
	"momentum":     {TrendingUp, TrendingDown},
	"scalping":     {Ranging, Volatile},
	"seasonal":     {TrendingUp, Ranging},
	"defensive":    {Ranging},
	"conservative": {TrendingUp, Ranging},
	"aggressive":   {TrendingUp, TrendingDown, Volatile},
}

type window struct {
	prices []float64
	regime Regime
	conf   float64
}

// Detector keeps a rolling price window per symbol and reclassifies on
// every update. Until a window fills, the symbol reports UNKNOWN and
// eligibility checks pass with zero confidence.
type Detector struct {
	mu         sync.RWMutex
	windowSize int
	volThresh  float64 // per-step return stddev above which regime is VOLATILE
	driftMin   float64 // mean per-step return magnitude that counts as a trend
	symbols    map[string]*window
}

func NewDetector(windowSize int) *Detector {
	if windowSize < 3 {
		windowSize = 20
	}
	return &Detector{
		windowSize: windowSize,
		volThresh:  0.02,
		driftMin:   0.002,
		symbols:    make(map[string]*window),
	}
}

// UpdatePriceHistory appends a price observation and reclassifies the
// symbol once the window is full.
func (d *Detector) UpdatePriceHistory(symbol string, price float64) {
	if !(price > 0) { // rejects zero, negatives and NaN
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	w, ok := d.symbols[symbol]
	if !ok {
		w = &window{regime: Unknown}
		d.symbols[symbol] = w
	}
	w.prices = append(w.prices, price)
	if len(w.prices) > d.windowSize {
		w.prices = w.prices[len(w.prices)-d.windowSize:]
	}
	if len(w.prices) < d.windowSize {
		return
	}
	w.regime, w.conf = d.classify(w.prices)
}

// classify derives a regime from per-step log returns: high dispersion
// means VOLATILE, sustained drift means a trend, otherwise RANGING.
func (d *Detector) classify(prices []float64) (Regime, float64) {
	n := len(prices) - 1
	returns := make([]float64, 0, n)
	for i := 1; i < len(prices); i++ {
		returns = append(returns, math.Log(prices[i]/prices[i-1]))
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(n)

	var variance float64
	for _, r := range returns {
		dev := r - mean
		variance += dev * dev
	}
	variance /= float64(n)
	stddev := math.Sqrt(variance)

	if stddev >= d.volThresh {
		conf := math.Min(1, stddev/(2*d.volThresh))
		return Volatile, conf
	}
	if mean >= d.driftMin {
		return TrendingUp, math.Min(1, mean/(2*d.driftMin))
	}
	if mean <= -d.driftMin {
		return TrendingDown, math.Min(1, -mean/(2*d.driftMin))
	}
	conf := 1 - stddev/d.volThresh
	if conf < 0 {
		conf = 0
	}
	return Ranging, conf
}

// CheckEligibility decides whether the strategy type may trade the
// symbol under the current regime.
func (d *Detector) CheckEligibility(strategyType, symbol string) Eligibility {
	d.mu.RLock()
	defer d.mu.RUnlock()

	w, ok := d.symbols[symbol]
	if !ok || w.regime == Unknown {
		// Not enough history to veto anything.
		return Eligibility{Allowed: true, Regime: Unknown}
	}

	allowed, known := strategyRegimes[strategyType]
	if !known {
		return Eligibility{Allowed: true, Regime: w.regime, Confidence: w.conf}
	}
	for _, r := range allowed {
		if r == w.regime {
			return Eligibility{Allowed: true, Regime: w.regime, Confidence: w.conf}
		}
	}
	return Eligibility{
		Reason:     fmt.Sprintf("strategy type %s is not suited to %s regime on %s", strategyType, w.regime, symbol),
		Regime:     w.regime,
		Confidence: w.conf,
	}
}

// CurrentRegime returns the classified regime for a symbol.
func (d *Detector) CurrentRegime(symbol string) Regime {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if w, ok := d.symbols[symbol]; ok {
		return w.regime
	}
	return Unknown
}

// RegimeSnapshot reports the regime and confidence for a symbol. ok is
// false until the symbol's window has filled at least once.
func (d *Detector) RegimeSnapshot(symbol string) (string, float64, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	w, ok := d.symbols[symbol]
	if !ok || w.regime == Unknown {
		return string(Unknown), 0, false
	}
	return string(w.regime), w.conf, true
}
