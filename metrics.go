package ruleengine

import (
	"sync/atomic"
	"time"
)

// Metrics tracks evaluation performance using lock-free atomic operations.
// All methods are safe for concurrent use.
type Metrics struct {
	// Evaluation counts
	evaluationsTotal atomic.Uint64
	allowedTotal     atomic.Uint64
	deniedTotal      atomic.Uint64
	defaultedTotal   atomic.Uint64

	// Projection counts
	projectionsTotal atomic.Uint64

	// Timing (stored as nanoseconds)
	evalTimeTotal atomic.Uint64
	evalTimeMin   atomic.Uint64
	evalTimeMax   atomic.Uint64

	// Cache metrics
	cacheHits   atomic.Uint64
	cacheMisses atomic.Uint64

	// Warning count across all evaluations
	warningsTotal atomic.Uint64
}

// NewMetrics creates a new Metrics instance.
func NewMetrics() *Metrics {
	m := &Metrics{}
	// Initialize min to max uint64 so first value becomes the minimum
	m.evalTimeMin.Store(^uint64(0))
	return m
}

// RecordEvaluation records a completed evaluation.
func (m *Metrics) RecordEvaluation(duration time.Duration, decision Decision, defaulted bool) {
	m.evaluationsTotal.Add(1)
	switch decision {
	case DecisionAllowed:
		m.allowedTotal.Add(1)
	case DecisionDenied:
		m.deniedTotal.Add(1)
	}
	if defaulted {
		m.defaultedTotal.Add(1)
	}

	ns := uint64(duration.Nanoseconds())
	m.evalTimeTotal.Add(ns)

	// Update min (CAS loop)
	for {
		old := m.evalTimeMin.Load()
		if ns >= old {
			break
		}
		if m.evalTimeMin.CompareAndSwap(old, ns) {
			break
		}
	}

	// Update max (CAS loop)
	for {
		old := m.evalTimeMax.Load()
		if ns <= old {
			break
		}
		if m.evalTimeMax.CompareAndSwap(old, ns) {
			break
		}
	}
}

// RecordProjection records a completed date-effectiveness projection.
func (m *Metrics) RecordProjection() {
	m.projectionsTotal.Add(1)
}

// RecordCacheHit records a decision cache hit.
func (m *Metrics) RecordCacheHit() {
	m.cacheHits.Add(1)
}

// RecordCacheMiss records a decision cache miss.
func (m *Metrics) RecordCacheMiss() {
	m.cacheMisses.Add(1)
}

// RecordWarnings records warnings surfaced by one evaluation.
func (m *Metrics) RecordWarnings(n int) {
	if n > 0 {
		m.warningsTotal.Add(uint64(n))
	}
}

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot struct {
	EvaluationsTotal uint64        `json:"evaluationsTotal"`
	AllowedTotal     uint64        `json:"allowedTotal"`
	DeniedTotal      uint64        `json:"deniedTotal"`
	DefaultedTotal   uint64        `json:"defaultedTotal"`
	ProjectionsTotal uint64        `json:"projectionsTotal"`
	WarningsTotal    uint64        `json:"warningsTotal"`
	CacheHits        uint64        `json:"cacheHits"`
	CacheMisses      uint64        `json:"cacheMisses"`
	CacheHitRate     float64       `json:"cacheHitRate"`
	EvalTimeTotal    time.Duration `json:"evalTimeTotal"`
	EvalTimeMin      time.Duration `json:"evalTimeMin"`
	EvalTimeMax      time.Duration `json:"evalTimeMax"`
	EvalTimeAvg      time.Duration `json:"evalTimeAvg"`
}

// Snapshot returns a point-in-time copy of all metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		EvaluationsTotal: m.evaluationsTotal.Load(),
		AllowedTotal:     m.allowedTotal.Load(),
		DeniedTotal:      m.deniedTotal.Load(),
		DefaultedTotal:   m.defaultedTotal.Load(),
		ProjectionsTotal: m.projectionsTotal.Load(),
		WarningsTotal:    m.warningsTotal.Load(),
		CacheHits:        m.cacheHits.Load(),
		CacheMisses:      m.cacheMisses.Load(),
		EvalTimeTotal:    time.Duration(m.evalTimeTotal.Load()),
		EvalTimeMax:      time.Duration(m.evalTimeMax.Load()),
	}

	if min := m.evalTimeMin.Load(); min != ^uint64(0) {
		s.EvalTimeMin = time.Duration(min)
	}
	if s.EvaluationsTotal > 0 {
		s.EvalTimeAvg = s.EvalTimeTotal / time.Duration(s.EvaluationsTotal)
	}
	if total := s.CacheHits + s.CacheMisses; total > 0 {
		s.CacheHitRate = float64(s.CacheHits) / float64(total)
	}
	return s
}

// Reset zeroes all metrics.
func (m *Metrics) Reset() {
	m.evaluationsTotal.Store(0)
	m.allowedTotal.Store(0)
	m.deniedTotal.Store(0)
	m.defaultedTotal.Store(0)
	m.projectionsTotal.Store(0)
	m.evalTimeTotal.Store(0)
	m.evalTimeMin.Store(^uint64(0))
	m.evalTimeMax.Store(0)
	m.cacheHits.Store(0)
	m.cacheMisses.Store(0)
	m.warningsTotal.Store(0)
}
