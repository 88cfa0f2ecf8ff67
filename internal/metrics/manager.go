// Package metrics keeps in-process counters and timings for providers,
// cascades and the HTTP surface. Nothing is persisted.
package metrics

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

const maxSamples = 1000 // Keep last 1000 samples for percentile calculations

// MetricsManager holds all metrics keyed by "topic/function" paths
type MetricsManager struct {
	mu          sync.RWMutex
	timings     map[string]*TimingMetric
	counters    map[string]*CounterMetric
	successFail map[string]*SuccessFailMetric
	outcomes    map[string]*OutcomeMetric
}

var (
	instance *MetricsManager
	once     sync.Once
)

// NewManager creates an empty manager. Most callers use GetInstance.
func NewManager() *MetricsManager {
	return &MetricsManager{
		timings:     make(map[string]*TimingMetric),
		counters:    make(map[string]*CounterMetric),
		successFail: make(map[string]*SuccessFailMetric),
		outcomes:    make(map[string]*OutcomeMetric),
	}
}

// GetInstance returns the process-wide manager
func GetInstance() *MetricsManager {
	once.Do(func() {
		instance = NewManager()
	})
	return instance
}

func buildPath(topic, function string) string {
	if function == "" {
		return topic
	}
	return fmt.Sprintf("%s/%s", topic, function)
}

// RecordDuration records a duration
func (m *MetricsManager) RecordDuration(topic, function string, d time.Duration) {
	path := buildPath(topic, function)

	m.mu.Lock()
	metric, ok := m.timings[path]
	if !ok {
		metric = &TimingMetric{samples: make([]time.Duration, 0, 64), Min: d, Max: d}
		m.timings[path] = metric
	}
	m.mu.Unlock()

	metric.mu.Lock()
	defer metric.mu.Unlock()
	metric.Count++
	metric.Total += d
	metric.Last = d
	metric.Min = min(metric.Min, d)
	metric.Max = max(metric.Max, d)
	if len(metric.samples) < maxSamples {
		metric.samples = append(metric.samples, d)
	} else {
		metric.samples[metric.sampleIdx] = d
		metric.sampleIdx = (metric.sampleIdx + 1) % maxSamples
	}
}

// AddCounter adds delta to a counter
func (m *MetricsManager) AddCounter(topic, function string, delta int64) {
	path := buildPath(topic, function)

	m.mu.Lock()
	metric, ok := m.counters[path]
	if !ok {
		metric = &CounterMetric{}
		m.counters[path] = metric
	}
	m.mu.Unlock()

	metric.mu.Lock()
	metric.Value += delta
	metric.Last = time.Now()
	metric.mu.Unlock()
}

func (m *MetricsManager) successFailFor(path string) *SuccessFailMetric {
	m.mu.Lock()
	defer m.mu.Unlock()
	metric, ok := m.successFail[path]
	if !ok {
		metric = &SuccessFailMetric{FailureReasons: make(map[string]int64)}
		m.successFail[path] = metric
	}
	return metric
}

// RecordSuccess records a successful operation
func (m *MetricsManager) RecordSuccess(topic, operation string) {
	metric := m.successFailFor(buildPath(topic, operation))
	metric.mu.Lock()
	metric.Success++
	metric.LastSuccess = time.Now()
	metric.mu.Unlock()
}

// RecordFailure records a failed operation, optionally with a reason
func (m *MetricsManager) RecordFailure(topic, operation, reason string) {
	metric := m.successFailFor(buildPath(topic, operation))
	metric.mu.Lock()
	metric.Failures++
	metric.LastFailure = time.Now()
	if reason != "" {
		metric.FailureReasons[reason]++
	}
	metric.mu.Unlock()
}

// RecordOutcome records one of several named outcomes
func (m *MetricsManager) RecordOutcome(topic, operation, outcome string) {
	path := buildPath(topic, operation)

	m.mu.Lock()
	metric, ok := m.outcomes[path]
	if !ok {
		metric = &OutcomeMetric{Outcomes: make(map[string]int64)}
		m.outcomes[path] = metric
	}
	m.mu.Unlock()

	metric.mu.Lock()
	metric.Outcomes[outcome]++
	metric.LastOutcome = outcome
	metric.Total++
	metric.mu.Unlock()
}

// GetSnapshot returns a copy of every metric, keyed by path
func (m *MetricsManager) GetSnapshot() map[string]*MetricSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]*MetricSnapshot)

	for path, t := range m.timings {
		t.mu.Lock()
		snap := TimingSnapshot{
			Count:  t.Count,
			MinMs:  ms(t.Min),
			MaxMs:  ms(t.Max),
			LastMs: ms(t.Last),
			P95Ms:  percentile(t.samples, 95),
		}
		if t.Count > 0 {
			snap.AvgMs = ms(t.Total) / float64(t.Count)
		}
		t.mu.Unlock()
		out[path] = &MetricSnapshot{Path: path, Type: TypeTiming, Data: snap}
	}

	for path, c := range m.counters {
		c.mu.Lock()
		out[path] = &MetricSnapshot{Path: path, Type: TypeCounter, Data: CounterSnapshot{Value: c.Value}}
		c.mu.Unlock()
	}

	for path, sf := range m.successFail {
		sf.mu.Lock()
		snap := SuccessFailSnapshot{
			Success:        sf.Success,
			Failures:       sf.Failures,
			FailureReasons: make(map[string]int64, len(sf.FailureReasons)),
		}
		for k, v := range sf.FailureReasons {
			snap.FailureReasons[k] = v
		}
		if total := sf.Success + sf.Failures; total > 0 {
			snap.SuccessRate = float64(sf.Success) / float64(total)
		}
		sf.mu.Unlock()
		out[path] = &MetricSnapshot{Path: path, Type: TypeSuccessFail, Data: snap}
	}

	for path, o := range m.outcomes {
		o.mu.Lock()
		snap := OutcomeSnapshot{
			Outcomes:    make(map[string]int64, len(o.Outcomes)),
			Total:       o.Total,
			LastOutcome: o.LastOutcome,
		}
		for k, v := range o.Outcomes {
			snap.Outcomes[k] = v
		}
		o.mu.Unlock()
		out[path] = &MetricSnapshot{Path: path, Type: TypeOutcome, Data: snap}
	}

	return out
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func percentile(samples []time.Duration, p int) float64 {
	if len(samples) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := (len(sorted) * p) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return ms(sorted[idx])
}
