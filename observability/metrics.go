package observability

import (
	"sync"
	"time"
)

// Metrics defines the interface for collecting agent metrics
type Metrics interface {
	// IncrementRequests counts model calls, HTTP requests and agent runs
	IncrementRequests(labels map[string]string)

	RecordLatency(duration time.Duration, labels map[string]string)

	IncrementTokensUsed(tokens int, labels map[string]string)

	RecordError(errorType string, labels map[string]string)

	// IncrementToolCalls counts tool executions by tool name
	IncrementToolCalls(tool string, failed bool)

	// SetActiveAgents sets the gauge for registered agents
	SetActiveAgents(count int)
}

// NoOpMetrics is a no-operation implementation of Metrics
type NoOpMetrics struct{}

func (n *NoOpMetrics) IncrementRequests(labels map[string]string)                     {}
func (n *NoOpMetrics) RecordLatency(duration time.Duration, labels map[string]string) {}
func (n *NoOpMetrics) IncrementTokensUsed(tokens int, labels map[string]string)       {}
func (n *NoOpMetrics) RecordError(errorType string, labels map[string]string)         {}
func (n *NoOpMetrics) IncrementToolCalls(tool string, failed bool)                    {}
func (n *NoOpMetrics) SetActiveAgents(count int)                                      {}

// DefaultMetrics is a simple in-memory metrics collector
type DefaultMetrics struct {
	mu           sync.Mutex
	requests     int64
	totalLatency time.Duration
	tokensUsed   int64
	errors       map[string]int64
	toolCalls    map[string]int64
	toolFailures map[string]int64
	activeAgents int
}

func NewDefaultMetrics() *DefaultMetrics {
	return &DefaultMetrics{
		errors:       make(map[string]int64),
		toolCalls:    make(map[string]int64),
		toolFailures: make(map[string]int64),
	}
}

func (m *DefaultMetrics) IncrementRequests(labels map[string]string) {
	m.mu.Lock()
	m.requests++
	m.mu.Unlock()
}

func (m *DefaultMetrics) RecordLatency(duration time.Duration, labels map[string]string) {
	m.mu.Lock()
	m.totalLatency += duration
	m.mu.Unlock()
}

func (m *DefaultMetrics) IncrementTokensUsed(tokens int, labels map[string]string) {
	m.mu.Lock()
	m.tokensUsed += int64(tokens)
	m.mu.Unlock()
}

func (m *DefaultMetrics) RecordError(errorType string, labels map[string]string) {
	m.mu.Lock()
	m.errors[errorType]++
	m.mu.Unlock()
}

func (m *DefaultMetrics) IncrementToolCalls(tool string, failed bool) {
	m.mu.Lock()
	m.toolCalls[tool]++
	if failed {
		m.toolFailures[tool]++
	}
	m.mu.Unlock()
}

func (m *DefaultMetrics) SetActiveAgents(count int) {
	m.mu.Lock()
	m.activeAgents = count
	m.mu.Unlock()
}

// GetStats returns a snapshot of the current statistics
func (m *DefaultMetrics) GetStats() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]any{
		"requests":      m.requests,
		"total_latency": m.totalLatency.String(),
		"tokens_used":   m.tokensUsed,
		"errors":        copyCounts(m.errors),
		"tool_calls":    copyCounts(m.toolCalls),
		"tool_failures": copyCounts(m.toolFailures),
		"active_agents": m.activeAgents,
	}
}

func copyCounts(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

var _ Metrics = (*NoOpMetrics)(nil)
var _ Metrics = (*DefaultMetrics)(nil)
