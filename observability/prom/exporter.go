package prom

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/JovanVeljanoski/ateam/observability"
)

const namespace = "ateam"

// Exporter implements observability.Metrics and serves the Prometheus text
// exposition format. Series are keyed by their rendered label set.
type Exporter struct {
	mu        sync.Mutex
	requests  map[string]float64
	latency   map[string]float64
	tokens    map[string]float64
	errors    map[string]float64
	toolCalls map[string]float64
	active    float64
}

func New() *Exporter {
	return &Exporter{
		requests:  make(map[string]float64),
		latency:   make(map[string]float64),
		tokens:    make(map[string]float64),
		errors:    make(map[string]float64),
		toolCalls: make(map[string]float64),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler(e *Exporter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		e.Render(w)
	})
}

// Render writes every series in a stable order.
func (e *Exporter) Render(w io.Writer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	writeFamily(w, "requests_total", "counter", e.requests)
	writeFamily(w, "request_latency_seconds_sum", "counter", e.latency)
	writeFamily(w, "tokens_total", "counter", e.tokens)
	writeFamily(w, "errors_total", "counter", e.errors)
	writeFamily(w, "tool_calls_total", "counter", e.toolCalls)
	fmt.Fprintf(w, "# TYPE %s_active_agents gauge\n%s_active_agents %s\n", namespace, namespace, formatFloat(e.active))
}

func writeFamily(w io.Writer, name, kind string, series map[string]float64) {
	if len(series) == 0 {
		return
	}
	fmt.Fprintf(w, "# TYPE %s_%s %s\n", namespace, name, kind)
	keys := make([]string, 0, len(series))
	for k := range series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s_%s%s %s\n", namespace, name, k, formatFloat(series[k]))
	}
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func (e *Exporter) IncrementRequests(labels map[string]string) {
	e.mu.Lock()
	e.requests[labelKey(labels)]++
	e.mu.Unlock()
}

func (e *Exporter) RecordLatency(d time.Duration, labels map[string]string) {
	e.mu.Lock()
	e.latency[labelKey(labels)] += d.Seconds()
	e.mu.Unlock()
}

func (e *Exporter) IncrementTokensUsed(tokens int, labels map[string]string) {
	e.mu.Lock()
	e.tokens[labelKey(labels)] += float64(tokens)
	e.mu.Unlock()
}

func (e *Exporter) RecordError(errorType string, labels map[string]string) {
	merged := map[string]string{"type": errorType}
	for k, v := range labels {
		merged[k] = v
	}
	e.mu.Lock()
	e.errors[labelKey(merged)]++
	e.mu.Unlock()
}

func (e *Exporter) IncrementToolCalls(tool string, failed bool) {
	key := labelKey(map[string]string{"tool": tool, "failed": strconv.FormatBool(failed)})
	e.mu.Lock()
	e.toolCalls[key]++
	e.mu.Unlock()
}

func (e *Exporter) SetActiveAgents(count int) {
	e.mu.Lock()
	e.active = float64(count)
	e.mu.Unlock()
}

// labelKey renders labels as a sorted {k="v",...} block.
func labelKey(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, k := range names {
		parts = append(parts, k+"="+strconv.Quote(labels[k]))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

var _ observability.Metrics = (*Exporter)(nil)
