package prom

import (
	"bytes"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestExporterMetricsAndHandler(t *testing.T) {
	e := New()
	labels := map[string]string{"route": "/v1/agents/{name}/runs", "method": "POST", "status_code": "200"}
	e.IncrementRequests(labels)
	e.RecordLatency(3*time.Millisecond, labels)
	e.IncrementTokensUsed(7, map[string]string{"direction": "input", "model": "gpt-4.1-nano"})
	e.RecordError("rate_limit_exceeded", map[string]string{"provider": "openai"})
	e.IncrementToolCalls("calculator", false)
	e.SetActiveAgents(2)

	rr := httptest.NewRecorder()
	Handler(e).ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	body := rr.Body.String()

	wants := []string{
		`ateam_requests_total{method="POST",route="/v1/agents/{name}/runs",status_code="200"} 1`,
		`ateam_tokens_total{direction="input",model="gpt-4.1-nano"} 7`,
		`ateam_errors_total{provider="openai",type="rate_limit_exceeded"} 1`,
		`ateam_tool_calls_total{failed="false",tool="calculator"} 1`,
		`ateam_active_agents 2`,
	}
	for _, want := range wants {
		if !strings.Contains(body, want) {
			t.Errorf("missing %q in:\n%s", want, body)
		}
	}
}

func TestRenderMatchesHandler(t *testing.T) {
	e := New()
	e.IncrementToolCalls("state_set", true)

	var buf bytes.Buffer
	e.Render(&buf)
	rr := httptest.NewRecorder()
	Handler(e).ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	if buf.String() != rr.Body.String() {
		t.Fatalf("render and handler disagree:\n%s\n---\n%s", buf.String(), rr.Body.String())
	}
	if !strings.Contains(buf.String(), `ateam_tool_calls_total{failed="true",tool="state_set"} 1`) {
		t.Fatalf("missing failed tool call in:\n%s", buf.String())
	}
	if _, ok := any(e).(io.WriterTo); ok {
		t.Fatalf("Exporter should not implement io.WriterTo")
	}
}
