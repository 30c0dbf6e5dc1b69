package observability

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Tracer defines the interface for distributed tracing
type Tracer interface {
	// StartSpan creates a new span with the given name
	StartSpan(ctx context.Context, name string) (Span, context.Context)

	// SpanFromContext extracts the span from context
	SpanFromContext(ctx context.Context) Span
}

// Span represents a tracing span
type Span interface {
	SetAttribute(key string, value any)
	SetStatus(code StatusCode, message string)
	AddEvent(name string, attributes map[string]any)
	End()
}

// StatusCode represents span status codes
type StatusCode int

const (
	StatusCodeUnset StatusCode = iota
	StatusCodeOk
	StatusCodeError
)

// Common attribute keys (loosely following the OTel HTTP and GenAI conventions)
const (
	AttrHTTPMethod   = "http.method"
	AttrHTTPRoute    = "http.route"
	AttrHTTPStatus   = "http.status_code"
	AttrRequestID    = "request.id"
	AttrProvider     = "genai.provider"
	AttrModel        = "genai.model"
	AttrFinishReason = "genai.finish_reason"
	AttrToolName     = "genai.tool.name"
	AttrToolCallID   = "genai.tool.call_id"
	AttrTokensInput  = "genai.tokens.input"
	AttrTokensOutput = "genai.tokens.output"
	AttrAgentName    = "agent.name"
	AttrRunID        = "agent.run_id"
	AttrTurns        = "agent.turns"
)

// Global, swappable implementations (no-ops by default)
var (
	TracerImpl  Tracer  = &NoOpTracer{}
	MetricsImpl Metrics = &NoOpMetrics{}
)

// SetTracer swaps the global tracer implementation
func SetTracer(t Tracer) { TracerImpl = t }

// SetMetrics swaps the global metrics implementation
func SetMetrics(m Metrics) { MetricsImpl = m }

// NoOpTracer is a no-operation implementation of Tracer
type NoOpTracer struct{}

func (t *NoOpTracer) StartSpan(ctx context.Context, name string) (Span, context.Context) {
	return &NoOpSpan{}, ctx
}

func (t *NoOpTracer) SpanFromContext(ctx context.Context) Span {
	return &NoOpSpan{}
}

// NoOpSpan is a no-operation implementation of Span
type NoOpSpan struct{}

func (s *NoOpSpan) SetAttribute(key string, value any)              {}
func (s *NoOpSpan) SetStatus(code StatusCode, message string)       {}
func (s *NoOpSpan) AddEvent(name string, attributes map[string]any) {}
func (s *NoOpSpan) End()                                            {}

type spanKey struct{}

// DefaultTracer records finished spans in memory. Useful in tests and for
// local debugging.
type DefaultTracer struct {
	mu    sync.Mutex
	spans []SpanData
}

// SpanData holds information about a completed span
type SpanData struct {
	Name       string         `json:"name"`
	Parent     string         `json:"parent,omitempty"`
	StartTime  time.Time      `json:"start_time"`
	EndTime    time.Time      `json:"end_time"`
	Duration   time.Duration  `json:"duration"`
	Status     StatusCode     `json:"status"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes"`
	Events     []Event        `json:"events"`
}

// Event represents a span event
type Event struct {
	Name       string         `json:"name"`
	Time       time.Time      `json:"time"`
	Attributes map[string]any `json:"attributes"`
}

func NewDefaultTracer() *DefaultTracer {
	return &DefaultTracer{}
}

func (t *DefaultTracer) StartSpan(ctx context.Context, name string) (Span, context.Context) {
	span := &DefaultSpan{
		tracer:     t,
		name:       name,
		startTime:  time.Now(),
		attributes: make(map[string]any),
	}
	if parent, ok := ctx.Value(spanKey{}).(*DefaultSpan); ok {
		span.parent = parent.name
	}
	return span, context.WithValue(ctx, spanKey{}, span)
}

func (t *DefaultTracer) SpanFromContext(ctx context.Context) Span {
	if span, ok := ctx.Value(spanKey{}).(Span); ok {
		return span
	}
	return &NoOpSpan{}
}

// GetSpans returns a copy of all recorded spans
func (t *DefaultTracer) GetSpans() []SpanData {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]SpanData, len(t.spans))
	copy(out, t.spans)
	return out
}

// SpansNamed returns the recorded spans with the given name
func (t *DefaultTracer) SpansNamed(name string) []SpanData {
	var out []SpanData
	for _, s := range t.GetSpans() {
		if s.Name == name {
			out = append(out, s)
		}
	}
	return out
}

// DefaultSpan is the span type produced by DefaultTracer. Spans may be
// touched from concurrent tool goroutines so all state is guarded.
type DefaultSpan struct {
	tracer     *DefaultTracer
	name       string
	parent     string
	startTime  time.Time
	mu         sync.Mutex
	status     StatusCode
	message    string
	attributes map[string]any
	events     []Event
	ended      bool
}

func (s *DefaultSpan) SetAttribute(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ended {
		s.attributes[key] = value
	}
}

func (s *DefaultSpan) SetStatus(code StatusCode, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ended {
		s.status = code
		s.message = message
	}
}

func (s *DefaultSpan) AddEvent(name string, attributes map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ended {
		s.events = append(s.events, Event{Name: name, Time: time.Now(), Attributes: attributes})
	}
}

func (s *DefaultSpan) End() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	end := time.Now()
	data := SpanData{
		Name:       s.name,
		Parent:     s.parent,
		StartTime:  s.startTime,
		EndTime:    end,
		Duration:   end.Sub(s.startTime),
		Status:     s.status,
		Message:    s.message,
		Attributes: s.attributes,
		Events:     s.events,
	}
	s.mu.Unlock()

	s.tracer.mu.Lock()
	s.tracer.spans = append(s.tracer.spans, data)
	s.tracer.mu.Unlock()
}

var _ Tracer = (*NoOpTracer)(nil)
var _ Tracer = (*DefaultTracer)(nil)
var _ Span = (*NoOpSpan)(nil)
var _ Span = (*DefaultSpan)(nil)

// HeaderRequestID carries the request id across HTTP hops.
const HeaderRequestID = "X-Request-ID"

type requestIDKey struct{}

// GenerateRequestID returns a new random request id
func GenerateRequestID() string {
	return uuid.NewString()
}

// WithRequestID stores a request id in the context
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext retrieves a request id from context
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

// ExtractHTTPContext reads the request id header into the context, minting
// one when absent.
func ExtractHTTPContext(ctx context.Context, r *http.Request) context.Context {
	id := r.Header.Get(HeaderRequestID)
	if id == "" {
		id = GenerateRequestID()
	}
	return WithRequestID(ctx, id)
}

// InjectHTTPHeaders writes the context's request id to the response
func InjectHTTPHeaders(w http.ResponseWriter, ctx context.Context) {
	if id, ok := RequestIDFromContext(ctx); ok {
		w.Header().Set(HeaderRequestID, id)
	}
}
