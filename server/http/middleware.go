package http

import (
	"net/http"
	"runtime/debug"
	"time"

	obs "github.com/JovanVeljanoski/ateam/observability"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type responseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

// requestID propagates X-Request-ID and attaches a request-scoped logger.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := obs.ExtractHTTPContext(r.Context(), r)
		id, _ := obs.RequestIDFromContext(ctx)
		logger := log.With().Str("request_id", id).Logger()
		ctx = logger.WithContext(ctx)
		obs.InjectHTTPHeaders(w, ctx)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		span, ctx := obs.TracerImpl.StartSpan(r.Context(), "http.request")
		defer span.End()
		span.SetAttribute(obs.AttrHTTPMethod, r.Method)

		next.ServeHTTP(rw, r.WithContext(ctx))

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		span.SetAttribute(obs.AttrHTTPRoute, route)
		span.SetAttribute(obs.AttrHTTPStatus, rw.status)
		if rw.status >= 500 {
			span.SetStatus(obs.StatusCodeError, http.StatusText(rw.status))
		} else {
			span.SetStatus(obs.StatusCodeOk, "")
		}

		duration := time.Since(start)
		obs.MetricsImpl.RecordLatency(duration, map[string]string{"route": route, "method": r.Method})
		log.Ctx(r.Context()).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.status).
			Int("size", rw.size).
			Dur("duration", duration).
			Str("remote_addr", r.RemoteAddr).
			Msg("request")
	})
}

func recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Ctx(r.Context()).Error().
					Interface("panic", rec).
					Str("stack", string(debug.Stack())).
					Str("path", r.URL.Path).
					Msg("panic recovered")
				writeError(w, r, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+obs.HeaderRequestID)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
