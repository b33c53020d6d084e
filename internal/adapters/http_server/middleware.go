package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"property_insights/internal/adapters/observability"
)

// Archive operations served over HTTP, used as the "op" label and log field.
const (
	opBuild   = "build"
	opSummary = "summary"
	opNone    = "none"
)

type opKey struct{}

// tagOp records the archive operation a route performs for Instrument.
func tagOp(op string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p, ok := r.Context().Value(opKey{}).(*string); ok {
				*p = op
			}
			next.ServeHTTP(w, r)
		})
	}
}

func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler { return http.TimeoutHandler(next, d, "timeout") }
}

// statusRecorder remembers the first status written.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// Instrument logs one line per request and records the HTTP metrics, both
// labelled with the route pattern and the archive operation.
func Instrument(l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			op := opNone
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), opKey{}, &op)))

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = r.URL.Path
			}
			dur := time.Since(start)
			observability.ObserveHTTP(route, r.Method, op, status, dur)

			ev := l.Info()
			if status >= http.StatusInternalServerError {
				ev = l.Error()
			}
			ev.Str("request_id", chimw.GetReqID(r.Context())).
				Str("op", op).
				Str("route", route).
				Str("method", r.Method).
				Int("status", status).
				Dur("duration", dur).
				Str("remote", remoteHost(r.RemoteAddr)).
				Msg("http_request")
		})
	}
}

// RateLimit rejects requests with 429 once l has no tokens left.
func RateLimit(l *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow() {
				w.Header().Set("Retry-After", "1")
				writeProblem(w, http.StatusTooManyRequests, "Too Many Requests", "build rate exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// remoteHost strips the port; chi's RealIP has already applied the
// forwarding headers.
func remoteHost(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	return addr
}
