package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type Server struct{ mux *chi.Mux }

// New builds the router. Every request gets a request id, is logged and
// measured by Instrument, and is cut off after timeout, builds included.
func New(timeout time.Duration, l zerolog.Logger) *Server {
	m := chi.NewRouter()

	// middlewares must be registered before any route
	m.Use(chimw.RealIP)
	m.Use(chimw.RequestID)
	m.Use(chimw.Recoverer)
	m.Use(Instrument(l))
	m.Use(Timeout(timeout))

	return &Server{mux: m}
}

func (s *Server) Mux() http.Handler { return s.mux }

// Mount attaches any extra handler (e.g., /metrics) to the router.
func (s *Server) Mount(path string, h http.Handler) {
	s.mux.Handle(path, h)
}
