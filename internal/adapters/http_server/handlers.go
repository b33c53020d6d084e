package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"property_insights/internal/app"
	"property_insights/internal/domain"
)

type Handlers struct {
	B       *app.BuildService
	Q       *app.QueryService
	Path    string // archive served and rebuilt by this API
	MaxBody int64

	builds *semaphore.Weighted
}

// NewHandlers allows at most workers concurrent builds against path.
func NewHandlers(b *app.BuildService, q *app.QueryService, path string, maxBody, workers int64) *Handlers {
	if workers < 1 {
		workers = 1
	}
	return &Handlers{B: b, Q: q, Path: path, MaxBody: maxBody, builds: semaphore.NewWeighted(workers)}
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers, buildLimit func(http.Handler) http.Handler) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.With(tagOp(opSummary)).Get("/v1/insights", h.getSummary)
	build := s.mux.With(tagOp(opBuild))
	if buildLimit != nil {
		build = build.With(buildLimit)
	}
	build.Post("/v1/insights", h.build)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return "", nil, err
	}
	sum := sha1.Sum(body)
	return `W/"` + hex.EncodeToString(sum[:]) + `"`, body, nil
}

func (h *Handlers) build(w http.ResponseWriter, r *http.Request) {
	if h.MaxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxBody)
	}
	props, err := app.DecodeProperties(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeProblem(w, http.StatusRequestEntityTooLarge, "Payload Too Large", err.Error())
			return
		}
		writeProblem(w, http.StatusBadRequest, "Invalid Input", err.Error())
		return
	}

	if err := h.builds.Acquire(r.Context(), 1); err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "Build Cancelled", err.Error())
		return
	}
	defer h.builds.Release(1)

	res, err := h.B.Build(r.Context(), props, h.Path)
	if err != nil {
		log.Error().Err(err).Str("path", h.Path).Msg("build failed")
		writeProblem(w, http.StatusInternalServerError, "Build Failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) getSummary(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.Summary(r.Context(), h.Path)
	if errors.Is(err, domain.ErrArchiveNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", "no insights archive has been built")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("path", h.Path).Msg("read failed")
		writeProblem(w, http.StatusInternalServerError, "Read Failed", err.Error())
		return
	}

	etag, body, err := calcETagAndBody(out)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Encode Failed", err.Error())
		return
	}
	// If client already has this version, short-circuit.
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write summary body")
	}
}
