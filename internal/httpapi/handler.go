// Package httpapi serves the sentence compiler over HTTP/JSON.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ppiankov/hglc/internal/engine"
	"github.com/ppiankov/hglc/internal/ledger"
	"github.com/ppiankov/hglc/internal/sentence"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Handler routes HTTP requests to an engine.Service.
type Handler struct {
	svc      *engine.Service
	logger   *log.Logger
	gatherer prometheus.Gatherer
}

// New creates a Handler. gatherer backs /metrics; nil uses the default
// registry.
func New(svc *engine.Service, logger *log.Logger, gatherer prometheus.Gatherer) *Handler {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Handler{svc: svc, logger: logger, gatherer: gatherer}
}

// Routes returns the router for all endpoints.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/compile", h.handleCompile)
		r.Post("/canonicalize", h.handleCanonicalize)
		r.Post("/fingerprint", h.handleFingerprint)
		r.Get("/sentences", h.handleListSentences)
		r.Get("/sentences/{fingerprint}", h.handleGetSentence)
	})
	return r
}

// NewServer builds an HTTP server with the project's defaults.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// CompileRequest is the body of POST /v1/compile.
type CompileRequest struct {
	Line string `json:"line"`
}

// CompileResponse is a successful compile.
type CompileResponse struct {
	Fingerprint string          `json:"fingerprint"`
	Canonical   string          `json:"canonical"`
	Duplicate   bool            `json:"duplicate"`
	Sentence    json.RawMessage `json:"sentence"`
}

// FingerprintResponse is the body returned by POST /v1/fingerprint.
type FingerprintResponse struct {
	Fingerprint string `json:"fingerprint"`
	Canonical   string `json:"canonical"`
}

// ErrorBody describes a failed request. Kind and Field are set for
// rejected sentences.
type ErrorBody struct {
	Kind   string `json:"kind,omitempty"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason"`
}

// ErrorResponse wraps ErrorBody.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleCompile(w http.ResponseWriter, r *http.Request) {
	var req CompileRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorBody{Reason: "invalid request body: " + err.Error()})
		return
	}

	res, err := h.svc.Compile(r.Context(), engine.SourceHTTP, req.Line)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CompileResponse{
		Fingerprint: res.Fingerprint,
		Canonical:   string(res.Canonical),
		Duplicate:   res.Duplicate,
		Sentence:    json.RawMessage(res.Canonical),
	})
}

func (h *Handler) handleCanonicalize(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	b, err := h.svc.Canonicalize(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorBody{Reason: err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *Handler) handleFingerprint(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	b, fp, err := h.svc.Fingerprint(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorBody{Reason: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, FingerprintResponse{Fingerprint: fp, Canonical: string(b)})
}

func (h *Handler) handleGetSentence(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.Lookup(r.Context(), chi.URLParam(r, "fingerprint"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) handleListSentences(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := ledger.Filter{
		SubjectKind: q.Get("subject_kind"),
		SubjectID:   q.Get("subject_id"),
		Intent:      q.Get("intent"),
		Act:         q.Get("act"),
		ObjectKind:  q.Get("object_kind"),
		ObjectID:    q.Get("object_id"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, ErrorBody{Reason: "limit must be a non-negative integer"})
			return
		}
		f.Limit = n
	}

	entries, err := h.svc.List(r.Context(), f)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if entries == nil {
		entries = []ledger.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sentences": entries})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var se *sentence.Error
	switch {
	case errors.As(err, &se):
		writeError(w, http.StatusUnprocessableEntity, ErrorBody{
			Kind:   string(se.Kind),
			Field:  string(se.Field),
			Reason: se.Reason,
		})
	case errors.Is(err, ledger.ErrNotFound):
		writeError(w, http.StatusNotFound, ErrorBody{Reason: err.Error()})
	case errors.Is(err, engine.ErrNoLedger):
		writeError(w, http.StatusServiceUnavailable, ErrorBody{Reason: err.Error()})
	default:
		h.logger.Printf("http: %s %s: request_id=%s: %v", r.Method, r.URL.Path, middleware.GetReqID(r.Context()), err)
		writeError(w, http.StatusInternalServerError, ErrorBody{Reason: "internal error"})
	}
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorBody{Reason: "read body: " + err.Error()})
		return nil, false
	}
	return body, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, body ErrorBody) {
	writeJSON(w, code, ErrorResponse{Error: body})
}
