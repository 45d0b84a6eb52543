package upload

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ObjectContentTypeHeader reports the content type the object was stored with. The
// response body itself is always JSON.
const ObjectContentTypeHeader = "X-Object-Content-Type"

// HTTPConfig configures the HTTP surface of the upload service.
type HTTPConfig struct {
	MaxSizeBytes   int64
	RequestTimeout time.Duration
	APIKeys        []string
	APIKeyHeader   string
	// RateLimit is requests per second across all callers; zero disables limiting.
	RateLimit float64
	RateBurst int
}

// HTTPHandler exposes REST endpoints for the upload service.
type HTTPHandler struct {
	service *Service
	logger  *zap.Logger
	cfg     HTTPConfig
	router  chi.Router
}

// NewHTTPHandler constructs the HTTP handler and wires routes.
func NewHTTPHandler(service *Service, logger *zap.Logger, cfg HTTPConfig) *HTTPHandler {
	if cfg.APIKeyHeader == "" {
		cfg.APIKeyHeader = "X-API-Key"
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 2 * time.Minute
	}
	h := &HTTPHandler{
		service: service,
		logger:  logger,
		cfg:     cfg,
	}
	h.buildRouter()
	return h
}

func (h *HTTPHandler) buildRouter() {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(h.cfg.RequestTimeout))

	r.Get("/healthz", h.handleHealth)

	r.Route("/product", func(r chi.Router) {
		r.Use(apiKeyAuth(h.cfg.APIKeyHeader, h.cfg.APIKeys))
		if h.cfg.RateLimit > 0 {
			r.Use(rateLimit(rate.NewLimiter(rate.Limit(h.cfg.RateLimit), h.cfg.RateBurst)))
		}
		r.Put("/", h.handleGenerated)
		r.Put("/{container}", h.handleExplicit)
		r.Put("/{container}/", h.handleExplicit)
		r.Put("/{container}/{key}", h.handleExplicit)
	})

	h.router = r
}

// Router exposes the configured chi router.
func (h *HTTPHandler) Router() http.Handler {
	return h.router
}

func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func (h *HTTPHandler) handleGenerated(w http.ResponseWriter, r *http.Request) {
	h.handleUpload(w, r, Request{Mode: ModeGenerated})
}

func (h *HTTPHandler) handleExplicit(w http.ResponseWriter, r *http.Request) {
	container, err := pathParam(r, "container")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid container encoding")
		return
	}
	key, err := pathParam(r, "key")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid key encoding")
		return
	}
	h.handleUpload(w, r, Request{Mode: ModeExplicit, Container: container, Key: key})
}

func (h *HTTPHandler) handleUpload(w http.ResponseWriter, r *http.Request, req Request) {
	if r.ContentLength > h.cfg.MaxSizeBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	req.RequestID = RequestIDFromContext(r.Context())
	req.Accept = r.Header.Get("Accept")
	req.ContentType = r.Header.Get("Content-Type")
	req.ContentEncoding = r.Header.Get("Content-Encoding")

	body := http.MaxBytesReader(w, r.Body, h.cfg.MaxSizeBytes)
	defer body.Close()

	result, err := h.service.Upload(r.Context(), req, body, r.ContentLength)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, ErrMalformedRequest):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
		default:
			h.logger.Error("upload failed", zap.Error(err), zap.String("request_id", req.RequestID))
			writeError(w, http.StatusBadGateway, "upload failed")
		}
		return
	}

	w.Header().Set("X-Object-Key", result.Key)
	w.Header().Set(ObjectContentTypeHeader, result.ContentType)
	writeJSON(w, http.StatusOK, result)
}

// pathParam returns a route parameter with percent-encoding removed. chi matches against
// the raw path when the request carried escaped characters.
func pathParam(r *http.Request, name string) (string, error) {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v, nil
	}
	return url.PathUnescape(v)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{
		"error": msg,
	})
}
