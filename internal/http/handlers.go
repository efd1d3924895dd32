package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/jpeg"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"pageview/internal/config"
	"pageview/internal/document"
	"pageview/internal/provider"
	"pageview/internal/viewer"
)

const jpegQuality = 85

type Handlers struct {
	config   *config.Config
	logger   *zap.Logger
	document document.Document
	provider *provider.Provider
	viewers  *viewer.Registry
}

func New(config *config.Config, logger *zap.Logger, doc document.Document, p *provider.Provider, viewers *viewer.Registry) *Handlers {
	return &Handlers{
		config:   config,
		logger:   logger,
		document: doc,
		provider: p,
		viewers:  viewers,
	}
}

// Router wires every route, wrapped in CORS and request logging.
func (h *Handlers) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", h.HandleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/api/document", h.HandleDocument).Methods(http.MethodGet)
	r.HandleFunc("/api/stats", h.HandleStats).Methods(http.MethodGet)
	r.HandleFunc("/api/viewers", h.HandleRegisterViewer).Methods(http.MethodPost)
	r.HandleFunc("/api/viewers/{viewer}", h.HandleRemoveViewer).Methods(http.MethodDelete)
	r.HandleFunc("/api/viewers/{viewer}/viewport", h.HandleViewport).Methods(http.MethodPut)
	r.HandleFunc("/api/viewers/{viewer}/events", h.HandleEvents).Methods(http.MethodGet)
	r.HandleFunc("/api/viewers/{viewer}/pages/{page:[0-9]+}", h.HandlePage).Methods(http.MethodGet, http.MethodHead)

	return h.CORSMiddleware(h.RequestLoggingMiddleware(r))
}

func (h *Handlers) RequestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		h.logger.Info("request",
			zap.String("request_id", requestID),
			zap.String("ip", h.extractIP(r)),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", wrapped.statusCode),
			zap.Int64("bytes", wrapped.bytesWritten),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.String("user_agent", r.UserAgent()),
		)
	})
}

func (h *Handlers) CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowedOrigin := ""

		if h.config.AllowedOrigin != "" {
			allowedOrigin = h.config.AllowedOrigin
		} else {
			host := r.Host
			if origin != "" && (strings.HasPrefix(origin, "http://"+host) || strings.HasPrefix(origin, "https://"+host)) {
				allowedOrigin = origin
			} else if origin == "" {
				allowedOrigin = "*"
			}
		}

		if allowedOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Expose-Headers", "X-Render-Result")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (h *Handlers) HandleDocument(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"page_count": h.document.PageCount(),
		"pages":      h.document.Pages(),
	})
}

func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"provider": h.provider.Stats(),
		"viewers":  h.viewers.Viewers(),
	})
}

func (h *Handlers) HandleRegisterViewer(w http.ResponseWriter, r *http.Request) {
	id := h.viewers.Register()
	h.logger.Debug("Viewer registered", zap.String("viewer", id))
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handlers) HandleRemoveViewer(w http.ResponseWriter, r *http.Request) {
	if err := h.viewers.Remove(mux.Vars(r)["viewer"]); err != nil {
		h.viewerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type viewport struct {
	First int `json:"first"`
	Last  int `json:"last"`
}

func (h *Handlers) HandleViewport(w http.ResponseWriter, r *http.Request) {
	var vp viewport
	if err := json.NewDecoder(r.Body).Decode(&vp); err != nil {
		http.Error(w, "Invalid viewport", http.StatusBadRequest)
		return
	}
	if vp.First < 0 || vp.Last < vp.First-1 {
		http.Error(w, "Invalid viewport range", http.StatusBadRequest)
		return
	}

	if err := h.viewers.SetViewport(mux.Vars(r)["viewer"], vp.First, vp.Last); err != nil {
		h.viewerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) HandleEvents(w http.ResponseWriter, r *http.Request) {
	timeout := h.config.EventPollTimeout
	if raw := r.URL.Query().Get("timeout"); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms < 0 {
			http.Error(w, "Invalid timeout", http.StatusBadRequest)
			return
		}
		if d := time.Duration(ms) * time.Millisecond; d < timeout {
			timeout = d
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	pages, err := h.viewers.Poll(ctx, mux.Vars(r)["viewer"])
	if err != nil {
		h.viewerError(w, err)
		return
	}
	if pages == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]int{"pages": pages})
}

// HandlePage answers with the cached render of the page, or with the
// nearest cached scale while the exact one is rendered. 202 means nothing
// is cached yet; the viewer learns about the finished render from its
// events.
func (h *Handlers) HandlePage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	page, err := strconv.Atoi(vars["page"])
	if err != nil || page < 0 || page >= h.document.PageCount() {
		http.Error(w, "Invalid page", http.StatusBadRequest)
		return
	}

	scale := 1.0
	if raw := r.URL.Query().Get("scale"); raw != "" {
		scale, err = strconv.ParseFloat(raw, 64)
		if err != nil || !(scale > 0) || math.IsInf(scale, 0) {
			http.Error(w, "Invalid scale", http.StatusBadRequest)
			return
		}
	}

	if !h.provider.Renderable(page, scale) {
		http.Error(w, "Scale too large", http.StatusBadRequest)
		return
	}

	slot, err := h.viewers.Slot(vars["viewer"], page)
	if err != nil {
		h.viewerError(w, err)
		return
	}

	img, exact := h.provider.Request(slot, page, scale)
	if img == nil {
		w.Header().Set("X-Render-Result", "pending")
		w.WriteHeader(http.StatusAccepted)
		return
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		h.logger.Error("Failed to encode page", zap.Int("page", page), zap.Error(err))
		http.Error(w, "Failed to encode page", http.StatusInternalServerError)
		return
	}

	result := "placeholder"
	if exact {
		result = "exact"
	}
	w.Header().Set("X-Render-Result", result)
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", buf.Len()))
	w.Header().Set("Cache-Control", "no-store")

	// HEAD request doesn't send body
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}

	w.Write(buf.Bytes())
}

func (h *Handlers) viewerError(w http.ResponseWriter, err error) {
	if errors.Is(err, viewer.ErrUnknownViewer) {
		http.Error(w, "Viewer not found", http.StatusNotFound)
		return
	}
	h.logger.Error("Viewer operation failed", zap.Error(err))
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Not for real production use due to potential spoofing
func (h *Handlers) extractIP(r *http.Request) string {
	ip := r.Header.Get("X-Real-Ip")
	if ip != "" {
		return strings.Split(ip, ":")[0]
	}

	addr := r.RemoteAddr
	if addr != "" {
		return strings.Split(addr, ":")[0]
	}

	return "unknown"
}

type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}
