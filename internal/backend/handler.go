package backend

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"taxclient/internal/apperr"
	"taxclient/internal/obs"
)

const maxRequestSize = 1 << 20

// Handler serves a Backend over HTTP under /api/.
type Handler struct {
	backend Backend
	logger  *zap.Logger
}

func NewHandler(b Backend, logger *zap.Logger) *Handler {
	return &Handler{backend: b, logger: obs.Logger(logger).Named("backend.handler")}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.URL.Path, "/api/") {
		http.NotFound(w, r)
		return
	}
	var body any
	if r.Body != nil && r.Method != http.MethodGet {
		data, err := io.ReadAll(io.LimitReader(r.Body, maxRequestSize))
		if err != nil {
			http.Error(w, "read body", http.StatusBadRequest)
			return
		}
		if len(data) > 0 {
			body = data
		}
	}
	ctx := r.Context()
	if token := bearerToken(r.Header.Get("Authorization")); token != "" {
		ctx = WithToken(ctx, token)
	}
	path := r.URL.Path
	if r.URL.RawQuery != "" {
		path += "?" + r.URL.RawQuery
	}

	data, err := h.backend.Do(ctx, r.Method, path, body)
	if err != nil {
		var statusErr *apperr.StatusError
		if errors.As(err, &statusErr) {
			message := statusErr.Message
			if message == "" {
				message = http.StatusText(statusErr.Status)
			}
			http.Error(w, message, statusErr.Status)
			return
		}
		h.logger.Error("backend call failed",
			zap.String("method", r.Method),
			zap.String("path", path),
			zap.Error(err),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	status := http.StatusOK
	if r.Method == http.MethodPost {
		status = http.StatusCreated
	}
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
