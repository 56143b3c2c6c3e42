package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/uploads"
	"scribe/internal/worker"
)

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) || errors.Is(err, uploads.ErrTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	var computation *worker.ComputationError
	switch services.Classify(err) {
	case services.ClassValidation:
		return http.StatusBadRequest
	case services.ClassNotFound:
		return http.StatusNotFound
	case services.ClassTimeout:
		return http.StatusGatewayTimeout
	case services.ClassExternalTool:
		return http.StatusBadGateway
	case services.ClassTransient:
		return http.StatusServiceUnavailable
	default:
		if errors.As(err, &computation) {
			return http.StatusBadGateway
		}
		return http.StatusInternalServerError
	}
}

func errorLabel(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid request"
	case http.StatusNotFound:
		return "not found"
	case http.StatusRequestEntityTooLarge:
		return "upload too large"
	case http.StatusBadGateway:
		return "model execution failed"
	case http.StatusServiceUnavailable:
		return "model unavailable"
	case http.StatusGatewayTimeout:
		return "model timed out"
	default:
		return "internal error"
	}
}

func writeJSON(logger *slog.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", logging.Error(err))
	}
}

func writeText(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func writeError(logger *slog.Logger, r *http.Request, w http.ResponseWriter, err error) {
	status := StatusFor(err)
	log := logging.WithContext(r.Context(), logger)
	attrs := []logging.Attr{
		logging.Int("status", status),
		logging.String("error_class", string(services.Classify(err))),
		logging.Error(err),
	}
	if status >= http.StatusInternalServerError {
		logging.ErrorWithContext(log, "request failed", "request_failed", attrs...)
	} else {
		log.Info("request rejected", logging.Args(attrs...)...)
	}
	writeJSON(logger, w, status, ErrorResponse{Error: errorLabel(status), Details: err.Error()})
}
