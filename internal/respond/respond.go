// Package respond provides JSON response helpers for handlers and middleware.
package respond

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"sentisense/internal/apperr"
)

// ErrorBody is the uniform error envelope.
type ErrorBody struct {
	Detail string `json:"detail"`
}

// JSON writes v as a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"detail":"Failed to encode response"}`, http.StatusInternalServerError)
	}
}

func OK(w http.ResponseWriter, v any) {
	JSON(w, http.StatusOK, v)
}

// Message writes {"message": msg} with status 200.
func Message(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusOK, map[string]string{"message": msg})
}

// Error translates err to a status code and a {"detail": ...} body.
// Server-side failures are logged with their cause; the client only sees
// the generic detail.
func Error(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError && logger != nil {
		logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("kind", apperr.KindOf(err).String()),
			zap.Error(err),
		)
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	JSON(w, status, ErrorBody{Detail: apperr.Detail(err)})
}
