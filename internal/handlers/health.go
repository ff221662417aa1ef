package handlers

import (
	"net/http"

	"sentisense/internal/respond"
)

type HealthHandler struct {
	version string
}

func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{version: version}
}

func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	respond.Message(w, "Welcome to Sentiment Sense API")
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	respond.OK(w, map[string]string{"status": "ok", "version": h.version})
}
