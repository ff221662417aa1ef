package handlers

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"sentisense/internal/respond"
)

// ContactSubmitter accepts contact form submissions.
type ContactSubmitter interface {
	Submit(ctx context.Context, email, subject, body string) error
}

type EmailHandler struct {
	contact ContactSubmitter
	logger  *zap.Logger
}

func NewEmailHandler(contact ContactSubmitter, logger *zap.Logger) *EmailHandler {
	return &EmailHandler{contact: contact, logger: logger}
}

// Contact godoc
// @Summary Send a message to the support inbox
// @Router /email/contact [post]
func (h *EmailHandler) Contact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := decode(w, r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	err := h.contact.Submit(r.Context(), normalizeEmail(req.Email), strings.TrimSpace(req.Subject), req.Body)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.Message(w, "Email sent and auto-reply delivered successfully")
}
