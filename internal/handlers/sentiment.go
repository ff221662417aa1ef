package handlers

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"sentisense/internal/apperr"
	"sentisense/internal/auth"
	"sentisense/internal/ledger"
	"sentisense/internal/models"
	"sentisense/internal/respond"
	"sentisense/internal/sentiment"
)

type SentimentHandler struct {
	classifier sentiment.Classifier
	ledger     *ledger.Service
	logger     *zap.Logger
}

func NewSentimentHandler(c sentiment.Classifier, l *ledger.Service, logger *zap.Logger) *SentimentHandler {
	return &SentimentHandler{classifier: c, ledger: l, logger: logger}
}

// Analyze godoc
// @Summary Classify a piece of text
// @Security Bearer
// @Router /sentiment/analyze-sentiment [post]
func (h *SentimentHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decode(w, r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	// The submitted text is the history key and is used verbatim.
	text := req.Text
	if strings.TrimSpace(text) == "" {
		respond.Error(w, r, h.logger, apperr.Validation("text is required"))
		return
	}
	id := auth.FromContext(r.Context())

	entry, found, err := h.ledger.Lookup(r.Context(), id, models.AnalysisSentiment, text)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	if found {
		respond.OK(w, entry.Data)
		return
	}

	res, err := h.classifier.Classify(r.Context(), text)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	payload, err := models.NewPayload(sentimentResult{
		Text:      text,
		Sentiment: res.Emotion.Label,
		Score:     res.Emotion.Score,
		Polarity:  res.Polarity,
		Compound:  res.Compound,
	})
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	entry, err = h.ledger.RecordOrFetch(r.Context(), id, models.AnalysisSentiment, payload)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.OK(w, entry.Data)
}

// History godoc
// @Summary List the caller's saved analyses
// @Router /sentiment/analysis-history [get]
func (h *SentimentHandler) History(w http.ResponseWriter, r *http.Request) {
	entries, err := h.ledger.ListHistory(r.Context(), auth.FromContext(r.Context()))
	if errors.Is(err, ledger.ErrNotLoggedIn) {
		respond.Message(w, "Not Logged In")
		return
	}
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.OK(w, historyResponse{History: entries})
}
