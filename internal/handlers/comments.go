package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"sentisense/internal/auth"
	"sentisense/internal/ledger"
	"sentisense/internal/models"
	"sentisense/internal/respond"
	"sentisense/internal/sentiment"
	"sentisense/internal/sources/reddit"
	"sentisense/internal/sources/youtube"
)

// VideoSource fetches the top-level comments of a video.
type VideoSource interface {
	FetchComments(ctx context.Context, videoID string) ([]youtube.Comment, error)
}

// ThreadSource fetches a post and its flattened comment tree.
type ThreadSource interface {
	FetchThread(ctx context.Context, postID string) (*reddit.Thread, error)
}

// CommentsHandler serves the comment analysis routes. Both routes accept
// anonymous callers; only signed-in callers get their results saved.
type CommentsHandler struct {
	videos      VideoSource
	threads     ThreadSource
	classifier  sentiment.Classifier
	ledger      *ledger.Service
	concurrency int
	logger      *zap.Logger
}

type CommentsDeps struct {
	Videos     VideoSource
	Threads    ThreadSource
	Classifier sentiment.Classifier
	Ledger     *ledger.Service
	// Concurrency caps in-flight classifier calls per request.
	Concurrency int
	Logger      *zap.Logger
}

func NewCommentsHandler(d CommentsDeps) *CommentsHandler {
	return &CommentsHandler{
		videos:      d.Videos,
		threads:     d.Threads,
		classifier:  d.Classifier,
		ledger:      d.Ledger,
		concurrency: d.Concurrency,
		logger:      d.Logger,
	}
}

// YouTube godoc
// @Summary Classify the comments of a YouTube video
// @Router /youtube/fetch-comments [post]
func (h *CommentsHandler) YouTube(w http.ResponseWriter, r *http.Request) {
	var req youtubeRequest
	if err := decode(w, r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	videoID, err := youtube.ExtractVideoID(req.VideoURL)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	ctx := r.Context()
	id := auth.FromContext(ctx)

	entry, found, err := h.ledger.Lookup(ctx, id, models.AnalysisYouTube, videoID)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	if found {
		respond.OK(w, entry.Data)
		return
	}

	comments, err := h.videos.FetchComments(ctx, videoID)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	texts := make([]string, len(comments))
	for i, c := range comments {
		texts[i] = c.Text
	}
	labels := sentiment.LabelAll(ctx, h.classifier, texts, h.concurrency, h.logger)

	result := youtubeResult{VideoID: videoID, Comments: make([]youtubeComment, len(comments))}
	for i, c := range comments {
		result.Comments[i] = youtubeComment{Text: c.Text, Sentiment: labels[i], Username: c.Username}
	}
	h.record(w, r, id, models.AnalysisYouTube, result)
}

// Reddit godoc
// @Summary Classify the comments of a Reddit post
// @Router /reddit/fetch-comments [post]
func (h *CommentsHandler) Reddit(w http.ResponseWriter, r *http.Request) {
	var req redditRequest
	if err := decode(w, r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	postID, err := reddit.ExtractPostID(req.PostURL)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	ctx := r.Context()
	id := auth.FromContext(ctx)

	entry, found, err := h.ledger.Lookup(ctx, id, models.AnalysisReddit, postID)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	if found {
		respond.OK(w, entry.Data)
		return
	}

	thread, err := h.threads.FetchThread(ctx, postID)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	texts := make([]string, len(thread.Comments))
	for i, c := range thread.Comments {
		texts[i] = c.Body
	}
	labels := sentiment.LabelAll(ctx, h.classifier, texts, h.concurrency, h.logger)

	p := thread.Post
	result := redditResult{
		PostID: postID,
		Post: redditPost{
			Title:         p.Title,
			Author:        p.Author,
			Content:       p.Content,
			URL:           p.URL,
			Upvotes:       p.Upvotes,
			Downvotes:     p.Downvotes,
			CommentsCount: len(thread.Comments),
		},
		Comments: make([]redditComment, len(thread.Comments)),
	}
	for i, c := range thread.Comments {
		result.Comments[i] = redditComment{Text: c.Body, Sentiment: labels[i], User: c.Author}
	}
	h.record(w, r, id, models.AnalysisReddit, result)
}

// record saves result for the caller and writes the stored payload, which
// is the earlier one when a concurrent request won the insert.
func (h *CommentsHandler) record(w http.ResponseWriter, r *http.Request, id auth.Identity, kind models.AnalysisType, result any) {
	payload, err := models.NewPayload(result)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	entry, err := h.ledger.RecordOrFetch(r.Context(), id, kind, payload)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.OK(w, entry.Data)
}
