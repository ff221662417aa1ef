// Package youtube fetches top-level comments of a YouTube video.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"sentisense/internal/apperr"
)

var videoIDPattern = regexp.MustCompile(`(?:v=|/)([0-9A-Za-z_-]{11})`)

// ExtractVideoID returns the 11 character video id in a watch, share or
// embed URL.
func ExtractVideoID(videoURL string) (string, error) {
	m := videoIDPattern.FindStringSubmatch(videoURL)
	if m == nil {
		return "", apperr.Validation("Invalid YouTube URL")
	}
	return m[1], nil
}

type Comment struct {
	Text     string
	Username string
}

// Client reads comment threads through the YouTube Data API v3.
type Client struct {
	svc         *youtube.Service
	maxComments int
}

// NewClient authenticates with an API key. Extra options are appended,
// e.g. to point at a test endpoint.
func NewClient(ctx context.Context, apiKey string, maxComments int, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	if maxComments <= 0 {
		maxComments = 500
	}
	return &Client{svc: svc, maxComments: maxComments}, nil
}

var errEnough = errors.New("comment cap reached")

// FetchComments returns up to the configured cap of top-level comments,
// following result pages.
func (c *Client) FetchComments(ctx context.Context, videoID string) ([]Comment, error) {
	var comments []Comment
	call := c.svc.CommentThreads.List([]string{"snippet"}).
		VideoId(videoID).
		TextFormat("plainText").
		MaxResults(100)

	err := call.Pages(ctx, func(resp *youtube.CommentThreadListResponse) error {
		for _, item := range resp.Items {
			if item.Snippet == nil || item.Snippet.TopLevelComment == nil || item.Snippet.TopLevelComment.Snippet == nil {
				continue
			}
			s := item.Snippet.TopLevelComment.Snippet
			comments = append(comments, Comment{Text: s.TextDisplay, Username: s.AuthorDisplayName})
			if len(comments) >= c.maxComments {
				return errEnough
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, errEnough) {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
			return nil, apperr.NotFound("Video not found")
		}
		return nil, apperr.Upstream("Failed to fetch YouTube comments", err)
	}
	return comments, nil
}
