// Package reddit fetches a Reddit post and its comment tree with app-only
// OAuth.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"sentisense/internal/apperr"
)

var postIDPattern = regexp.MustCompile(`comments/([0-9A-Za-z_-]+)`)

// ExtractPostID returns the post id in a Reddit comments URL.
func ExtractPostID(postURL string) (string, error) {
	m := postIDPattern.FindStringSubmatch(postURL)
	if m == nil {
		return "", apperr.Validation("Invalid Reddit URL")
	}
	return m[1], nil
}

type Post struct {
	Title     string
	Author    string
	Content   string
	URL       string
	Upvotes   int
	Downvotes int
}

type Comment struct {
	Body   string
	Author string
}

type Thread struct {
	Post     Post
	Comments []Comment
}

type Config struct {
	ClientID     string
	ClientSecret string
	UserAgent    string
	TokenURL     string
	APIBaseURL   string
	MaxComments  int
}

type Client struct {
	http        *http.Client
	apiBase     string
	maxComments int
}

// NewClient returns a client whose requests carry an app-only bearer
// token. ctx is used for token fetches and should outlive the client.
func NewClient(ctx context.Context, cfg Config) *Client {
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	// Reddit rejects requests without a descriptive User-Agent, including
	// the token request, so the base transport sets it for both.
	base := &http.Client{
		Transport: &userAgentTransport{agent: cfg.UserAgent, next: http.DefaultTransport},
		Timeout:   30 * time.Second,
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)

	maxComments := cfg.MaxComments
	if maxComments <= 0 {
		maxComments = 500
	}
	return &Client{
		http:        cc.Client(ctx),
		apiBase:     strings.TrimRight(cfg.APIBaseURL, "/"),
		maxComments: maxComments,
	}
}

type userAgentTransport struct {
	agent string
	next  http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("User-Agent", t.agent)
	return t.next.RoundTrip(r)
}

// FetchThread returns the post and its comments flattened depth-first.
// "Load more" stubs are not expanded.
func (c *Client) FetchThread(ctx context.Context, postID string) (*Thread, error) {
	q := url.Values{}
	q.Set("raw_json", "1")
	q.Set("limit", fmt.Sprint(c.maxComments))
	endpoint := fmt.Sprintf("%s/comments/%s?%s", c.apiBase, url.PathEscape(postID), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Upstream("Failed to fetch Reddit comments", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperr.NotFound("Reddit post not found")
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, apperr.Upstream("Failed to fetch Reddit comments",
			fmt.Errorf("reddit API error (%d): %s", resp.StatusCode, body))
	}

	var listings []listing
	if err := json.NewDecoder(resp.Body).Decode(&listings); err != nil {
		return nil, apperr.Upstream("Failed to fetch Reddit comments", fmt.Errorf("decode listing: %w", err))
	}
	return parseThread(listings, c.maxComments)
}

type listing struct {
	Data struct {
		Children []thing `json:"children"`
	} `json:"data"`
}

type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type linkData struct {
	Title    string `json:"title"`
	Author   string `json:"author"`
	Selftext string `json:"selftext"`
	URL      string `json:"url"`
	Ups      int    `json:"ups"`
	Downs    int    `json:"downs"`
}

type commentData struct {
	Body   string `json:"body"`
	Author string `json:"author"`
	// Replies is "" for a leaf and a listing otherwise.
	Replies json.RawMessage `json:"replies"`
}

func parseThread(listings []listing, maxComments int) (*Thread, error) {
	if len(listings) == 0 || len(listings[0].Data.Children) == 0 {
		return nil, apperr.NotFound("Reddit post not found")
	}
	var link linkData
	if err := json.Unmarshal(listings[0].Data.Children[0].Data, &link); err != nil {
		return nil, apperr.Upstream("Failed to fetch Reddit comments", fmt.Errorf("decode post: %w", err))
	}
	thread := &Thread{Post: Post{
		Title:     link.Title,
		Author:    authorOr(link.Author, "Deleted"),
		Content:   link.Selftext,
		URL:       link.URL,
		Upvotes:   link.Ups,
		Downvotes: link.Downs,
	}}
	if len(listings) > 1 {
		if err := flatten(listings[1].Data.Children, &thread.Comments, maxComments); err != nil {
			return nil, apperr.Upstream("Failed to fetch Reddit comments", err)
		}
	}
	return thread, nil
}

func flatten(children []thing, out *[]Comment, limit int) error {
	for _, child := range children {
		if len(*out) >= limit {
			return nil
		}
		if child.Kind != "t1" {
			continue
		}
		var c commentData
		if err := json.Unmarshal(child.Data, &c); err != nil {
			return fmt.Errorf("decode comment: %w", err)
		}
		*out = append(*out, Comment{Body: c.Body, Author: authorOr(c.Author, "Anonymous")})

		if len(c.Replies) > 0 && c.Replies[0] == '{' {
			var replies listing
			if err := json.Unmarshal(c.Replies, &replies); err != nil {
				return fmt.Errorf("decode replies: %w", err)
			}
			if err := flatten(replies.Data.Children, out, limit); err != nil {
				return err
			}
		}
	}
	return nil
}

func authorOr(author, fallback string) string {
	if author == "" || author == "[deleted]" {
		return fallback
	}
	return author
}
