package youtube

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"sentisense/internal/apperr"
)

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ?start=3", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?feature=share&v=a_b-c1234Z9", "a_b-c1234Z9"},
	}
	for _, tt := range tests {
		got, err := ExtractVideoID(tt.url)
		require.NoError(t, err, tt.url)
		assert.Equal(t, tt.want, got, tt.url)
	}

	_, err := ExtractVideoID("not a url")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestFetchCommentsPagesUntilCap(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/youtube/v3/commentThreads", r.URL.Path)
		assert.Equal(t, "dQw4w9WgXcQ", r.URL.Query().Get("videoId"))
		assert.Equal(t, "plainText", r.URL.Query().Get("textFormat"))
		page := r.URL.Query().Get("pageToken")
		next := ""
		if page == "" {
			next = `,"nextPageToken":"p2"`
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"items":[%s,%s]%s}`, thread("first"+page, "ann"), thread("second"+page, "bo"), next)
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), "key", 3, option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)

	comments, err := c.FetchComments(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, []Comment{
		{Text: "first", Username: "ann"},
		{Text: "second", Username: "bo"},
		{Text: "firstp2", Username: "ann"},
	}, comments)
	assert.Equal(t, 2, calls)
}

func TestFetchCommentsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"The video identified by the videoId parameter could not be found."}}`))
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), "key", 10, option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)

	_, err = c.FetchComments(context.Background(), "missing0000")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func thread(text, author string) string {
	return fmt.Sprintf(`{"snippet":{"topLevelComment":{"snippet":{"textDisplay":%q,"authorDisplayName":%q}}}}`, text, author)
}
