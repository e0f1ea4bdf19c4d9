package activity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_GetActivities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/activities", r.URL.Path)
		assert.Equal(t, "123", r.URL.Query().Get("activity_id"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[{"id":"123","verb":"post","object":{"objectType":"note","content":"asdf"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "secret")
	got, err := c.GetActivities(context.Background(), "123")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "post", got[0].Verb)
	require.NotNil(t, got[0].Object)
	assert.Equal(t, "note", got[0].Object.ObjectType)
	assert.Equal(t, "asdf", got[0].Object.Content)
}

func TestClient_GetActivities_EmptyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.False(t, r.URL.Query().Has("activity_id"))
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, "").GetActivities(context.Background(), "")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestClient_GetComment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/comments/c 1", r.URL.Path)
		assert.Equal(t, "post-9", r.URL.Query().Get("activity_id"))
		w.Write([]byte(`{"id":"c 1","objectType":"comment","content":"qwert"}`))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, "t").GetComment(context.Background(), "c 1", "post-9")
	require.NoError(t, err)
	assert.Equal(t, Object{ID: "c 1", ObjectType: "comment", Content: "qwert"}, got)
}

func TestClient_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "t").GetComment(context.Background(), "missing", "")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestClient_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "bad").GetActivities(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestClient_RetriesRateLimit(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"items":[{"id":"1"}]}`))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, "t").GetActivities(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, int32(2), hits.Load())
}

func TestClient_MaxRetriesExceeded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "t", WithMaxRetries(1)).GetActivities(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries (1) exceeded")
}

func TestRetryAfterDuration_Backoff(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	assert.Equal(t, "1s", retryAfterDuration(resp, 0).String())
	assert.Equal(t, "4s", retryAfterDuration(resp, 2).String())
	assert.Equal(t, "30s", retryAfterDuration(resp, 10).String())
}
