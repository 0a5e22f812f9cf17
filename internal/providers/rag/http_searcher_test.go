package rag

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/ameena/internal/providers/httpx"
)

func fastRetry() httpx.Policy {
	return httpx.Policy{Attempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestHTTPSearcherSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/search", r.URL.Path)

		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "НДС ставка", req.Query)
		assert.Equal(t, 2, req.Limit)

		_ = json.NewEncoder(w).Encode(map[string]any{"results": []map[string]any{
			{"article": "169", "type": "article", "content": "Ставка НДС 14%", "score": 0.87},
			{"article": "170", "type": "article", "content": "Льготы", "score": 0.55},
			{"article": "171", "type": "article", "content": "extra", "score": 0.1},
		}})
	}))
	defer srv.Close()

	s := NewHTTPSearcher(srv.URL+"/", srv.Client())
	docs, err := s.Search(context.Background(), "НДС ставка", 2)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, Document{Article: "169", Type: "article", Content: "Ставка НДС 14%", Score: 0.87}, docs[0])
	assert.Equal(t, "http", s.Backend())
}

func TestHTTPSearcherRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "cold start", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	s := NewHTTPSearcher(srv.URL, srv.Client())
	s.Retry = fastRetry()
	docs, err := s.Search(context.Background(), "q", 5)
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPSearcherClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad limit", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	s := NewHTTPSearcher(srv.URL, srv.Client())
	s.Retry = fastRetry()
	_, err := s.Search(context.Background(), "q", 50)

	var se *httpx.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnprocessableEntity, se.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPSearcherMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":"not-a-list"}`))
	}))
	defer srv.Close()

	_, err := NewHTTPSearcher(srv.URL, srv.Client()).Search(context.Background(), "q", 3)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestHTTPSearcherPing(t *testing.T) {
	healthy := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	s := NewHTTPSearcher(srv.URL, srv.Client())
	require.NoError(t, s.Ping(context.Background()))

	healthy = false
	assert.Error(t, s.Ping(context.Background()))

	assert.Error(t, NewHTTPSearcher("", nil).Ping(context.Background()))
}
