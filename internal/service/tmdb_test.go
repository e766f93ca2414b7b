package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/cinematch/internal/config"
	"github.com/user/cinematch/internal/utils"
)

func newTMDBServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if r.URL.Path != "/search/movie" || r.URL.Query().Get("api_key") != "test-key" {
			http.Error(w, "bad request", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("query") {
		case "Avatar":
			w.Write([]byte(`{"results": [{"id": 19995, "title": "Avatar", "poster_path": "/avatar.jpg"}, {"id": 1, "poster_path": "/other.jpg"}]}`))
		case "No Poster":
			w.Write([]byte(`{"results": [{"id": 2, "title": "No Poster", "poster_path": ""}]}`))
		default:
			w.Write([]byte(`{"results": []}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func tmdbConfig(baseURL string) config.TMDBConfig {
	return config.TMDBConfig{
		APIKey:         "test-key",
		BaseURL:        baseURL,
		ImageBaseURL:   "https://image.tmdb.org/t/p/w500",
		Timeout:        time.Second,
		CacheTTL:       time.Hour,
		RatePerSecond:  100,
		BreakerFailure: 2,
	}
}

func TestPosterLookupFound(t *testing.T) {
	utils.InitCache()
	var hits int32
	srv := newTMDBServer(t, &hits)
	s := NewPosterService(tmdbConfig(srv.URL))

	url, ok := s.Lookup(context.Background(), "Avatar")
	require.True(t, ok)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/avatar.jpg", url)

	// 第二次命中缓存
	url, ok = s.Lookup(context.Background(), "Avatar")
	require.True(t, ok)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/avatar.jpg", url)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestPosterLookupNotFound(t *testing.T) {
	utils.InitCache()
	var hits int32
	srv := newTMDBServer(t, &hits)
	s := NewPosterService(tmdbConfig(srv.URL))

	for _, title := range []string{"Unknown Movie", "No Poster"} {
		url, ok := s.Lookup(context.Background(), title)
		assert.False(t, ok)
		assert.Empty(t, url)
	}

	// 查无结果也会缓存
	_, ok := s.Lookup(context.Background(), "Unknown Movie")
	assert.False(t, ok)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))

	_, err := s.Fetch(context.Background(), "No Poster")
	assert.ErrorIs(t, err, ErrPosterUnavailable)
}

func TestPosterLookupMissingKey(t *testing.T) {
	var hits int32
	srv := newTMDBServer(t, &hits)
	cfg := tmdbConfig(srv.URL)
	cfg.APIKey = ""
	s := NewPosterService(cfg)

	assert.False(t, s.Enabled())
	_, ok := s.Lookup(context.Background(), "Avatar")
	assert.False(t, ok)
	_, err := s.Fetch(context.Background(), "Avatar")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestPosterLookupNetworkFailure(t *testing.T) {
	utils.InitCache()
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	s := NewPosterService(tmdbConfig(baseURL))
	url, ok := s.Lookup(context.Background(), "Avatar")
	assert.False(t, ok)
	assert.Empty(t, url)
}

func TestPosterBreakerOpensAfterFailures(t *testing.T) {
	utils.InitCache()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewPosterService(tmdbConfig(srv.URL))
	for i := 0; i < 5; i++ {
		_, ok := s.Lookup(context.Background(), "Avatar")
		assert.False(t, ok)
	}
	// 连续失败 2 次后熔断，后续请求不再到达上游
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestRecommendationsSurvivePosterFailure(t *testing.T) {
	utils.InitCache()
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	posters := NewPosterService(tmdbConfig(baseURL))
	r := NewRecommender(abcdCatalog(), newLexical(t), 100, time.Hour)

	recs, err := r.Recommend(context.Background(), "A", 3)
	require.NoError(t, err)
	for i := range recs {
		if url, ok := posters.Lookup(context.Background(), recs[i].Movie.Title); ok {
			recs[i].PosterURL = url
		}
	}

	assert.Equal(t, []string{"B", "C", "D"}, titles(recs))
	for _, rec := range recs {
		assert.Empty(t, rec.PosterURL)
		assert.NotEmpty(t, rec.Reason)
	}
}

func TestPosterLookupIgnoresCallerCancellation(t *testing.T) {
	utils.InitCache()
	var hits int32
	srv := newTMDBServer(t, &hits)
	s := NewPosterService(tmdbConfig(srv.URL))

	// 调用方已断开，共享查询仍然完成并写入缓存
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	url, ok := s.Lookup(ctx, "Avatar")
	require.True(t, ok)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/avatar.jpg", url)

	url, ok = s.Lookup(context.Background(), "Avatar")
	require.True(t, ok)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/avatar.jpg", url)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestPosterBreakerIgnoresCanceledFetches(t *testing.T) {
	utils.InitCache()
	var hits int32
	srv := newTMDBServer(t, &hits)
	s := NewPosterService(tmdbConfig(srv.URL))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 5; i++ {
		_, err := s.Fetch(ctx, "Avatar")
		assert.ErrorIs(t, err, context.Canceled)
	}

	// 取消不计入失败，熔断器保持闭合
	url, err := s.Fetch(context.Background(), "Avatar")
	require.NoError(t, err)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/avatar.jpg", url)
}
