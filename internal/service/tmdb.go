package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/user/cinematch/internal/config"
	"github.com/user/cinematch/internal/logging"
	"github.com/user/cinematch/internal/metrics"
	"github.com/user/cinematch/internal/utils"
)

var (
	// ErrPosterUnavailable TMDB 没有该电影的海报
	ErrPosterUnavailable = errors.New("poster unavailable")
	// ErrMissingAPIKey 未配置 TMDB API key
	ErrMissingAPIKey = errors.New("tmdb api key not configured")
)

// posterNotFoundTTL “查无结果”的缓存时间
const posterNotFoundTTL = time.Hour

// defaultFetchTimeout 未配置超时时单次查询的上限
const defaultFetchTimeout = 10 * time.Second

// tmdbSearchResponse /search/movie 响应
type tmdbSearchResponse struct {
	Results []struct {
		ID         int    `json:"id"`
		Title      string `json:"title"`
		PosterPath string `json:"poster_path"`
	} `json:"results"`
}

// PosterService 通过 TMDB 搜索接口查询海报
type PosterService struct {
	cfg     config.TMDBConfig
	client  *utils.HTTPClient
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[*tmdbSearchResponse]
	group   singleflight.Group

	warnOnce sync.Once
}

// NewPosterService 创建海报服务
func NewPosterService(cfg config.TMDBConfig) *PosterService {
	failures := cfg.BreakerFailure
	if failures == 0 {
		failures = 5
	}
	rps := cfg.RatePerSecond
	if rps <= 0 {
		rps = 20
	}

	s := &PosterService{
		cfg:     cfg,
		client:  utils.NewHTTPClient(cfg.Timeout),
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)+1),
	}
	s.breaker = gobreaker.NewCircuitBreaker[*tmdbSearchResponse](gobreaker.Settings{
		Name:        "tmdb-search",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// 调用方取消不算上游故障
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("from", from.String()).Str("to", to.String()).Msg("[TMDB] 熔断器状态变化")
		},
	})
	return s
}

func (s *PosterService) fetchTimeout() time.Duration {
	if s.cfg.Timeout > 0 {
		return s.cfg.Timeout
	}
	return defaultFetchTimeout
}

// Enabled 是否配置了 API key
func (s *PosterService) Enabled() bool {
	return strings.TrimSpace(s.cfg.APIKey) != ""
}

// Lookup 查询海报 URL，任何失败都降级为 ("", false)
func (s *PosterService) Lookup(ctx context.Context, title string) (string, bool) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", false
	}
	if !s.Enabled() {
		s.warnOnce.Do(func() {
			logging.Warn().Err(ErrMissingAPIKey).Msg("[TMDB] 未配置 TMDB_API_KEY，海报功能不可用")
		})
		metrics.PosterLookups.WithLabelValues("disabled").Inc()
		return "", false
	}

	key := "poster:" + utils.Digest(s.cfg.BaseURL, title)
	if v, ok := utils.CacheGet(key); ok {
		metrics.PosterLookups.WithLabelValues("cached").Inc()
		posterURL := v.(string)
		return posterURL, posterURL != ""
	}

	// 共享的查询不受单个调用方取消影响，只受超时约束
	val, err, _ := s.group.Do(key, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout())
		defer cancel()
		return s.Fetch(fetchCtx, title)
	})
	if err != nil {
		if errors.Is(err, ErrPosterUnavailable) {
			metrics.PosterLookups.WithLabelValues("not_found").Inc()
			utils.CacheSet(key, "", posterNotFoundTTL)
			return "", false
		}
		metrics.PosterLookups.WithLabelValues("error").Inc()
		logging.Warn().Err(err).Str("title", title).Msg("[TMDB] 海报获取失败")
		return "", false
	}

	posterURL := val.(string)
	metrics.PosterLookups.WithLabelValues("found").Inc()
	utils.CacheSet(key, posterURL, s.cfg.CacheTTL)
	return posterURL, true
}

// Fetch 调用 TMDB 搜索接口，返回第一条结果的海报地址
func (s *PosterService) Fetch(ctx context.Context, title string) (string, error) {
	if !s.Enabled() {
		return "", ErrMissingAPIKey
	}

	result, err := s.breaker.Execute(func() (*tmdbSearchResponse, error) {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		var resp tmdbSearchResponse
		if err := s.client.GetJSON(ctx, s.searchURL(title), &resp); err != nil {
			return nil, err
		}
		return &resp, nil
	})
	if err != nil {
		return "", fmt.Errorf("tmdb search %q: %w", title, err)
	}

	if len(result.Results) == 0 || result.Results[0].PosterPath == "" {
		return "", fmt.Errorf("%w: %q", ErrPosterUnavailable, title)
	}
	return strings.TrimRight(s.cfg.ImageBaseURL, "/") + result.Results[0].PosterPath, nil
}

func (s *PosterService) searchURL(title string) string {
	q := url.Values{}
	q.Set("api_key", s.cfg.APIKey)
	q.Set("query", title)
	return strings.TrimRight(s.cfg.BaseURL, "/") + "/search/movie?" + q.Encode()
}
