package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/user/cinematch/internal/logging"
	"github.com/user/cinematch/internal/metrics"
	"github.com/user/cinematch/internal/model"
	"github.com/user/cinematch/internal/repository"
	"github.com/user/cinematch/internal/utils"
	"github.com/user/cinematch/internal/vectorizer"
)

// ErrMovieNotFound 目录中没有该标题
var ErrMovieNotFound = errors.New("movie not found")

// snapshot 目录与其向量矩阵，整体替换
type snapshot struct {
	catalog *repository.Catalog
	matrix  vectorizer.Matrix
}

// Recommender 基于内容相似度的推荐引擎
type Recommender struct {
	vectorizer vectorizer.Vectorizer

	mu   sync.RWMutex
	snap *snapshot

	fits  singleflight.Group
	cache *utils.SearchCache[[]model.Recommendation]
}

// NewRecommender 创建推荐引擎，矩阵在第一次推荐时拟合
func NewRecommender(catalog *repository.Catalog, v vectorizer.Vectorizer, cacheSize int, cacheTTL time.Duration) *Recommender {
	metrics.CatalogSize.Set(float64(catalog.Len()))
	return &Recommender{
		vectorizer: v,
		snap:       &snapshot{catalog: catalog},
		cache:      utils.NewSearchCache[[]model.Recommendation](cacheSize, cacheTTL),
	}
}

// Strategy 当前向量化策略名称
func (r *Recommender) Strategy() string {
	return r.vectorizer.Name()
}

// Catalog 当前目录
func (r *Recommender) Catalog() *repository.Catalog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap.catalog
}

// Reset 替换目录，旧矩阵与推荐缓存一并失效
func (r *Recommender) Reset(catalog *repository.Catalog) {
	r.mu.Lock()
	r.snap = &snapshot{catalog: catalog}
	r.mu.Unlock()

	r.cache.Clear()
	metrics.CatalogSize.Set(float64(catalog.Len()))
	logging.Info().
		Int("size", catalog.Len()).
		Str("version", catalog.Version()[:12]).
		Msg("[Recommend] 目录已替换")
}

// Warm 预先拟合矩阵
func (r *Recommender) Warm(ctx context.Context) error {
	_, _, err := r.current(ctx)
	return err
}

// Matrix 当前目录及其矩阵，必要时拟合
func (r *Recommender) Matrix(ctx context.Context) (*repository.Catalog, vectorizer.Matrix, error) {
	return r.current(ctx)
}

// current 返回当前目录与矩阵；同一目录版本的并发调用共享一次拟合
func (r *Recommender) current(ctx context.Context) (*repository.Catalog, vectorizer.Matrix, error) {
	r.mu.RLock()
	snap := r.snap
	r.mu.RUnlock()

	if snap.matrix != nil {
		return snap.catalog, snap.matrix, nil
	}

	key := r.vectorizer.Name() + ":" + snap.catalog.Version()
	val, err, _ := r.fits.Do(key, func() (interface{}, error) {
		r.mu.RLock()
		latest := r.snap
		r.mu.RUnlock()
		if latest.catalog == snap.catalog && latest.matrix != nil {
			return latest.matrix, nil
		}

		start := time.Now()
		m, err := r.vectorizer.Fit(ctx, snap.catalog.Tags())
		if err != nil {
			return nil, err
		}
		if m.Rows() != snap.catalog.Len() {
			return nil, fmt.Errorf("matrix has %d rows for %d movies", m.Rows(), snap.catalog.Len())
		}
		elapsed := time.Since(start)
		metrics.MatrixFitDuration.WithLabelValues(r.vectorizer.Name()).Observe(elapsed.Seconds())
		logging.Info().
			Str("strategy", r.vectorizer.Name()).
			Int("rows", m.Rows()).
			Int("dim", m.Dim()).
			Dur("elapsed", elapsed).
			Msg("[Recommend] 向量矩阵拟合完成")

		r.mu.Lock()
		if r.snap.catalog == snap.catalog {
			r.snap = &snapshot{catalog: snap.catalog, matrix: m}
		}
		r.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("vectorize catalog: %w", err)
	}
	return snap.catalog, val.(vectorizer.Matrix), nil
}

// Recommend 返回与 title 最相似的 topN 部电影（不含自身），按相似度降序，同分按目录顺序
func (r *Recommender) Recommend(ctx context.Context, title string, topN int) ([]model.Recommendation, error) {
	_, recs, err := r.Similar(ctx, title, topN)
	return recs, err
}

// Similar 同 Recommend，同时返回推荐所依据的源电影（与结果取自同一目录快照）
func (r *Recommender) Similar(ctx context.Context, title string, topN int) (model.MovieRecord, []model.Recommendation, error) {
	start := time.Now()
	strategy := r.vectorizer.Name()
	defer func() {
		metrics.RecommendationDuration.WithLabelValues(strategy).Observe(time.Since(start).Seconds())
	}()

	catalog := r.Catalog()
	query, ok := catalog.IndexOf(title)
	if !ok {
		metrics.RecommendationsTotal.WithLabelValues(strategy, "not_found").Inc()
		return model.MovieRecord{}, nil, fmt.Errorf("%w: %q", ErrMovieNotFound, title)
	}
	if topN <= 0 {
		metrics.RecommendationsTotal.WithLabelValues(strategy, "ok").Inc()
		return catalog.At(query), []model.Recommendation{}, nil
	}

	key := utils.Digest(strategy, catalog.Version(), strconv.Itoa(query), strconv.Itoa(topN))
	if cached, ok := r.cache.Get(key); ok {
		metrics.CacheHits.WithLabelValues("recommend").Inc()
		metrics.RecommendationsTotal.WithLabelValues(strategy, "ok").Inc()
		return catalog.At(query), cloneRecommendations(cached), nil
	}
	metrics.CacheMisses.WithLabelValues("recommend").Inc()

	current, m, err := r.current(ctx)
	if err != nil {
		metrics.RecommendationsTotal.WithLabelValues(strategy, "error").Inc()
		return model.MovieRecord{}, nil, err
	}
	// 拟合期间目录被替换时，按新目录重新定位
	if current != catalog {
		catalog = current
		if query, ok = catalog.IndexOf(title); !ok {
			metrics.RecommendationsTotal.WithLabelValues(strategy, "not_found").Inc()
			return model.MovieRecord{}, nil, fmt.Errorf("%w: %q", ErrMovieNotFound, title)
		}
		key = utils.Digest(strategy, catalog.Version(), strconv.Itoa(query), strconv.Itoa(topN))
	}

	source := catalog.At(query)
	ranked := RankSimilar(m, query, topN)
	results := make([]model.Recommendation, 0, len(ranked))
	for _, s := range ranked {
		target := catalog.At(s.Index)
		reason, reasonType, _ := GenerateRecommendationReason(source, target)
		results = append(results, model.Recommendation{
			Movie:      target,
			Score:      s.Score,
			Reason:     reason,
			ReasonType: reasonType,
		})
	}

	r.cache.Set(key, results)
	metrics.RecommendationsTotal.WithLabelValues(strategy, "ok").Inc()
	return source, cloneRecommendations(results), nil
}

// Movie 按标题查找电影
func (r *Recommender) Movie(title string) (model.MovieRecord, error) {
	catalog := r.Catalog()
	i, ok := catalog.IndexOf(title)
	if !ok {
		return model.MovieRecord{}, fmt.Errorf("%w: %q", ErrMovieNotFound, title)
	}
	return catalog.At(i), nil
}

// Search 标题模糊搜索
func (r *Recommender) Search(query string, limit int) []string {
	return r.Catalog().SearchTitles(query, limit)
}

// Scored 行号与相似度
type Scored struct {
	Index int
	Score float64
}

// RankSimilar 计算 query 行与所有行的相似度，稳定降序排序后取前 topN 个非 query 行
func RankSimilar(m vectorizer.Matrix, query, topN int) []Scored {
	if topN <= 0 || m.Rows() == 0 {
		return []Scored{}
	}

	scores := make([]Scored, m.Rows())
	for i := range scores {
		scores[i] = Scored{Index: i, Score: m.Cosine(query, i)}
	}
	sort.SliceStable(scores, func(a, b int) bool {
		return scores[a].Score > scores[b].Score
	})

	out := make([]Scored, 0, min(topN, m.Rows()-1))
	for _, s := range scores {
		if s.Index == query {
			continue
		}
		out = append(out, s)
		if len(out) == topN {
			break
		}
	}
	return out
}

func cloneRecommendations(in []model.Recommendation) []model.Recommendation {
	out := make([]model.Recommendation, len(in))
	copy(out, in)
	return out
}
