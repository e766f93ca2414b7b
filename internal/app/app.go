// Package app 按配置组装目录、向量化策略、推荐引擎与海报服务，供 server 与 CLI 共用
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/user/cinematch/internal/config"
	"github.com/user/cinematch/internal/logging"
	"github.com/user/cinematch/internal/model"
	"github.com/user/cinematch/internal/repository"
	"github.com/user/cinematch/internal/service"
	"github.com/user/cinematch/internal/utils"
	"github.com/user/cinematch/internal/vectorizer"
)

// ErrDatabaseNotConfigured 未配置 DATABASE_URL
var ErrDatabaseNotConfigured = errors.New("database url not configured")

// App 进程内共享的组件
type App struct {
	Config      *config.Config
	Recommender *service.Recommender
	Posters     *service.PosterService
	TagPolicy   utils.TagPolicy

	embeddings *repository.EmbeddingCache
}

// New 加载目录并创建推荐引擎，矩阵延迟拟合
func New(cfg *config.Config) (*App, error) {
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	utils.InitCache()

	policy, err := utils.ParseTagPolicy(cfg.ResolvedTagPolicy())
	if err != nil {
		return nil, err
	}

	catalog, err := repository.LoadCatalogFiles(cfg.Catalog.MoviesPath, cfg.Catalog.CreditsPath, policy)
	if err != nil {
		return nil, fmt.Errorf("加载电影目录失败: %w", err)
	}

	a := &App{
		Config:    cfg,
		Posters:   service.NewPosterService(cfg.TMDB),
		TagPolicy: policy,
	}

	v, err := a.newVectorizer(cfg.Recommend.Strategy)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Recommender = service.NewRecommender(catalog, v, cfg.Recommend.CacheSize, cfg.Recommend.CacheTTL)

	if !a.Posters.Enabled() {
		logging.Warn().Msg("[App] 未配置 TMDB_API_KEY，页面将不显示海报")
	}
	logging.Info().
		Str("strategy", v.Name()).
		Str("tag_policy", string(policy)).
		Int("movies", catalog.Len()).
		Msg("[App] 推荐引擎已就绪")
	return a, nil
}

func (a *App) newVectorizer(strategy string) (vectorizer.Vectorizer, error) {
	switch strategy {
	case config.StrategyEmbedding:
		return a.Semantic()
	case config.StrategyTFIDF, "":
		return vectorizer.NewLexical()
	}
	return nil, fmt.Errorf("未知的推荐策略: %q", strategy)
}

// Semantic 句向量向量化器，向量缓存只打开一次
func (a *App) Semantic() (*vectorizer.Semantic, error) {
	ec := a.Config.Embedding
	if a.embeddings == nil {
		cache, err := repository.OpenEmbeddingCache(ec.CacheDir)
		if err != nil {
			return nil, err
		}
		a.embeddings = cache
	}
	encoder := utils.SharedOllama(ec.Host, ec.Model)
	return vectorizer.NewSemantic(encoder, a.embeddings, ec.BatchSize, ec.Workers), nil
}

// CheckEncoder 确认句向量模型可用
func (a *App) CheckEncoder(ctx context.Context) error {
	ec := a.Config.Embedding
	return utils.SharedOllama(ec.Host, ec.Model).Ready(ctx)
}

// StartWatcher 按配置启动目录热加载
func (a *App) StartWatcher(ctx context.Context) error {
	if !a.Config.Catalog.Watch {
		return nil
	}
	w := service.NewCatalogWatcher(a.Config.Catalog.MoviesPath, a.Config.Catalog.CreditsPath, a.TagPolicy, a.Recommender).
		WithWarm(true)
	return w.Start(ctx)
}

// SyncDatabase 把当前目录的句向量同步到 pgvector
func (a *App) SyncDatabase(ctx context.Context) (service.SyncResult, error) {
	if a.Config.Database.URL == "" {
		return service.SyncResult{}, ErrDatabaseNotConfigured
	}
	db, err := repository.InitDB(a.Config.Database.URL)
	if err != nil {
		return service.SyncResult{}, err
	}
	repos := repository.NewRepositories(db)
	defer repos.Close()

	sem, err := a.Semantic()
	if err != nil {
		return service.SyncResult{}, err
	}
	return service.SyncEmbeddings(ctx, repos.Movie, a.Recommender.Catalog(), sem)
}

// Nearest 在 pgvector 镜像中查询与 title 最接近的电影
func (a *App) Nearest(ctx context.Context, title string, limit int) ([]model.SimilarMovie, error) {
	if a.Config.Database.URL == "" {
		return nil, ErrDatabaseNotConfigured
	}
	movie, err := a.Recommender.Movie(title)
	if err != nil {
		return nil, err
	}
	db, err := repository.InitDB(a.Config.Database.URL)
	if err != nil {
		return nil, err
	}
	repos := repository.NewRepositories(db)
	defer repos.Close()

	return repos.Movie.FindSimilar(ctx, movie.ID, limit)
}

// Close 释放持久化资源
func (a *App) Close() error {
	if a.embeddings != nil {
		err := a.embeddings.Close()
		a.embeddings = nil
		return err
	}
	return nil
}
