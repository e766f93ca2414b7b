package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/user/cinematch/internal/model"
)

// upsertBatchSize 每批写入的行数
const upsertBatchSize = 200

type MovieRepository struct {
	db *gorm.DB
}

func NewMovieRepository(db *gorm.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

// NewMovieEmbedding 由目录记录与向量构建镜像行
func NewMovieEmbedding(m model.MovieRecord, modelName string, vec []float32) model.MovieEmbedding {
	return model.MovieEmbedding{
		MovieID:   m.ID,
		Title:     m.Title,
		Genres:    pq.StringArray(m.Genres),
		Model:     modelName,
		Tags:      m.Tags,
		Embedding: pgvector.NewVector(vec),
		UpdatedAt: time.Now(),
	}
}

// Upsert 创建或更新镜像行，按 movie_id 冲突时整行覆盖
func (r *MovieRepository) Upsert(ctx context.Context, rows []model.MovieEmbedding) error {
	if len(rows) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "movie_id"}},
			UpdateAll: true,
		}).
		CreateInBatches(rows, upsertBatchSize).Error
	if err != nil {
		return fmt.Errorf("写入电影向量失败: %w", err)
	}
	return nil
}

// FindByID 根据电影 ID 查找，不存在时返回 nil
func (r *MovieRepository) FindByID(ctx context.Context, movieID int) (*model.MovieEmbedding, error) {
	var row model.MovieEmbedding
	err := r.db.WithContext(ctx).Where("movie_id = ?", movieID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// FindSimilar 按余弦距离查找最近邻，排除自身；score 为 1 - 距离
func (r *MovieRepository) FindSimilar(ctx context.Context, movieID, limit int) ([]model.SimilarMovie, error) {
	source, err := r.FindByID(ctx, movieID)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return []model.SimilarMovie{}, nil
	}

	var results []model.SimilarMovie
	err = r.db.WithContext(ctx).
		Model(&model.MovieEmbedding{}).
		Select("movie_id, title, 1 - (embedding <=> ?) AS score", source.Embedding).
		Where("movie_id <> ? AND model = ?", movieID, source.Model).
		Clauses(clause.OrderBy{
			Expression: clause.Expr{SQL: "embedding <=> ?, movie_id", Vars: []interface{}{source.Embedding}},
		}).
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("查询相似电影失败: %w", err)
	}
	return results, nil
}

// Count 镜像行数
func (r *MovieRepository) Count(ctx context.Context, modelName string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.MovieEmbedding{}).Where("model = ?", modelName).Count(&n).Error
	return n, err
}

// DeleteMissing 删除目录中已不存在的电影
func (r *MovieRepository) DeleteMissing(ctx context.Context, keepIDs []int) (int64, error) {
	q := r.db.WithContext(ctx)
	if len(keepIDs) > 0 {
		q = q.Where("movie_id NOT IN ?", keepIDs)
	} else {
		q = q.Where("1 = 1")
	}
	res := q.Delete(&model.MovieEmbedding{})
	return res.RowsAffected, res.Error
}
