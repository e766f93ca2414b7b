package service

import (
	"context"
	"fmt"

	"github.com/user/cinematch/internal/logging"
	"github.com/user/cinematch/internal/model"
	"github.com/user/cinematch/internal/repository"
	"github.com/user/cinematch/internal/vectorizer"
)

// EmbeddingStore pgvector 镜像的写入接口
type EmbeddingStore interface {
	Upsert(ctx context.Context, rows []model.MovieEmbedding) error
	DeleteMissing(ctx context.Context, keepIDs []int) (int64, error)
}

// SyncResult 同步统计
type SyncResult struct {
	Upserted int   `json:"upserted"`
	Skipped  int   `json:"skipped"`
	Deleted  int64 `json:"deleted"`
}

// SyncEmbeddings 把目录中每部电影的句向量写入 pgvector 镜像，并删除目录中已不存在的电影。
// 标签为空的电影没有有效向量，不写入。
func SyncEmbeddings(ctx context.Context, store EmbeddingStore, catalog *repository.Catalog, sem *vectorizer.Semantic) (SyncResult, error) {
	var result SyncResult

	m, err := sem.Fit(ctx, catalog.Tags())
	if err != nil {
		return result, fmt.Errorf("vectorize catalog: %w", err)
	}
	dense, ok := m.(*vectorizer.DenseMatrix)
	if !ok {
		return result, fmt.Errorf("unexpected matrix type %T", m)
	}

	rows := make([]model.MovieEmbedding, 0, catalog.Len())
	keep := make([]int, 0, catalog.Len())
	for i := 0; i < catalog.Len(); i++ {
		movie := catalog.At(i)
		if movie.Tags == "" {
			result.Skipped++
			continue
		}
		rows = append(rows, repository.NewMovieEmbedding(movie, sem.Model(), dense.Row(i)))
		keep = append(keep, movie.ID)
	}

	if err := store.Upsert(ctx, rows); err != nil {
		return result, err
	}
	result.Upserted = len(rows)

	deleted, err := store.DeleteMissing(ctx, keep)
	if err != nil {
		return result, fmt.Errorf("清理过期电影失败: %w", err)
	}
	result.Deleted = deleted

	logging.Info().
		Str("model", sem.Model()).
		Int("upserted", result.Upserted).
		Int("skipped", result.Skipped).
		Int64("deleted", result.Deleted).
		Msg("[Sync] pgvector 镜像同步完成")
	return result, nil
}
