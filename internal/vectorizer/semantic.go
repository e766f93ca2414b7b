package vectorizer

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/user/cinematch/internal/logging"
	"github.com/user/cinematch/internal/utils"
)

// Semantic 句向量策略，整批编码，相同文本只编码一次
type Semantic struct {
	encoder   Encoder
	cache     EmbeddingCache
	batchSize int
	workers   int
}

// NewSemantic 创建句向量向量化器，cache 可为 nil
func NewSemantic(encoder Encoder, cache EmbeddingCache, batchSize, workers int) *Semantic {
	if batchSize <= 0 {
		batchSize = 64
	}
	if workers <= 0 {
		workers = 1
	}
	return &Semantic{encoder: encoder, cache: cache, batchSize: batchSize, workers: workers}
}

func (s *Semantic) Name() string { return "embedding" }

// Model 编码模型名称
func (s *Semantic) Model() string { return s.encoder.Model() }

// Fit 编码整个语料；空文本得到零向量
func (s *Semantic) Fit(ctx context.Context, docs []string) (Matrix, error) {
	model := s.encoder.Model()
	vectors := make(map[string][]float32)
	var pending []string

	for _, doc := range docs {
		text := strings.TrimSpace(doc)
		if text == "" {
			continue
		}
		if _, ok := vectors[text]; ok {
			continue
		}
		if s.cache != nil {
			if vec, ok := s.cache.Get(utils.Digest(model, text)); ok {
				vectors[text] = vec
				continue
			}
		}
		vectors[text] = nil
		pending = append(pending, text)
	}

	if len(pending) > 0 {
		logging.Info().
			Str("model", model).
			Int("texts", len(pending)).
			Int("cached", len(vectors)-len(pending)).
			Msg("[Embedding] 开始编码语料")

		encoded, err := s.encodeBatches(ctx, pending)
		if err != nil {
			return nil, err
		}
		for i, text := range pending {
			vectors[text] = encoded[i]
			if s.cache != nil {
				if err := s.cache.Put(utils.Digest(model, text), encoded[i]); err != nil {
					logging.Warn().Err(err).Msg("[Embedding] 写入向量缓存失败")
				}
			}
		}
	}

	rows := make([][]float32, len(docs))
	for i, doc := range docs {
		rows[i] = vectors[strings.TrimSpace(doc)]
	}
	m, err := NewDenseMatrix(rows)
	if err != nil {
		return nil, fmt.Errorf("embedding dimension mismatch: %w", err)
	}
	return m, nil
}

func (s *Semantic) encodeBatches(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	var mu sync.Mutex
	for start := 0; start < len(texts); start += s.batchSize {
		end := min(start+s.batchSize, len(texts))
		batch := texts[start:end]
		offset := start
		g.Go(func() error {
			vecs, err := s.encoder.Embed(gctx, batch)
			if err != nil {
				return fmt.Errorf("encode batch %d-%d: %w", offset, offset+len(batch), err)
			}
			if len(vecs) != len(batch) {
				return fmt.Errorf("encoder returned %d vectors for %d texts", len(vecs), len(batch))
			}
			mu.Lock()
			copy(out[offset:], vecs)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
