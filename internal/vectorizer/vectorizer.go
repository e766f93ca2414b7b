// Package vectorizer 把标签文本语料转成按目录顺序排列的向量矩阵。
//
// 两种策略实现同一个 Vectorizer 接口：
//   - Lexical：TF-IDF 词频加权，词表在整个语料上一次拟合
//   - Semantic：预训练句向量模型，整批编码并按内容缓存
//
// 相似度引擎只依赖 Matrix 接口，不关心具体策略。
package vectorizer

import (
	"context"
)

// Vectorizer 向量化策略
type Vectorizer interface {
	// Name 策略名称，参与缓存 key
	Name() string
	// Fit 对整个语料向量化，第 i 行对应 docs[i]
	Fit(ctx context.Context, docs []string) (Matrix, error)
}

// Matrix 向量矩阵，行与目录顺序一一对应
type Matrix interface {
	Rows() int
	Dim() int
	// Cosine 第 i 行与第 j 行的余弦相似度，零向量返回 0
	Cosine(i, j int) float64
}

// Encoder 文本向量模型
type Encoder interface {
	Model() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingCache 向量持久缓存，key 由模型名与文本内容生成
type EmbeddingCache interface {
	Get(key string) ([]float32, bool)
	Put(key string, vec []float32) error
}
