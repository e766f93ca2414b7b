package vectorizer

import (
	"fmt"
	"math"
)

// CosineDense 稠密向量余弦相似度，长度不同或任一为零向量时返回 0
func CosineDense(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// SparseVector 稀疏向量，Index 严格递增
type SparseVector struct {
	Index []int
	Value []float64
}

// Norm L2 范数
func (v SparseVector) Norm() float64 {
	var sum float64
	for _, x := range v.Value {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// CosineSparse 稀疏向量余弦相似度（归并求交），零向量返回 0
func CosineSparse(a, b SparseVector) float64 {
	na, nb := a.Norm(), b.Norm()
	if na == 0 || nb == 0 {
		return 0
	}
	return sparseDot(a, b) / (na * nb)
}

func sparseDot(a, b SparseVector) float64 {
	var dot float64
	i, j := 0, 0
	for i < len(a.Index) && j < len(b.Index) {
		switch {
		case a.Index[i] == b.Index[j]:
			dot += a.Value[i] * b.Value[j]
			i++
			j++
		case a.Index[i] < b.Index[j]:
			i++
		default:
			j++
		}
	}
	return dot
}

// DenseMatrix 稠密矩阵（句向量）
type DenseMatrix struct {
	dim   int
	rows  [][]float32
	norms []float64
}

// NewDenseMatrix 所有行维度必须一致；零向量行允许为空切片
func NewDenseMatrix(rows [][]float32) (*DenseMatrix, error) {
	dim := 0
	for _, r := range rows {
		if len(r) > 0 {
			dim = len(r)
			break
		}
	}

	m := &DenseMatrix{dim: dim, rows: make([][]float32, len(rows)), norms: make([]float64, len(rows))}
	for i, r := range rows {
		if len(r) == 0 {
			r = make([]float32, dim)
		}
		if len(r) != dim {
			return nil, fmt.Errorf("第 %d 行维度为 %d，期望 %d", i, len(r), dim)
		}
		var sum float64
		for _, x := range r {
			sum += float64(x) * float64(x)
		}
		m.rows[i] = r
		m.norms[i] = math.Sqrt(sum)
	}
	return m, nil
}

func (m *DenseMatrix) Rows() int { return len(m.rows) }
func (m *DenseMatrix) Dim() int  { return m.dim }

// Row 返回第 i 行（只读）
func (m *DenseMatrix) Row(i int) []float32 { return m.rows[i] }

func (m *DenseMatrix) Cosine(i, j int) float64 {
	if m.norms[i] == 0 || m.norms[j] == 0 {
		return 0
	}
	a, b := m.rows[i], m.rows[j]
	var dot float64
	for k := range a {
		dot += float64(a[k]) * float64(b[k])
	}
	return dot / (m.norms[i] * m.norms[j])
}

// SparseMatrix 稀疏矩阵（TF-IDF）
type SparseMatrix struct {
	dim   int
	rows  []SparseVector
	norms []float64
}

// NewSparseMatrix 由稀疏行构建矩阵
func NewSparseMatrix(dim int, rows []SparseVector) *SparseMatrix {
	m := &SparseMatrix{dim: dim, rows: rows, norms: make([]float64, len(rows))}
	for i, r := range rows {
		m.norms[i] = r.Norm()
	}
	return m
}

func (m *SparseMatrix) Rows() int { return len(m.rows) }
func (m *SparseMatrix) Dim() int  { return m.dim }

// Row 返回第 i 行（只读）
func (m *SparseMatrix) Row(i int) SparseVector { return m.rows[i] }

func (m *SparseMatrix) Cosine(i, j int) float64 {
	if m.norms[i] == 0 || m.norms[j] == 0 {
		return 0
	}
	return sparseDot(m.rows[i], m.rows[j]) / (m.norms[i] * m.norms[j])
}
