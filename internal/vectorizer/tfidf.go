package vectorizer

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/analysis/token/length"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
)

const (
	tagsAnalyzerName = "cinematch_tags"
	minLengthFilter  = "cinematch_min_len"
)

// NewTagAnalyzer 构建标签分词器：unicode 分词、小写、去掉单字符、英文停用词
func NewTagAnalyzer() (analysis.Analyzer, error) {
	m := bleve.NewIndexMapping()
	if err := m.AddCustomTokenFilter(minLengthFilter, map[string]interface{}{
		"type": length.Name,
		"min":  2.0,
	}); err != nil {
		return nil, fmt.Errorf("注册长度过滤器失败: %w", err)
	}
	if err := m.AddCustomAnalyzer(tagsAnalyzerName, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name, minLengthFilter, en.StopName},
	}); err != nil {
		return nil, fmt.Errorf("注册分词器失败: %w", err)
	}
	a := m.AnalyzerNamed(tagsAnalyzerName)
	if a == nil {
		return nil, fmt.Errorf("分词器 %s 不可用", tagsAnalyzerName)
	}
	return a, nil
}

// Lexical TF-IDF 向量化：原始词频 × 平滑 idf，行做 L2 归一化
type Lexical struct {
	analyzer analysis.Analyzer

	mu    sync.RWMutex
	state lexicalState
}

// lexicalState 一次拟合的结果
type lexicalState struct {
	vocabulary map[string]int
	terms      []string
	idf        []float64
}

// NewLexical 创建 TF-IDF 向量化器
func NewLexical() (*Lexical, error) {
	a, err := NewTagAnalyzer()
	if err != nil {
		return nil, err
	}
	return &Lexical{analyzer: a}, nil
}

func (l *Lexical) Name() string { return "tfidf" }

// Tokenize 分词
func (l *Lexical) Tokenize(text string) []string {
	stream := l.analyzer.Analyze([]byte(text))
	tokens := make([]string, 0, len(stream))
	for _, tok := range stream {
		tokens = append(tokens, string(tok.Term))
	}
	return tokens
}

// Vocabulary 拟合后的词表（按字典序）
func (l *Lexical) Vocabulary() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.terms
}

// Fit 在完整语料上拟合词表与 idf，并返回语料的 TF-IDF 矩阵
func (l *Lexical) Fit(ctx context.Context, docs []string) (Matrix, error) {
	tokenized := make([][]string, len(docs))
	df := make(map[string]int)
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tokens := l.Tokenize(doc)
		tokenized[i] = tokens
		seen := make(map[string]struct{}, len(tokens))
		for _, t := range tokens {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			df[t]++
		}
	}

	// 词表按字典序排列，保证同一语料得到同一矩阵
	terms := make([]string, 0, len(df))
	for t := range df {
		terms = append(terms, t)
	}
	sort.Strings(terms)

	n := float64(len(docs))
	vocab := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	for i, t := range terms {
		vocab[t] = i
		idf[i] = math.Log((1+n)/(1+float64(df[t]))) + 1
	}
	state := lexicalState{vocabulary: vocab, terms: terms, idf: idf}

	rows := make([]SparseVector, len(docs))
	for i, tokens := range tokenized {
		rows[i] = state.weigh(tokens)
	}

	l.mu.Lock()
	l.state = state
	l.mu.Unlock()
	return NewSparseMatrix(len(terms), rows), nil
}

// Transform 用已拟合的词表向量化新文本，词表外的词忽略
func (l *Lexical) Transform(text string) SparseVector {
	l.mu.RLock()
	state := l.state
	l.mu.RUnlock()
	return state.weigh(l.Tokenize(text))
}

func (s lexicalState) weigh(tokens []string) SparseVector {
	counts := make(map[int]float64, len(tokens))
	for _, t := range tokens {
		if idx, ok := s.vocabulary[t]; ok {
			counts[idx]++
		}
	}

	v := SparseVector{Index: make([]int, 0, len(counts)), Value: make([]float64, 0, len(counts))}
	for idx := range counts {
		v.Index = append(v.Index, idx)
	}
	sort.Ints(v.Index)

	var sum float64
	for _, idx := range v.Index {
		w := counts[idx] * s.idf[idx]
		v.Value = append(v.Value, w)
		sum += w * w
	}
	if sum > 0 {
		norm := math.Sqrt(sum)
		for k := range v.Value {
			v.Value[k] /= norm
		}
	}
	return v
}
