package repository

import (
	"sort"
	"strconv"
	"strings"

	"github.com/user/cinematch/internal/model"
	"github.com/user/cinematch/internal/utils"
)

// Catalog 加载后不可变的电影目录，行序即向量矩阵的行序
type Catalog struct {
	movies  []model.MovieRecord
	tags    []string
	titles  map[string]int
	policy  utils.TagPolicy
	version string
}

// NewCatalog 由记录构建目录并生成标签文本
func NewCatalog(records []model.MovieRecord, policy utils.TagPolicy) *Catalog {
	c := &Catalog{
		movies: make([]model.MovieRecord, len(records)),
		tags:   make([]string, len(records)),
		titles: make(map[string]int, len(records)),
		policy: policy,
	}

	parts := make([]string, 0, len(records)*2+1)
	parts = append(parts, string(policy))
	for i, rec := range records {
		rec.Tags = utils.BuildTags(rec, policy)
		c.movies[i] = rec
		c.tags[i] = rec.Tags

		// 重名电影取第一条
		if _, ok := c.titles[rec.Title]; !ok {
			c.titles[rec.Title] = i
		}
		parts = append(parts, strconv.Itoa(rec.ID)+":"+rec.Title, rec.Tags)
	}
	c.version = utils.Digest(parts...)
	return c
}

// Len 电影数量
func (c *Catalog) Len() int { return len(c.movies) }

// At 第 i 条记录
func (c *Catalog) At(i int) model.MovieRecord { return c.movies[i] }

// All 全部记录的副本
func (c *Catalog) All() []model.MovieRecord {
	out := make([]model.MovieRecord, len(c.movies))
	copy(out, c.movies)
	return out
}

// Tags 与行序对应的标签文本
func (c *Catalog) Tags() []string {
	out := make([]string, len(c.tags))
	copy(out, c.tags)
	return out
}

// Policy 构建标签时使用的策略
func (c *Catalog) Policy() utils.TagPolicy { return c.policy }

// Version 目录内容摘要，标题或标签变化都会改变
func (c *Catalog) Version() string { return c.version }

// IndexOf 按标题精确查找行号，重名时取第一条。模糊匹配见 SearchTitles
func (c *Catalog) IndexOf(title string) (int, bool) {
	if title == "" {
		return -1, false
	}
	i, ok := c.titles[title]
	if !ok {
		return -1, false
	}
	return i, true
}

// SearchTitles 标题模糊搜索（忽略大小写的子串匹配），结果去重并按字母排序
func (c *Catalog) SearchTitles(query string, limit int) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return []string{}
	}

	seen := make(map[string]struct{})
	matches := make([]string, 0)
	for _, m := range c.movies {
		if !strings.Contains(strings.ToLower(m.Title), query) {
			continue
		}
		if _, ok := seen[m.Title]; ok {
			continue
		}
		seen[m.Title] = struct{}{}
		matches = append(matches, m.Title)
	}
	sort.Strings(matches)

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}
