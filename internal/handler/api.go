package handler

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/user/cinematch/internal/logging"
	"github.com/user/cinematch/internal/service"
	"github.com/user/cinematch/internal/utils"
)

type suggestQuery struct {
	Keyword string `form:"kw" binding:"required"`
	Limit   int    `form:"limit" binding:"omitempty,min=1,max=50"`
}

// MovieSuggest 搜索建议
func (h *Handler) MovieSuggest(c *gin.Context) {
	var q suggestQuery
	if err := c.ShouldBindQuery(&q); err != nil || strings.TrimSpace(q.Keyword) == "" {
		utils.BadRequest(c, "搜索关键词不能为空，limit 范围 1-50")
		return
	}
	if q.Limit == 0 {
		q.Limit = 10
	}

	utils.Success(c, h.Recommender.Search(q.Keyword, q.Limit))
}

type recommendQuery struct {
	Title   string `form:"title" binding:"required"`
	N       int    `form:"n" binding:"omitempty,min=1,max=50"`
	Posters bool   `form:"posters"`
}

// RecommendAPI 相似电影 JSON 接口
func (h *Handler) RecommendAPI(c *gin.Context) {
	var q recommendQuery
	if err := c.ShouldBindQuery(&q); err != nil || strings.TrimSpace(q.Title) == "" {
		utils.BadRequest(c, "title 不能为空，n 范围 1-50")
		return
	}
	if q.N == 0 {
		q.N = h.Config.Recommend.TopN
	}

	source, recs, err := h.Recommender.Similar(c.Request.Context(), q.Title, q.N)
	if err != nil {
		if errors.Is(err, service.ErrMovieNotFound) {
			utils.NotFound(c, "电影不存在")
			return
		}
		logging.Error().Err(err).Str("title", q.Title).Msg("[API] 推荐失败")
		utils.InternalServerError(c, "推荐服务暂时不可用")
		return
	}
	if q.Posters {
		h.attachPosters(c.Request.Context(), recs)
	}

	utils.Success(c, gin.H{
		"movie":           source,
		"strategy":        h.Recommender.Strategy(),
		"recommendations": recs,
	})
}

// PosterAPI 海报查询
func (h *Handler) PosterAPI(c *gin.Context) {
	title := strings.TrimSpace(c.Query("title"))
	if title == "" {
		utils.BadRequest(c, "title 不能为空")
		return
	}

	url, ok := h.Posters.Lookup(c.Request.Context(), title)
	if !ok {
		utils.NotFound(c, NoPosterText)
		return
	}
	utils.Success(c, gin.H{"title": title, "poster_url": url})
}
