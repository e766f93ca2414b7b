package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/user/cinematch/internal/config"
	"github.com/user/cinematch/internal/logging"
	"github.com/user/cinematch/internal/service"
)

// 页面占位文案
const (
	NoOverviewText = "暂无电影简介"
	NoPosterText   = "找不到电影图片"
)

// searchPageLimit 首页搜索结果条数上限
const searchPageLimit = 50

// PosterLookup 海报查询，失败时返回 ("", false)
type PosterLookup interface {
	Lookup(ctx context.Context, title string) (string, bool)
}

// Handler HTTP 处理器
type Handler struct {
	Config      *config.Config
	Recommender *service.Recommender
	Posters     PosterLookup
}

// NewHandler 创建处理器
func NewHandler(cfg *config.Config, rec *service.Recommender, posters PosterLookup) *Handler {
	return &Handler{
		Config:      cfg,
		Recommender: rec,
		Posters:     posters,
	}
}

// RenderData 统一封装公共渲染数据
func (h *Handler) RenderData(c *gin.Context, data gin.H) gin.H {
	res := gin.H{
		"SiteName":     h.Config.Server.SiteName,
		"Path":         c.Request.URL.Path,
		"Strategy":     h.Recommender.Strategy(),
		"NoPosterText": NoPosterText,
	}
	for k, v := range data {
		res[k] = v
	}
	return res
}

func (h *Handler) notFound(c *gin.Context, message string) {
	c.HTML(http.StatusNotFound, "404.html", h.RenderData(c, gin.H{
		"Title":   "电影未找到 - " + h.Config.Server.SiteName,
		"Message": message,
	}))
}

// ==================== 公开页面 ====================

// Home 首页，带 q 参数时列出匹配的片名
func (h *Handler) Home(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	var results []string
	if query != "" {
		results = h.Recommender.Search(query, searchPageLimit)
	}

	c.HTML(http.StatusOK, "home.html", h.RenderData(c, gin.H{
		"Title":   h.Config.Server.SiteName + " - 相似电影推荐",
		"Query":   query,
		"Results": results,
		"TopN":    h.Config.Recommend.TopN,
	}))
}

// Movie 电影详情页
func (h *Handler) Movie(c *gin.Context) {
	title := strings.TrimSpace(c.Query("title"))
	if title == "" {
		c.Redirect(http.StatusFound, "/")
		return
	}

	movie, err := h.Recommender.Movie(title)
	if err != nil {
		if !errors.Is(err, service.ErrMovieNotFound) {
			logging.Error().Err(err).Str("title", title).Msg("[Handler] 查询电影失败")
		}
		h.notFound(c, "目录中没有《"+title+"》")
		return
	}

	posterURL, _ := h.Posters.Lookup(c.Request.Context(), movie.Title)
	overview := movie.Overview
	if overview == "" {
		overview = NoOverviewText
	}

	c.HTML(http.StatusOK, "movie.html", h.RenderData(c, gin.H{
		"Title":     movie.Title + " - " + h.Config.Server.SiteName,
		"Movie":     movie,
		"Overview":  overview,
		"PosterURL": posterURL,
		"TopN":      h.Config.Recommend.TopN,
	}))
}
