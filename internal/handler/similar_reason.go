package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/user/cinematch/internal/logging"
	"github.com/user/cinematch/internal/model"
	"github.com/user/cinematch/internal/service"
)

// maxTopN 单次推荐条数上限
const maxTopN = 50

// posterWorkers 并发查询海报的数量
const posterWorkers = 4

// parseTopN 解析推荐条数，缺省用配置值
func (h *Handler) parseTopN(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return h.Config.Recommend.TopN
	}
	return min(n, maxTopN)
}

// attachPosters 并发补全海报，单条失败不影响其它结果
func (h *Handler) attachPosters(ctx context.Context, recs []model.Recommendation) {
	var g errgroup.Group
	g.SetLimit(posterWorkers)
	for i := range recs {
		g.Go(func() error {
			if url, ok := h.Posters.Lookup(ctx, recs[i].Movie.Title); ok {
				recs[i].PosterURL = url
			}
			return nil
		})
	}
	g.Wait()
}

// Similar 相似电影推荐页面
func (h *Handler) Similar(c *gin.Context) {
	title := strings.TrimSpace(c.Query("title"))
	if title == "" {
		c.Redirect(http.StatusFound, "/")
		return
	}
	n := h.parseTopN(c.Query("n"))

	source, recs, err := h.Recommender.Similar(c.Request.Context(), title, n)
	if err != nil {
		if errors.Is(err, service.ErrMovieNotFound) {
			h.notFound(c, "目录中没有《"+title+"》")
			return
		}
		logging.Error().Err(err).Str("title", title).Msg("[Handler] 获取相似电影失败")
		c.HTML(http.StatusInternalServerError, "404.html", h.RenderData(c, gin.H{
			"Title":   "推荐失败 - " + h.Config.Server.SiteName,
			"Message": "推荐服务暂时不可用，请稍后再试",
		}))
		return
	}
	h.attachPosters(c.Request.Context(), recs)

	c.HTML(http.StatusOK, "similar.html", h.RenderData(c, gin.H{
		"Title":         "与《" + source.Title + "》相似的电影 - " + h.Config.Server.SiteName,
		"SourceMovie":   source,
		"SimilarMovies": recs,
		"TopN":          n,
	}))
}
