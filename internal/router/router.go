package router

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"path"
	"strings"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/multitemplate"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/user/cinematch/internal/handler"
	"github.com/user/cinematch/internal/middleware"
)

//go:embed templates
var templatesFS embed.FS

// New 创建 gin 引擎并注册中间件与路由
func New(h *handler.Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// 启用 gzip，默认压缩级别
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.Security())

	r.HTMLRender = LoadTemplates()
	RegisterRoutes(r, h)
	return r
}

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, h *handler.Handler) {
	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"movies":   h.Recommender.Catalog().Len(),
			"strategy": h.Recommender.Strategy(),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ==================== 公开页面 ====================
	r.GET("/", h.Home)
	r.GET("/movie", h.Movie)
	r.GET("/similar", h.Similar)

	// ==================== JSON API ====================
	api := r.Group("/api")
	api.Use(middleware.CORS())
	{
		api.GET("/movies/suggest", h.MovieSuggest)
		api.GET("/recommend", h.RecommendAPI)
		api.GET("/poster", h.PosterAPI)
		// 预检请求由 CORS 中间件直接应答
		api.OPTIONS("/*path", func(c *gin.Context) {})
	}

	r.NoRoute(func(c *gin.Context) {
		c.HTML(http.StatusNotFound, "404.html", h.RenderData(c, gin.H{
			"Title": "页面未找到 - " + h.Config.Server.SiteName,
		}))
	})
}

// LoadTemplates 使用 multitemplate 加载内嵌模板，解决模板继承问题
func LoadTemplates() multitemplate.Renderer {
	r := multitemplate.NewRenderer()

	layouts, err := readAll("templates/layouts")
	if err != nil {
		panic(err)
	}

	// 模板函数
	funcMap := template.FuncMap{
		"dict": func(values ...interface{}) (map[string]interface{}, error) {
			if len(values)%2 != 0 {
				return nil, fmt.Errorf("invalid dict call")
			}
			dict := make(map[string]interface{}, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict keys must be strings")
				}
				dict[key] = values[i+1]
			}
			return dict, nil
		},
		"default": func(defaultValue, value interface{}) interface{} {
			switch v := value.(type) {
			case string:
				if v == "" {
					return defaultValue
				}
			case int:
				if v == 0 {
					return defaultValue
				}
			case nil:
				return defaultValue
			}
			return value
		},
		"join": strings.Join,
		"percent": func(score float64) string {
			return fmt.Sprintf("%.0f%%", score*100)
		},
	}

	// 注册所有页面模板，布局在前、页面在后
	pages := []string{"home", "movie", "similar", "404"}
	for _, page := range pages {
		view, err := templatesFS.ReadFile("templates/pages/" + page + ".html")
		if err != nil {
			panic(err)
		}
		files := append(append([]string{}, layouts...), string(view))
		r.AddFromStringsFuncs(page+".html", funcMap, files...)
	}

	return r
}

func readAll(dir string) ([]string, error) {
	entries, err := templatesFS.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		b, err := templatesFS.ReadFile(path.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, string(b))
	}
	return out, nil
}
