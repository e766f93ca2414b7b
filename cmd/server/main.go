package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // 确保在精简镜像中也能识别时区

	"github.com/gin-gonic/gin"

	"github.com/user/cinematch/internal/app"
	"github.com/user/cinematch/internal/config"
	"github.com/user/cinematch/internal/handler"
	"github.com/user/cinematch/internal/logging"
	"github.com/user/cinematch/internal/router"
)

func main() {
	// 加载配置（含 .env）
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("配置加载失败")
	}

	// 加载电影目录并创建推荐引擎
	a, err := app.New(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("初始化失败")
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 目录热加载
	if err := a.StartWatcher(ctx); err != nil {
		logging.Warn().Err(err).Msg("目录监听启动失败，热加载不可用")
	}

	// 后台预先拟合矩阵，首个请求不必等待
	go func() {
		if err := a.Recommender.Warm(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("矩阵预热失败，将在首次请求时重试")
		}
	}()

	// 初始化 Gin
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	h := handler.NewHandler(cfg, a.Recommender, a.Posters)
	r := router.New(h)

	srv := &http.Server{
		Addr:           ":" + cfg.Server.Port,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// 在 goroutine 中启动服务器，这样我们就可以监听信号
	go func() {
		logging.Info().Msgf("服务器启动于 http://localhost:%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatal().Err(err).Msg("服务器启动失败")
		}
	}()

	// 等待中断信号以优雅地关闭服务器
	<-ctx.Done()
	logging.Info().Msg("正在关闭服务器...")

	// 5 秒超时上下文用于关闭过程
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("服务器强制关闭")
		os.Exit(1)
	}

	logging.Info().Msg("服务器已退出")
}
