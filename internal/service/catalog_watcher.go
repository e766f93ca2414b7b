package service

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/user/cinematch/internal/logging"
	"github.com/user/cinematch/internal/repository"
	"github.com/user/cinematch/internal/utils"
)

// CatalogWatcher 监听目录 CSV 文件，变化后重新加载并替换推荐引擎的目录
type CatalogWatcher struct {
	moviesPath  string
	creditsPath string
	policy      utils.TagPolicy
	recommender *Recommender
	debounce    time.Duration
	warm        bool
}

// NewCatalogWatcher 创建目录监听服务
func NewCatalogWatcher(moviesPath, creditsPath string, policy utils.TagPolicy, rec *Recommender) *CatalogWatcher {
	return &CatalogWatcher{
		moviesPath:  moviesPath,
		creditsPath: creditsPath,
		policy:      policy,
		recommender: rec,
		debounce:    time.Second,
	}
}

// WithDebounce 设置合并变更的等待时间
func (w *CatalogWatcher) WithDebounce(d time.Duration) *CatalogWatcher {
	w.debounce = d
	return w
}

// WithWarm 重新加载后立即拟合矩阵
func (w *CatalogWatcher) WithWarm(warm bool) *CatalogWatcher {
	w.warm = warm
	return w
}

// Reload 重新加载目录；失败时保留旧目录
func (w *CatalogWatcher) Reload(ctx context.Context) error {
	catalog, err := repository.LoadCatalogFiles(w.moviesPath, w.creditsPath, w.policy)
	if err != nil {
		return err
	}
	if catalog.Version() == w.recommender.Catalog().Version() {
		logging.Debug().Msg("[CatalogWatcher] 目录内容未变化")
		return nil
	}
	w.recommender.Reset(catalog)
	if w.warm {
		return w.recommender.Warm(ctx)
	}
	return nil
}

// Start 启动监听，ctx 取消后退出
func (w *CatalogWatcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	// 监听所在目录，编辑器常以重命名方式替换文件
	targets := map[string]struct{}{}
	dirs := map[string]struct{}{}
	for _, p := range []string{w.moviesPath, w.creditsPath} {
		abs, err := filepath.Abs(p)
		if err != nil {
			watcher.Close()
			return err
		}
		targets[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	go w.loop(ctx, watcher, targets)
	logging.Info().Str("movies", w.moviesPath).Str("credits", w.creditsPath).Msg("[CatalogWatcher] 开始监听目录文件")
	return nil
}

func (w *CatalogWatcher) loop(ctx context.Context, watcher *fsnotify.Watcher, targets map[string]struct{}) {
	defer watcher.Close()

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			name, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			if _, ok := targets[name]; !ok {
				continue
			}
			if !pending {
				timer.Reset(w.debounce)
				pending = true
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.Warn().Err(err).Msg("[CatalogWatcher] 监听出错")
		case <-timer.C:
			pending = false
			if err := w.Reload(ctx); err != nil {
				logging.Error().Err(err).Msg("[CatalogWatcher] 重新加载目录失败，继续使用旧目录")
			}
		}
	}
}
