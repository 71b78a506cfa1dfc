package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"WinamaxFeed/internal/adapter/winamax"
	"WinamaxFeed/internal/api"
	"WinamaxFeed/internal/config"
	"WinamaxFeed/internal/interfaces"
	"WinamaxFeed/internal/listener"
	"WinamaxFeed/internal/repository"
	"WinamaxFeed/internal/service"
	applog "WinamaxFeed/internal/utils/logger"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	// 1. 加载配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("加载配置文件失败: %v", err)
	}

	// 2. 初始化日志
	logger, err := applog.New(cfg.Log)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	logger.Info("配置文件加载成功")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Fatal("服务异常退出")
	}
	logger.Info("服务已退出")
}

func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	// 3. 快照存储：启动时先发布空快照，查询永远有一致的引用可读
	store := repository.NewSnapshotStore(nil)

	// 4. 可选：PostgreSQL 快照归档
	var (
		archiver     interfaces.SnapshotArchiver
		snapshotRepo repository.SnapshotRepository
	)
	if cfg.Database.Enabled {
		db, err := repository.OpenDB(ctx, cfg.Database, logger)
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}
		snapshotRepo = repository.NewSnapshotRepository(db)
		archiver = snapshotRepo
	}

	// 5. 加载快照文件；文件不存在时可用最近一次归档初始化
	refresher := service.NewSnapshotRefresher(cfg.Snapshot.Path, cfg.Snapshot.ReloadInterval, store, archiver, logger)
	if _, err := refresher.Refresh(ctx); err != nil {
		logger.WithError(err).WithField("path", cfg.Snapshot.Path).Warn("加载快照文件失败，使用空快照")
	}
	if snapshotRepo != nil && cfg.Database.SeedOnStart && len(store.Current().Messages) == 0 {
		snap, err := snapshotRepo.Latest(ctx)
		switch {
		case err == nil:
			store.Publish(snap)
			logger.WithField("messages", len(snap.Messages)).Info("已用最近一次归档初始化快照")
		case errors.Is(err, repository.ErrNoArchivedSnapshot):
			logger.Info("归档表为空，从空快照开始")
		default:
			logger.WithError(err).Warn("读取最近归档失败")
		}
	}

	// 6. 查询服务与路由
	gin.SetMode(cfg.Server.Mode)
	logger.Infof("Gin运行模式: %s", cfg.Server.Mode)

	matchService := service.NewMatchService(store, winamax.NewReducer(logger), logger, cfg.Server.Name)
	handlers := api.Handlers{
		Matches: api.NewMatchHandler(matchService, logger),
		Info:    api.NewInfoHandler(matchService, logger, snapshotRepo != nil),
	}
	if snapshotRepo != nil {
		handlers.Snapshots = api.NewSnapshotHandler(snapshotRepo, logger)
	}
	r := api.NewRouter(cfg, logger, handlers)

	// 7. 后台任务与 HTTP 服务共用一个 errgroup，收到 SIGINT/SIGTERM 后一起退出
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return refresher.Run(gctx) })
	if cfg.Recorder.Enabled {
		recorder := listener.NewFeedSubscriber(cfg.Recorder, cfg.Snapshot.Path, store, logger)
		g.Go(func() error {
			if err := recorder.Run(gctx); err != nil {
				return fmt.Errorf("录制器退出: %w", err)
			}
			return nil
		})
		logger.WithField("url", cfg.Recorder.URL).Info("websocket 录制器已启动")
	}
	g.Go(func() error { return serveHTTP(gctx, cfg.Server, r, logger) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// serveHTTP 启动服务直到 ctx 结束，然后在 shutdown_timeout 内优雅关闭
func serveHTTP(ctx context.Context, cfg config.ServerConfig, handler http.Handler, logger *logrus.Logger) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Infof("服务启动成功，端口：%d", cfg.Port)
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("关闭HTTP服务失败: %w", err)
		}
		<-serverErr
		return nil
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("启动服务失败: %w", err)
		}
		return nil
	}
}
