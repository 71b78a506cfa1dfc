package service

import (
	"context"
	"time"

	"WinamaxFeed/internal/interfaces"
	"WinamaxFeed/internal/model"
	"WinamaxFeed/internal/repository"

	"github.com/sirupsen/logrus"
)

// SnapshotRefresher 定时检查快照文件（修改时间 + 大小），变化后重新加载并原子发布。
// 文件被删除时发布空快照。
// 归档只在文件稳定（一个轮询周期内没有变化）、文件被删除或退出时进行，
// 录制中不断增长的日志只归档最后一版。
type SnapshotRefresher struct {
	path      string
	interval  time.Duration
	publisher interfaces.SnapshotPublisher
	archiver  interfaces.SnapshotArchiver
	logger    *logrus.Logger

	last    repository.FileVersion
	present bool
	loaded  bool
	pending *model.Snapshot // 已发布但尚未归档的快照
}

// NewSnapshotRefresher archiver 可为 nil（未启用数据库）
func NewSnapshotRefresher(path string, interval time.Duration, publisher interfaces.SnapshotPublisher, archiver interfaces.SnapshotArchiver, logger *logrus.Logger) *SnapshotRefresher {
	return &SnapshotRefresher{
		path:      path,
		interval:  interval,
		publisher: publisher,
		archiver:  archiver,
		logger:    logger,
	}
}

// Refresh 检查一次文件，有变化则发布；返回是否发布了新快照
func (r *SnapshotRefresher) Refresh(ctx context.Context) (bool, error) {
	version, exists, err := repository.StatSnapshotFile(r.path)
	if err != nil {
		return false, err
	}
	if !exists {
		if r.loaded && !r.present {
			return false, nil
		}
		r.archivePending(ctx)
		r.loaded, r.present, r.last = true, false, repository.FileVersion{}
		r.publisher.Publish(model.EmptySnapshot())
		r.logger.WithField("path", r.path).Warn("快照文件不存在，使用空快照")
		return true, nil
	}
	if r.loaded && r.present && version.ModTime.Equal(r.last.ModTime) && version.Size == r.last.Size {
		r.archivePending(ctx)
		return false, nil
	}

	snap, err := repository.LoadSnapshotFile(r.path)
	if err != nil {
		return false, err
	}
	r.publisher.Publish(snap)
	r.loaded, r.present, r.last = true, true, version
	r.logger.WithFields(logrus.Fields{
		"path":     r.path,
		"messages": len(snap.Messages),
		"size":     version.Size,
	}).Info("快照已重新加载")

	r.pending = snap
	return true, nil
}

// Run 按间隔轮询直到 ctx 结束；interval <= 0 时不轮询
func (r *SnapshotRefresher) Run(ctx context.Context) error {
	if r.interval <= 0 {
		r.archivePending(ctx)
		return nil
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// 退出前归档最后一版
			r.archivePending(context.WithoutCancel(ctx))
			return nil
		case <-ticker.C:
			if _, err := r.Refresh(ctx); err != nil {
				// 保留旧快照，下次再试
				r.logger.WithError(err).WithField("path", r.path).Warn("重新加载快照失败")
			}
		}
	}
}

// archivePending 归档尚未归档的快照；失败时保留，下次再试
func (r *SnapshotRefresher) archivePending(ctx context.Context) {
	snap := r.pending
	if snap == nil {
		return
	}
	if r.archiver == nil || len(snap.Messages) == 0 {
		r.pending = nil
		return
	}
	inserted, err := r.archiver.Archive(ctx, snap)
	if err != nil {
		r.logger.WithError(err).Warn("快照归档失败")
		return
	}
	r.pending = nil
	if inserted {
		r.logger.WithField("messages", len(snap.Messages)).Info("快照已归档")
	}
}
