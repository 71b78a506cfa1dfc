package repository

import (
	"sync/atomic"
	"time"

	"WinamaxFeed/internal/model"
)

// SnapshotStore 持有当前快照的不可变引用，发布即原子替换。
// 读者每次查询只取一次引用，并发发布不会让一次查询看到两份快照。
type SnapshotStore struct {
	current     atomic.Pointer[model.Snapshot]
	publishedAt atomic.Int64
}

// NewSnapshotStore 创建存储；initial 为 nil 时从空快照开始
func NewSnapshotStore(initial *model.Snapshot) *SnapshotStore {
	s := &SnapshotStore{}
	s.Publish(initial)
	return s
}

// Current 返回当前快照，永不为 nil
func (s *SnapshotStore) Current() *model.Snapshot {
	if snap := s.current.Load(); snap != nil {
		return snap
	}
	return model.EmptySnapshot()
}

// Publish 替换当前快照；调用方此后不得再修改 snap
func (s *SnapshotStore) Publish(snap *model.Snapshot) {
	if snap == nil {
		snap = model.EmptySnapshot()
	}
	s.current.Store(snap)
	s.publishedAt.Store(time.Now().UnixNano())
}

// PublishedAt 最近一次发布的时间
func (s *SnapshotStore) PublishedAt() time.Time {
	ns := s.publishedAt.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}
