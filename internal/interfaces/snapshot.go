package interfaces

import (
	"context"

	"WinamaxFeed/internal/model"
)

// SnapshotSource 提供当前一致的快照引用（读者拿到的要么是旧快照要么是新快照，不会是半份）
type SnapshotSource interface {
	Current() *model.Snapshot
}

// SnapshotPublisher 原子替换当前快照
type SnapshotPublisher interface {
	Publish(snap *model.Snapshot)
}

// SnapshotArchiver 把发布过的快照归档；内容重复时返回 false
type SnapshotArchiver interface {
	Archive(ctx context.Context, snap *model.Snapshot) (bool, error)
}
