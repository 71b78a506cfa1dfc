package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"WinamaxFeed/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNoArchivedSnapshot 归档表为空
var ErrNoArchivedSnapshot = errors.New("no archived snapshot")

// SnapshotRepository 快照归档仓储
type SnapshotRepository interface {
	// Archive 写入一份快照；相同消息内容（fingerprint）已存在时不写入并返回 false
	Archive(ctx context.Context, snap *model.Snapshot) (bool, error)
	// Latest 最近归档的一份完整快照
	Latest(ctx context.Context) (*model.Snapshot, error)
	// List 分页列出归档元数据（不含消息体）
	List(ctx context.Context, page, pageSize int) ([]*model.CaptureSnapshot, int64, error)
}

type snapshotRepository struct {
	db *gorm.DB
}

func NewSnapshotRepository(db *gorm.DB) SnapshotRepository {
	return &snapshotRepository{db: db}
}

// Fingerprint 消息日志的 sha256，用于归档去重
func Fingerprint(messages []model.RawEvent) (string, []byte, error) {
	if messages == nil {
		messages = []model.RawEvent{}
	}
	body, err := json.Marshal(messages)
	if err != nil {
		return "", nil, fmt.Errorf("序列化消息日志失败: %w", err)
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:]), body, nil
}

func (r *snapshotRepository) Archive(ctx context.Context, snap *model.Snapshot) (bool, error) {
	fp, body, err := Fingerprint(snap.Messages)
	if err != nil {
		return false, err
	}
	row := &model.CaptureSnapshot{
		SnapshotUUID: uuid.New().String(),
		URL:          snap.URL,
		CapturedAt:   snap.Timestamp,
		MessageCount: snap.MessageCount,
		Fingerprint:  fp,
		Messages:     datatypes.JSON(body),
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "fingerprint"}},
		DoNothing: true,
	}).Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *snapshotRepository) Latest(ctx context.Context) (*model.Snapshot, error) {
	var row model.CaptureSnapshot
	if err := r.db.WithContext(ctx).Order("id DESC").First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoArchivedSnapshot
		}
		return nil, err
	}
	return snapshotFromRow(&row)
}

func (r *snapshotRepository) List(ctx context.Context, page, pageSize int) ([]*model.CaptureSnapshot, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	db := r.db.WithContext(ctx).Model(&model.CaptureSnapshot{})
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []*model.CaptureSnapshot
	if err := db.Omit("messages").Order("id DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func snapshotFromRow(row *model.CaptureSnapshot) (*model.Snapshot, error) {
	snap := &model.Snapshot{
		URL:          row.URL,
		Timestamp:    row.CapturedAt,
		MessageCount: row.MessageCount,
	}
	if err := json.Unmarshal(row.Messages, &snap.Messages); err != nil {
		return nil, fmt.Errorf("解析归档消息失败: %w", err)
	}
	if snap.Messages == nil {
		snap.Messages = []model.RawEvent{}
	}
	return snap, nil
}
