package model

import (
	"time"

	"gorm.io/datatypes"
)

// CaptureSnapshot 快照归档表，每次发布的新快照落一行（按 fingerprint 去重）
type CaptureSnapshot struct {
	ID           uint64         `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID" json:"id"`
	SnapshotUUID string         `gorm:"column:snapshot_uuid;type:varchar(64);uniqueIndex;not null;comment:全局唯一ID" json:"snapshot_uuid"`
	URL          string         `gorm:"column:url;type:varchar(512);comment:抓取页面" json:"url"`
	CapturedAt   string         `gorm:"column:captured_at;type:varchar(64);index;comment:快照时间戳原文" json:"captured_at"`
	MessageCount int            `gorm:"column:message_count;type:int;not null;default:0;comment:消息数" json:"message_count"`
	Fingerprint  string         `gorm:"column:fingerprint;type:varchar(64);uniqueIndex;not null;comment:消息内容sha256" json:"fingerprint"`
	Messages     datatypes.JSON `gorm:"column:messages;type:jsonb;not null;comment:原始消息日志" json:"-"`
	CreatedAt    time.Time      `gorm:"column:created_at;type:timestamp;default:now();comment:归档时间" json:"created_at"`
}

func (CaptureSnapshot) TableName() string { return "capture_snapshots" }
