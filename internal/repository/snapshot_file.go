package repository

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"WinamaxFeed/internal/model"
)

// FileVersion 快照文件的修改时间和大小，用于判断是否需要重新加载
type FileVersion struct {
	ModTime time.Time
	Size    int64
}

// StatSnapshotFile 返回文件版本；文件不存在时 exists=false 且不报错
func StatSnapshotFile(path string) (version FileVersion, exists bool, err error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return FileVersion{}, false, nil
	}
	if err != nil {
		return FileVersion{}, false, fmt.Errorf("读取快照文件信息失败: %w", err)
	}
	return FileVersion{ModTime: info.ModTime(), Size: info.Size()}, true, nil
}

// LoadSnapshotFile 读取快照文件；文件不存在时返回空快照
func LoadSnapshotFile(path string) (*model.Snapshot, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return model.EmptySnapshot(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取快照文件失败: %w", err)
	}
	return DecodeSnapshot(data)
}

// DecodeSnapshot 解析 {url, timestamp, message_count, messages} 文档
func DecodeSnapshot(data []byte) (*model.Snapshot, error) {
	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("解析快照文件失败: %w", err)
	}
	if snap.Messages == nil {
		snap.Messages = []model.RawEvent{}
	}
	return &snap, nil
}

// EncodeSnapshot 以两空格缩进输出快照，不转义 HTML 字符
func EncodeSnapshot(snap *model.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return nil, fmt.Errorf("序列化快照失败: %w", err)
	}
	return buf.Bytes(), nil
}

// SaveSnapshotFile 先写同目录临时文件再 rename，读者看不到写了一半的文件
func SaveSnapshotFile(path string, snap *model.Snapshot) error {
	data, err := EncodeSnapshot(snap)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("创建临时快照文件失败: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// rename 成功后临时文件已不存在
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("写入临时快照文件失败: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("同步临时快照文件失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("关闭临时快照文件失败: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("替换快照文件失败: %w", err)
	}
	return nil
}
