package model

import (
	"encoding/json"
	"strings"
	"time"
)

// 抓取脚本注入页面后记录的事件类型
const (
	EventWebsocketMessage = "websocket_message"
	EventWebsocketOpen    = "websocket_open"
	EventWebsocketClose   = "websocket_close"
)

// RawEvent 抓取日志中的单条事件，按抓取顺序追加，不可修改。
// data 保留原始 JSON（对象 / {raw: string} / 数组 均可能出现）；
// CDP 日志条目使用 method/params 而非 event/data，时间戳为数字，也原样保留。
type RawEvent struct {
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
	Event     string          `json:"event,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Method    string          `json:"method,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
}

// NewRawEvent 构造一条事件，data 会被序列化为 JSON
func NewRawEvent(ts time.Time, event string, data any) (RawEvent, error) {
	stamp, err := json.Marshal(ts.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return RawEvent{}, err
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return RawEvent{}, err
	}
	return RawEvent{Timestamp: stamp, Event: event, Data: payload}, nil
}

// Time 返回时间戳文本（字符串去掉引号，数字原样）
func (e RawEvent) Time() string {
	var s string
	if err := json.Unmarshal(e.Timestamp, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(e.Timestamp))
}

// Kind 返回事件类型，CDP 条目退回到 method
func (e RawEvent) Kind() string {
	if e.Event != "" {
		return e.Event
	}
	if e.Method != "" {
		return e.Method
	}
	return "unknown"
}

// Snapshot 一次抓取落盘的完整日志 {url, timestamp, message_count, messages}。
// 发布后视为只读，读者持有引用期间不会被修改。
type Snapshot struct {
	URL          string     `json:"url"`
	Timestamp    string     `json:"timestamp"`
	MessageCount int        `json:"message_count"`
	Messages     []RawEvent `json:"messages"`
}

// EmptySnapshot 快照文件不存在时使用的空日志
func EmptySnapshot() *Snapshot {
	return &Snapshot{Messages: []RawEvent{}}
}
