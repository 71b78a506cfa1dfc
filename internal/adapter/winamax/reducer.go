package winamax

import (
	"errors"
	"maps"

	"WinamaxFeed/internal/model"

	"github.com/sirupsen/logrus"
)

// ReduceStats 一次折叠的计数，供状态接口展示
type ReduceStats struct {
	Events            int `json:"events"`
	WebsocketMessages int `json:"websocket_messages"`
	FramesApplied     int `json:"frames_applied"`
	SkippedNotFrame   int `json:"skipped_not_frame"`
	SkippedParseError int `json:"skipped_parse_error"`
	SkippedNonObject  int `json:"skipped_non_object"`
}

// Reducer 把按顺序追加的抓取日志折叠为当前状态的五张表。
// 无内部状态，可并发使用；同一日志两次折叠结果相同。
type Reducer struct {
	logger *logrus.Logger
}

// NewReducer 创建 Reducer
func NewReducer(logger *logrus.Logger) *Reducer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Reducer{logger: logger}
}

// Reduce 按日志顺序折叠所有 "m" 帧
func (r *Reducer) Reduce(events []model.RawEvent) *model.Tables {
	tables, _ := r.ReduceWithStats(events)
	return tables
}

// ReduceWithStats 同 Reduce，额外返回计数
func (r *Reducer) ReduceWithStats(events []model.RawEvent) (*model.Tables, ReduceStats) {
	tables := model.NewTables()
	stats := r.EachFrame(events, func(_ model.RawEvent, payload map[string]any) {
		Apply(tables, payload)
	})
	return tables, stats
}

// EachFrame 按顺序对每个可解析的 "m" 帧调用 fn；坏帧记录 debug 日志后跳过
func (r *Reducer) EachFrame(events []model.RawEvent, fn func(event model.RawEvent, payload map[string]any)) ReduceStats {
	stats := ReduceStats{Events: len(events)}
	for _, e := range events {
		raw, ok := FrameText(e.Event, e.Data)
		if !ok {
			continue
		}
		stats.WebsocketMessages++

		payload, err := ParseFrame(raw)
		if err != nil {
			var parseErr *ParseError
			switch {
			case errors.Is(err, ErrNotFrame):
				stats.SkippedNotFrame++
			case errors.As(err, &parseErr):
				stats.SkippedParseError++
				r.logger.WithError(err).WithField("timestamp", e.Time()).Debug("跳过无法解析的帧")
			default:
				stats.SkippedNonObject++
			}
			continue
		}
		stats.FramesApplied++
		fn(e, payload)
	}
	return stats
}

// Apply 把一个帧负载按各表的合并规则写入 tables。
// 五个键指向互不相交的表，处理顺序固定；缺失或类型不对的键跳过。
func Apply(tables *model.Tables, payload map[string]any) {
	mergeEntries(tables.Matches, payload["matches"])
	overwriteTable(tables.Odds, payload["odds"])
	mergeEntries(tables.Outcomes, payload["outcomes"])
	replaceEntries(tables.Bets, payload["bets"])
	overwriteTable(tables.Sports, payload["sports"])
}

// mergeEntries 首次出现整条插入，之后按键浅合并
func mergeEntries(table map[string]map[string]any, section any) {
	entries, ok := section.(map[string]any)
	if !ok {
		return
	}
	for id, entry := range entries {
		fields, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		existing, found := table[id]
		if !found {
			table[id] = maps.Clone(fields)
			continue
		}
		maps.Copy(existing, fields)
	}
}

// replaceEntries 同 id 的新记录整体替换旧记录
func replaceEntries(table map[string]map[string]any, section any) {
	entries, ok := section.(map[string]any)
	if !ok {
		return
	}
	for id, entry := range entries {
		if fields, ok := entry.(map[string]any); ok {
			table[id] = maps.Clone(fields)
		}
	}
}

// overwriteTable 表级覆盖：同键的值直接替换
func overwriteTable(table map[string]any, section any) {
	entries, ok := section.(map[string]any)
	if !ok {
		return
	}
	maps.Copy(table, entries)
}
