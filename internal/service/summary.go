package service

import (
	"context"
	"encoding/json"
	"sort"

	"WinamaxFeed/internal/model"
)

// 热门选项最多返回条数
const hotOutcomeLimit = 10

// EventCount 某类事件的条数
type EventCount struct {
	Event string `json:"event"`
	Count int    `json:"count"`
}

// KeyCount 帧负载顶层键出现的帧数
type KeyCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// SportOverview 首个 sports 帧中的运动概况
type SportOverview struct {
	SportID        string `json:"sport_id"`
	MainMatchCount any    `json:"main_match_count,omitempty"`
	ListedMatches  int    `json:"listed_matches"`
}

// HotOutcome 某帧中 hotUsers 非零的选项
type HotOutcome struct {
	OutcomeID string `json:"outcome_id"`
	HotUsers  any    `json:"hot_users"`
	Timestamp string `json:"timestamp"`
}

// SummaryResult 抓取日志分析
type SummaryResult struct {
	URL                  string          `json:"url"`
	Timestamp            string          `json:"timestamp"`
	MessageCount         int             `json:"message_count"`
	WebsocketURL         string          `json:"websocket_url,omitempty"`
	EventCounts          []EventCount    `json:"event_counts"`
	ParsedFrames         int             `json:"parsed_frames"`
	TopLevelKeys         []KeyCount      `json:"top_level_keys"`
	Sports               []SportOverview `json:"sports"`
	MatchUpdateFrames    int             `json:"match_update_frames"`
	UniqueMatchesUpdated int             `json:"unique_matches_updated"`
	OddsUpdateFrames     int             `json:"odds_update_frames"`
	TotalOddsUpdates     int             `json:"total_odds_updates"`
	HotOutcomesTracked   int             `json:"hot_outcomes_tracked"`
	TopHotOutcomes       []HotOutcome    `json:"top_hot_outcomes"`
}

// Summary 统计当前快照：事件类型分布、帧结构、比赛/赔率更新量和最热门的选项
func (s *MatchService) Summary(ctx context.Context) (*SummaryResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap := s.source.Current()
	res := &SummaryResult{
		URL:          snap.URL,
		Timestamp:    snap.Timestamp,
		MessageCount: snap.MessageCount,
		EventCounts:  countEvents(snap.Messages),
		Sports:       []SportOverview{},
	}
	res.WebsocketURL = websocketURL(snap.Messages)

	keyCounts := make(map[string]int)
	updatedMatches := make(map[string]struct{})
	var hot []HotOutcome
	sportsSeen := false

	stats := s.reducer.EachFrame(snap.Messages, func(e model.RawEvent, payload map[string]any) {
		for k := range payload {
			keyCounts[k]++
		}

		sports, hasSports := payload["sports"].(map[string]any)
		if hasSports && !sportsSeen {
			sportsSeen = true
			res.Sports = sportOverview(sports)
		}
		if matches, ok := payload["matches"].(map[string]any); ok && !hasSports {
			res.MatchUpdateFrames++
			for id := range matches {
				updatedMatches[id] = struct{}{}
			}
		}
		if odds, ok := payload["odds"].(map[string]any); ok {
			res.OddsUpdateFrames++
			res.TotalOddsUpdates += len(odds)
		}
		if outcomes, ok := payload["outcomes"].(map[string]any); ok {
			ids := make([]string, 0, len(outcomes))
			for id := range outcomes {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				fields, ok := outcomes[id].(map[string]any)
				if !ok {
					continue
				}
				if users, ok := fields["hotUsers"]; ok && truthy(users) {
					hot = append(hot, HotOutcome{OutcomeID: id, HotUsers: users, Timestamp: e.Time()})
				}
			}
		}
	})

	res.ParsedFrames = stats.FramesApplied
	res.TopLevelKeys = make([]KeyCount, 0, len(keyCounts))
	for k, n := range keyCounts {
		res.TopLevelKeys = append(res.TopLevelKeys, KeyCount{Key: k, Count: n})
	}
	sort.Slice(res.TopLevelKeys, func(i, j int) bool { return res.TopLevelKeys[i].Key < res.TopLevelKeys[j].Key })
	res.UniqueMatchesUpdated = len(updatedMatches)

	// 非整数的 hotUsers 按 0 排序
	sort.SliceStable(hot, func(i, j int) bool { return hotRank(hot[i].HotUsers) > hotRank(hot[j].HotUsers) })
	res.HotOutcomesTracked = len(hot)
	if len(hot) > hotOutcomeLimit {
		hot = hot[:hotOutcomeLimit]
	}
	res.TopHotOutcomes = append([]HotOutcome{}, hot...)
	return res, nil
}

// countEvents 按条数降序，条数相同按首次出现顺序
func countEvents(events []model.RawEvent) []EventCount {
	counts := make(map[string]int)
	var order []string
	for _, e := range events {
		kind := e.Kind()
		if _, ok := counts[kind]; !ok {
			order = append(order, kind)
		}
		counts[kind]++
	}
	out := make([]EventCount, 0, len(order))
	for _, kind := range order {
		out = append(out, EventCount{Event: kind, Count: counts[kind]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// websocketURL 第一条 websocket_open 事件里的地址
func websocketURL(events []model.RawEvent) string {
	for _, e := range events {
		if e.Event != model.EventWebsocketOpen {
			continue
		}
		var open struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(e.Data, &open); err == nil {
			return open.URL
		}
	}
	return ""
}

func sportOverview(sports map[string]any) []SportOverview {
	ids := make([]string, 0, len(sports))
	for id := range sports {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]SportOverview, 0, len(ids))
	for _, id := range ids {
		info, _ := sports[id].(map[string]any)
		listed, _ := info["matches"].([]any)
		out = append(out, SportOverview{SportID: id, MainMatchCount: info["mainMatchCount"], ListedMatches: len(listed)})
	}
	return out
}

func hotRank(v any) int64 {
	n, ok := v.(json.Number)
	if !ok {
		return 0
	}
	i, err := n.Int64()
	if err != nil {
		return 0
	}
	return i
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case json.Number:
		f, err := x.Float64()
		return err != nil || f != 0
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		return true
	}
}
