package service

import (
	"context"
	"errors"
	"maps"
	"sort"
	"strings"
	"time"

	"WinamaxFeed/internal/adapter/winamax"
	"WinamaxFeed/internal/interfaces"
	"WinamaxFeed/internal/model"

	"github.com/sirupsen/logrus"
)

// ErrMatchNotFound 指定 matchId 不存在
var ErrMatchNotFound = errors.New("match not found")

// MatchFilter 列表筛选条件，nil / 空串表示不过滤
type MatchFilter struct {
	SportID   *int64   // Match.sportId 精确匹配
	Date      string   // DD-MM-YYYY，按 UTC 开赛日期
	MoreThan  *float64 // 主客队赔率都严格大于该值
	AnyoneHas *float64 // 主/平/客任一赔率落在 [v, v+0.09]
}

// MatchListResult 精简列表返回
type MatchListResult struct {
	Success        bool             `json:"success"`
	Matches        []map[string]any `json:"matches"`
	Count          int              `json:"count"`
	IgnoredFilters []string         `json:"ignored_filters,omitempty"`
}

// VerboseMatchListResult 完整列表返回
type VerboseMatchListResult struct {
	Success        bool             `json:"success"`
	Matches        []map[string]any `json:"matches"`
	Count          int              `json:"count"`
	TotalOdds      int              `json:"total_odds"`
	TotalOutcomes  int              `json:"total_outcomes"`
	IgnoredFilters []string         `json:"ignored_filters,omitempty"`
}

// TableSizes 五张表的条目数
type TableSizes struct {
	Matches  int `json:"matches"`
	Odds     int `json:"odds"`
	Outcomes int `json:"outcomes"`
	Bets     int `json:"bets"`
	Sports   int `json:"sports"`
}

// StatusResult /api/status 返回
type StatusResult struct {
	Status             string              `json:"status"`
	MessagesCount      int                 `json:"messages_count"`
	Server             string              `json:"server"`
	Tables             TableSizes          `json:"tables"`
	Reduce             winamax.ReduceStats `json:"reduce"`
	SnapshotTimestamp  string              `json:"snapshot_timestamp,omitempty"`
	SnapshotAgeSeconds *float64            `json:"snapshot_age_seconds,omitempty"`
}

// InfoResult /api/info 返回
type InfoResult struct {
	URL          string `json:"url"`
	Timestamp    string `json:"timestamp"`
	MessageCount int    `json:"message_count"`
}

// publishClock 能报告最近发布时间的快照来源
type publishClock interface {
	PublishedAt() time.Time
}

// MatchService 比赛查询服务。每次调用都对当前快照重新折叠，不缓存表。
type MatchService struct {
	source     interfaces.SnapshotSource
	reducer    *winamax.Reducer
	logger     *logrus.Logger
	serverName string
}

// NewMatchService 创建 MatchService
func NewMatchService(source interfaces.SnapshotSource, reducer *winamax.Reducer, logger *logrus.Logger, serverName string) *MatchService {
	return &MatchService{
		source:     source,
		reducer:    reducer,
		logger:     logger,
		serverName: serverName,
	}
}

// candidate 通过筛选的比赛
type candidate struct {
	id       string
	match    map[string]any
	odds     []OddsEntry
	start    float64
	hasStart bool
}

// ListMatches 精简列表：{matchId, title, status, competitor1Name, competitor2Name, matchStart, odds?}
func (s *MatchService) ListMatches(ctx context.Context, filter MatchFilter) (*MatchListResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tables := s.reducer.Reduce(s.source.Current().Messages)
	selected := s.selectMatches(tables, filter)

	items := make([]map[string]any, 0, len(selected))
	for _, c := range selected {
		item := map[string]any{
			"matchId":         c.id,
			"title":           c.match["title"],
			"status":          c.match["status"],
			"competitor1Name": c.match["competitor1Name"],
			"competitor2Name": c.match["competitor2Name"],
			"matchStart":      c.match["matchStart"],
		}
		if len(c.odds) > 0 {
			item["odds"] = simpleOdds(c.odds)
		}
		items = append(items, item)
	}
	s.logger.WithFields(logrus.Fields{"count": len(items), "matches": len(tables.Matches)}).Debug("ListMatches")
	return &MatchListResult{Success: true, Matches: items, Count: len(items)}, nil
}

// ListMatchesVerbose 完整列表：比赛全部字段 + 详细赔率 + sportInfo
func (s *MatchService) ListMatchesVerbose(ctx context.Context, filter MatchFilter) (*VerboseMatchListResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tables := s.reducer.Reduce(s.source.Current().Messages)
	selected := s.selectMatches(tables, filter)

	items := make([]map[string]any, 0, len(selected))
	for _, c := range selected {
		item := map[string]any{"matchId": c.id}
		maps.Copy(item, c.match)
		decorate(item, tables, c.match, c.odds)
		items = append(items, item)
	}
	s.logger.WithFields(logrus.Fields{"count": len(items), "matches": len(tables.Matches)}).Debug("ListMatchesVerbose")
	return &VerboseMatchListResult{
		Success:       true,
		Matches:       items,
		Count:         len(items),
		TotalOdds:     len(tables.Odds),
		TotalOutcomes: len(tables.Outcomes),
	}, nil
}

// GetMatch 按 matchId 返回完整记录，不存在时返回 ErrMatchNotFound
func (s *MatchService) GetMatch(ctx context.Context, matchID string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tables := s.reducer.Reduce(s.source.Current().Messages)
	match, ok := tables.Matches[matchID]
	if !ok {
		return nil, ErrMatchNotFound
	}
	item := maps.Clone(match)
	item["matchId"] = matchID
	decorate(item, tables, match, resolveOdds(tables, match))
	return item, nil
}

// Status 服务状态与表规模
func (s *MatchService) Status(ctx context.Context) (*StatusResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap := s.source.Current()
	tables, stats := s.reducer.ReduceWithStats(snap.Messages)
	res := &StatusResult{
		Status:        "running",
		MessagesCount: len(snap.Messages),
		Server:        s.serverName,
		Tables: TableSizes{
			Matches:  len(tables.Matches),
			Odds:     len(tables.Odds),
			Outcomes: len(tables.Outcomes),
			Bets:     len(tables.Bets),
			Sports:   len(tables.Sports),
		},
		Reduce:            stats,
		SnapshotTimestamp: snap.Timestamp,
	}
	if clock, ok := s.source.(publishClock); ok {
		if at := clock.PublishedAt(); !at.IsZero() {
			age := time.Since(at).Seconds()
			res.SnapshotAgeSeconds = &age
		}
	}
	return res, nil
}

// Info 快照元数据
func (s *MatchService) Info() *InfoResult {
	snap := s.source.Current()
	return &InfoResult{URL: snap.URL, Timestamp: snap.Timestamp, MessageCount: snap.MessageCount}
}

// Raw 当前快照原文
func (s *MatchService) Raw() *model.Snapshot {
	return s.source.Current()
}

// selectMatches 依次做：排除非对阵盘 -> sportId -> 日期 -> 解析赔率 -> morethan -> anyonehas，
// 再按开赛时间升序（无开赛时间排最后）、matchId 升序排列
func (s *MatchService) selectMatches(tables *model.Tables, filter MatchFilter) []candidate {
	out := make([]candidate, 0, len(tables.Matches))
	for id, match := range tables.Matches {
		if isOutright(match) {
			continue
		}
		if filter.SportID != nil && !sportMatches(match["sportId"], *filter.SportID) {
			continue
		}
		if filter.Date != "" && !dateMatches(match["matchStart"], filter.Date) {
			continue
		}
		odds := resolveOdds(tables, match)
		home, away := textOf(match["competitor1Name"]), textOf(match["competitor2Name"])
		if filter.MoreThan != nil && !passesMoreThan(odds, home, away, *filter.MoreThan) {
			continue
		}
		if filter.AnyoneHas != nil && !passesAnyoneHas(odds, home, away, *filter.AnyoneHas) {
			continue
		}
		start, hasStart := numberOf(match["matchStart"])
		out = append(out, candidate{id: id, match: match, odds: odds, start: start, hasStart: hasStart})
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.hasStart != b.hasStart {
			return a.hasStart
		}
		if a.hasStart && a.start != b.start {
			return a.start < b.start
		}
		return strings.Compare(a.id, b.id) < 0
	})
	return out
}

// decorate 给完整记录补上详细赔率和 sportInfo（Sports 表按 sportId 的字符串形式查找）
func decorate(item map[string]any, tables *model.Tables, match map[string]any, odds []OddsEntry) {
	if len(odds) > 0 {
		item["odds"] = verboseOdds(odds)
	}
	if sportID, ok := match["sportId"]; ok {
		if info, ok := tables.Sports[idText(sportID)]; ok {
			item["sportInfo"] = info
		}
	}
}
