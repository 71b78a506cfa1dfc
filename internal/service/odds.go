package service

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"WinamaxFeed/internal/model"

	"github.com/shopspring/decimal"
)

// 开赛日期过滤格式 DD-MM-YYYY
const matchDateLayout = "02-01-2006"

// anyonehas 区间宽度：[v, v+0.09]，上界保留三位小数
var anyoneHasSpan = decimal.RequireFromString("0.09")

// OddsEntry 主盘中一个有赔率的选项
type OddsEntry struct {
	Label     string         // Outcome.label，缺失时为 "Outcome {id}"
	OutcomeID any            // bet.outcomes 中的原值
	Value     any            // Odds 表中的原值
	Outcome   map[string]any // Outcome 表中的记录，可能为 nil
}

// resolveOdds 按 mainBetId -> bet.outcomes 的顺序解析赔率；Odds 表中没有的选项直接略过。
// 标签重复时后者覆盖前者的值，位置不变。
func resolveOdds(t *model.Tables, match map[string]any) []OddsEntry {
	mainBetID, ok := match["mainBetId"]
	if !ok {
		return nil
	}
	bet, ok := t.Bets[idText(mainBetID)]
	if !ok {
		return nil
	}
	outcomeIDs, ok := bet["outcomes"].([]any)
	if !ok {
		return nil
	}

	entries := make([]OddsEntry, 0, len(outcomeIDs))
	position := make(map[string]int, len(outcomeIDs))
	for _, rawID := range outcomeIDs {
		id := idText(rawID)
		value, ok := t.Odds[id]
		if !ok {
			continue
		}
		outcome := t.Outcomes[id]
		label, ok := outcome["label"].(string)
		if !ok {
			label = fmt.Sprintf("Outcome %s", id)
		}
		entry := OddsEntry{Label: label, OutcomeID: rawID, Value: value, Outcome: outcome}
		if i, dup := position[label]; dup {
			entries[i] = entry
			continue
		}
		position[label] = len(entries)
		entries = append(entries, entry)
	}
	return entries
}

// simpleOdds label -> 赔率
func simpleOdds(entries []OddsEntry) map[string]any {
	out := make(map[string]any, len(entries))
	for _, e := range entries {
		out[e.Label] = e.Value
	}
	return out
}

// verboseOdds label -> {odds, outcomeId, ...outcome 字段}；outcome 同名字段优先
func verboseOdds(entries []OddsEntry) map[string]any {
	out := make(map[string]any, len(entries))
	for _, e := range entries {
		detail := map[string]any{"odds": e.Value, "outcomeId": e.OutcomeID}
		for k, v := range e.Outcome {
			detail[k] = v
		}
		out[e.Label] = detail
	}
	return out
}

// passesMoreThan 主队和客队的赔率都必须找到且严格大于 threshold；每边取第一个匹配的选项
func passesMoreThan(entries []OddsEntry, home, away string, threshold float64) bool {
	var homeEntry, awayEntry *OddsEntry
	for i := range entries {
		switch Classify(entries[i].Label, home, away) {
		case SideHome:
			if homeEntry == nil {
				homeEntry = &entries[i]
			}
		case SideAway:
			if awayEntry == nil {
				awayEntry = &entries[i]
			}
		}
	}
	if homeEntry == nil || awayEntry == nil {
		return false
	}
	limit := decimal.NewFromFloat(threshold)
	homeOdds, ok := decimalOf(homeEntry.Value)
	if !ok || !homeOdds.GreaterThan(limit) {
		return false
	}
	awayOdds, ok := decimalOf(awayEntry.Value)
	return ok && awayOdds.GreaterThan(limit)
}

// passesAnyoneHas 主队/平局/客队中任一赔率落在 [v, round(v+0.09, 3)] 内即保留
func passesAnyoneHas(entries []OddsEntry, home, away string, v float64) bool {
	low, high := anyoneHasRange(v)
	for _, e := range entries {
		if Classify(e.Label, home, away) == SideOther {
			continue
		}
		odds, ok := decimalOf(e.Value)
		if ok && odds.GreaterThanOrEqual(low) && odds.LessThanOrEqual(high) {
			return true
		}
	}
	return false
}

func anyoneHasRange(v float64) (decimal.Decimal, decimal.Decimal) {
	low := decimal.NewFromFloat(v)
	return low, low.Add(anyoneHasSpan).Round(3)
}

// dateMatches matchStart（秒）按 UTC 转为 DD-MM-YYYY 后比较；没有开赛时间的比赛不按日期排除
func dateMatches(matchStart any, want string) bool {
	sec, ok := numberOf(matchStart)
	if !ok || sec == 0 {
		return true
	}
	whole, frac := math.Modf(sec)
	start := time.Unix(int64(whole), int64(frac*float64(time.Second))).UTC()
	return start.Format(matchDateLayout) == want
}

// sportMatches sportId 必须是数值且与过滤值相等
func sportMatches(sportID any, want int64) bool {
	n, ok := numberOf(sportID)
	return ok && n == float64(want)
}

// isOutright 任一队名缺失或为空即视为冠军盘等非对阵盘口
func isOutright(match map[string]any) bool {
	return textOf(match["competitor1Name"]) == "" || textOf(match["competitor2Name"]) == ""
}

// numberOf 取 JSON 数值；字符串等其它类型返回 false
func numberOf(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// decimalOf 按原文精度取赔率
func decimalOf(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	default:
		return decimal.Decimal{}, false
	}
}

// idText 把 id（字符串或数字）转成表的键
func idText(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case json.Number:
		return id.String()
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return fmt.Sprint(id)
	}
}

func textOf(v any) string {
	s, _ := v.(string)
	return s
}
