package model

// Tables 由消息日志折叠出的五张实体表，键均为字符串 id。
// 数值以 json.Number 保存，重新序列化时与原文一致。
type Tables struct {
	Matches  map[string]map[string]any `json:"matches"`  // matchId -> 比赛字段（浅合并）
	Odds     map[string]any            `json:"odds"`     // outcomeId -> 赔率（整表覆盖）
	Outcomes map[string]map[string]any `json:"outcomes"` // outcomeId -> 选项字段（浅合并）
	Bets     map[string]map[string]any `json:"bets"`     // betId -> 盘口（整体替换）
	Sports   map[string]any            `json:"sports"`   // sportId -> 运动信息（整表覆盖）
}

// NewTables 创建空表
func NewTables() *Tables {
	return &Tables{
		Matches:  make(map[string]map[string]any),
		Odds:     make(map[string]any),
		Outcomes: make(map[string]map[string]any),
		Bets:     make(map[string]map[string]any),
		Sports:   make(map[string]any),
	}
}
