package service

import "strings"

// OutcomeSide 主盘选项归属
type OutcomeSide int

const (
	SideOther OutcomeSide = iota
	SideHome
	SideAway
	SideDraw
)

func (s OutcomeSide) String() string {
	switch s {
	case SideHome:
		return "home"
	case SideAway:
		return "away"
	case SideDraw:
		return "draw"
	default:
		return "other"
	}
}

// Classify 判断选项标签属于主队、客队、平局还是其它。
// 先比较完全相等，再看标签是否包含队名（区分大小写）；队名为空不参与匹配。
// 平局靠标签里出现 "nul" / "draw"（不区分大小写）识别，其它语言的平局标签会落到 SideOther。
func Classify(label, home, away string) OutcomeSide {
	switch {
	case home != "" && label == home:
		return SideHome
	case away != "" && label == away:
		return SideAway
	case home != "" && strings.Contains(label, home):
		return SideHome
	case away != "" && strings.Contains(label, away):
		return SideAway
	}
	lower := strings.ToLower(label)
	if strings.Contains(lower, "nul") || strings.Contains(lower, "draw") {
		return SideDraw
	}
	return SideOther
}
