// Package badge 徽章由计数器确定性推导，集合只增不减，重复计算无副作用。
package badge

import (
	"slices"

	"PushOrShame/internal/stats"
)

type Rule struct {
	ID        string
	Predicate func(stats.Stats) bool
}

// TableVersion 规则表发生不兼容修改时递增，历史已获得的徽章保留
const TableVersion = 1

var TableV1 = []Rule{
	{ID: "first_push", Predicate: func(s stats.Stats) bool { return s.TotalActiveDays >= 1 }},
	{ID: "streak_3", Predicate: longestAtLeast(3)},
	{ID: "streak_7", Predicate: longestAtLeast(7)},
	{ID: "streak_30", Predicate: longestAtLeast(30)},
	{ID: "streak_100", Predicate: longestAtLeast(100)},
	{ID: "total_10", Predicate: totalAtLeast(10)},
	{ID: "total_50", Predicate: totalAtLeast(50)},
	{ID: "total_100", Predicate: totalAtLeast(100)},
	{ID: "total_365", Predicate: totalAtLeast(365)},
	{ID: "month_20", Predicate: func(s stats.Stats) bool { return s.CurrentMonthActive >= 20 }},
	{ID: "comeback", Predicate: func(s stats.Stats) bool {
		return s.TotalInactiveDays >= 1 && s.CurrentStreak >= 1
	}},
}

func longestAtLeast(n int) func(stats.Stats) bool {
	return func(s stats.Stats) bool { return s.LongestStreak >= n }
}

func totalAtLeast(n int) func(stats.Stats) bool {
	return func(s stats.Stats) bool { return s.TotalActiveDays >= n }
}

// Set 已获得的徽章 ID，有序去重
type Set []string

func (s Set) Contains(id string) bool {
	_, found := slices.BinarySearch(s, id)
	return found
}

// Derive 按当前规则表推导，返回并集和本次新获得的徽章
func Derive(s stats.Stats, existing Set) (Set, []string) {
	return DeriveWith(TableV1, s, existing)
}

func DeriveWith(table []Rule, s stats.Stats, existing Set) (Set, []string) {
	out := slices.Clone(existing)
	slices.Sort(out)
	out = slices.Compact(out)

	var earned []string
	for _, rule := range table {
		if out.Contains(rule.ID) || !rule.Predicate(s) {
			continue
		}
		earned = append(earned, rule.ID)
		i, _ := slices.BinarySearch(out, rule.ID)
		out = slices.Insert(out, i, rule.ID)
	}
	return out, earned
}
