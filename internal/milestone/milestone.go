// Package milestone 里程碑检测与已播报账本。
//
// 检测总是返回"不超过当前值、且尚未播报"的最小里程碑，
// 漏掉的里程碑会在之后的检查中按顺序逐个补播，一次检查最多一个。
package milestone

import (
	"fmt"
	"slices"

	"PushOrShame/internal/stats"
)

type Kind string

const (
	KindStreak Kind = "streak"
	KindTotal  Kind = "total"
)

// 升序，只增不改
var (
	StreakSequence = []int{3, 5, 7, 10, 15, 20, 25, 30, 50, 100, 200, 365}
	TotalSequence  = []int{5, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
)

type Milestone struct {
	Kind  Kind `json:"kind"`
	Value int  `json:"value"`
}

func (m Milestone) String() string {
	return fmt.Sprintf("%s:%d", m.Kind, m.Value)
}

// Set 已播报的里程碑值，有序去重，只追加
type Set []int

func (s Set) Contains(v int) bool {
	_, found := slices.BinarySearch(s, v)
	return found
}

// Add 返回新集合，不修改原集合
func (s Set) Add(v int) Set {
	i, found := slices.BinarySearch(s, v)
	if found {
		return slices.Clone(s)
	}
	out := make(Set, 0, len(s)+1)
	out = append(out, s[:i]...)
	out = append(out, v)
	return append(out, s[i:]...)
}

// Normalize 修复从存储读出的乱序或重复数据
func (s Set) Normalize() Set {
	out := slices.Clone(s)
	slices.Sort(out)
	return slices.Compact(out)
}

// Ledger 参与者的两个账本
type Ledger struct {
	Streak Set `json:"streak"`
	Total  Set `json:"total"`
}

func (l Ledger) Contains(m Milestone) bool {
	switch m.Kind {
	case KindStreak:
		return l.Streak.Contains(m.Value)
	case KindTotal:
		return l.Total.Contains(m.Value)
	}
	return false
}

// Append 记录一次已尝试的播报
func (l Ledger) Append(m Milestone) Ledger {
	out := Ledger{Streak: slices.Clone(l.Streak), Total: slices.Clone(l.Total)}
	switch m.Kind {
	case KindStreak:
		out.Streak = l.Streak.Add(m.Value)
	case KindTotal:
		out.Total = l.Total.Add(m.Value)
	}
	return out
}

func NextStreakMilestone(currentStreak int, announced Set) (int, bool) {
	return next(StreakSequence, currentStreak, announced)
}

func NextTotalMilestone(totalActiveDays int, announced Set) (int, bool) {
	return next(TotalSequence, totalActiveDays, announced)
}

func next(sequence []int, value int, announced Set) (int, bool) {
	for _, m := range sequence {
		if m > value {
			break
		}
		if !announced.Contains(m) {
			return m, true
		}
	}
	return 0, false
}

// Detect 基于新的计数器选出本次要播报的里程碑，streak 优先于累计
func Detect(s stats.Stats, ledger Ledger) (Milestone, bool) {
	if v, ok := NextStreakMilestone(s.CurrentStreak, ledger.Streak); ok {
		return Milestone{Kind: KindStreak, Value: v}, true
	}
	if v, ok := NextTotalMilestone(s.TotalActiveDays, ledger.Total); ok {
		return Milestone{Kind: KindTotal, Value: v}, true
	}
	return Milestone{}, false
}
