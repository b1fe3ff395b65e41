// Package stats 每日检查的计数器状态转移，纯函数，无 I/O。
//
// 两个函数都假设同一日历日只被调用一次，重复检查由编排器的幂等闸门拦截。
package stats

import (
	"time"

	"PushOrShame/utils"
)

type Stats struct {
	CurrentMonthActive   int
	CurrentMonthInactive int
	TotalActiveDays      int
	TotalInactiveDays    int
	CurrentStreak        int
	LongestStreak        int
	LastActiveDate       *time.Time
	LastCheckedDate      *time.Time
}

// RecordActive 当天有 push
func RecordActive(s Stats, date time.Time) Stats {
	date = utils.DateOnly(date)
	next := rollMonth(s, date)

	consecutive := s.LastActiveDate != nil && utils.DaysBetween(*s.LastActiveDate, date) == 1
	if consecutive {
		next.CurrentStreak = s.CurrentStreak + 1
	} else {
		next.CurrentStreak = 1
	}
	next.LongestStreak = max(s.LongestStreak, next.CurrentStreak)

	next.CurrentMonthActive++
	next.TotalActiveDays++
	next.LastActiveDate = &date
	next.LastCheckedDate = &date
	return next
}

// RecordInactive 当天没有 push，streak 归零，LastActiveDate 保持不变
func RecordInactive(s Stats, date time.Time) Stats {
	date = utils.DateOnly(date)
	next := rollMonth(s, date)

	next.CurrentStreak = 0
	next.CurrentMonthInactive++
	next.TotalInactiveDays++
	next.LastCheckedDate = &date
	return next
}

// Record 按 active 分派
func Record(s Stats, date time.Time, active bool) Stats {
	if active {
		return RecordActive(s, date)
	}
	return RecordInactive(s, date)
}

// rollMonth 上次检查不在本月时清零月度计数
func rollMonth(s Stats, date time.Time) Stats {
	next := s
	if s.LastCheckedDate != nil && !utils.SameMonth(*s.LastCheckedDate, date) {
		next.CurrentMonthActive = 0
		next.CurrentMonthInactive = 0
	}
	return next
}
