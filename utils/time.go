package utils

import (
	"fmt"
	"time"

	"PushOrShame/config"
)

// 所有"今天/昨天"的计算都经过这里：参与者时区是固定偏移，
// 日期用同年月日的 UTC 零点表示，两个日期相减恰好是 24h 的整数倍。

const DateLayout = "2006-01-02"

// DayWindow 参与者时区下的一天 [Start, End)
type DayWindow struct {
	Date  time.Time
	Start time.Time
	End   time.Time
}

func (w DayWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Closed 窗口在 now 时已经结束
func (w DayWindow) Closed(now time.Time) bool {
	return !now.Before(w.End)
}

func (w DayWindow) Key() string {
	return DateKey(w.Date)
}

func ParticipantLocation() *time.Location {
	return LocationForOffset(config.Cfg.DayBoundaryOffsetHours)
}

func LocationForOffset(hours int) *time.Location {
	name := fmt.Sprintf("UTC%+d", hours)
	return time.FixedZone(name, hours*3600)
}

// CivilDate 把任意时刻转换为参与者时区下的日历日
func CivilDate(t time.Time) time.Time {
	return civilDateIn(t, ParticipantLocation())
}

func civilDateIn(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateOnly 丢弃时分秒，按日期自身的年月日归一化
func DateOnly(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WindowFor 日历日在参与者时区的窗口
func WindowFor(date time.Time) DayWindow {
	return windowIn(DateOnly(date), ParticipantLocation())
}

func windowIn(date time.Time, loc *time.Location) DayWindow {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	return DayWindow{
		Date:  date,
		Start: start,
		End:   start.Add(24 * time.Hour),
	}
}

// TodayWindow now 所在的参与者日
func TodayWindow(now time.Time) DayWindow {
	return WindowFor(CivilDate(now))
}

func YesterdayWindow(now time.Time) DayWindow {
	return WindowFor(CivilDate(now).AddDate(0, 0, -1))
}

// DaysBetween b - a 的天数
func DaysBetween(a, b time.Time) int {
	return int(DateOnly(b).Sub(DateOnly(a)).Hours() / 24)
}

func SameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

func DateKey(date time.Time) string {
	return DateOnly(date).Format(DateLayout)
}

func ParseDateKey(key string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, key, time.UTC)
}

// NextClock 参与者时区下 now 之后最近一次 hh:mm
func NextClock(now time.Time, hour, minute int) time.Time {
	loc := ParticipantLocation()
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}
