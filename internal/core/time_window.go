package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeWindow is a trailing reporting window ending today, written as a day
// count ("7d") or week count ("2w").
type TimeWindow string

const (
	TimeWindow1d  TimeWindow = "1d"
	TimeWindow7d  TimeWindow = "7d"
	TimeWindow30d TimeWindow = "30d"

	maxWindowDays = 366
)

var windowAliases = map[string]TimeWindow{
	"today": TimeWindow1d,
	"week":  TimeWindow7d,
	"month": TimeWindow30d,
}

// ParseTimeWindow accepts "Nd", "Nw" and the aliases today, week and month.
func ParseTimeWindow(s string) (TimeWindow, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if tw, ok := windowAliases[s]; ok {
		return tw, nil
	}
	tw := TimeWindow(s)
	if d := tw.Days(); d <= 0 || d > maxWindowDays {
		return "", fmt.Errorf("invalid time window %q (want e.g. 7d, 2w, today)", s)
	}
	return tw, nil
}

// Days returns the window length, or 0 when tw is malformed.
func (tw TimeWindow) Days() int {
	s := string(tw)
	if len(s) < 2 {
		return 0
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return 0
	}
	switch s[len(s)-1] {
	case 'd':
		return n
	case 'w':
		return n * 7
	}
	return 0
}

func (tw TimeWindow) Label() string {
	switch d := tw.Days(); d {
	case 0:
		return "?"
	case 1:
		return "Today"
	default:
		return strconv.Itoa(d) + " Days"
	}
}

// Bounds returns the first and last instant of the window, with the window
// ending on now's local day.
func (tw TimeWindow) Bounds(now time.Time) (time.Time, time.Time) {
	return now.AddDate(0, 0, -(max(tw.Days(), 1) - 1)), now
}
