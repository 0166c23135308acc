package core

import "time"

const dayKeyLayout = "2006-01-02"

// DayRange is a reporting window expressed as local calendar day keys.
// The scan bounds are padded by one day on each side so that records whose
// UTC instant falls on a neighbouring local day are still picked up.
type DayRange struct {
	SinceKey     string
	UntilKey     string
	ScanSinceKey string
	ScanUntilKey string
}

func NewDayRange(since, until time.Time) DayRange {
	return DayRange{
		SinceKey:     DayKey(since),
		UntilKey:     DayKey(until),
		ScanSinceKey: DayKey(since.AddDate(0, 0, -1)),
		ScanUntilKey: DayKey(until.AddDate(0, 0, 1)),
	}
}

// DayKey converts an instant to its local calendar day.
func DayKey(t time.Time) string {
	return t.In(time.Local).Format(dayKeyLayout)
}

// ParseDayKey returns local midnight of the given day key.
func ParseDayKey(key string) (time.Time, error) {
	return time.ParseInLocation(dayKeyLayout, key, time.Local)
}

// IsInRange reports whether key lies in [lo, hi]. Day keys are zero padded,
// so plain string comparison orders them chronologically.
func IsInRange(key, lo, hi string) bool {
	return key >= lo && key <= hi
}

func (r DayRange) InReport(key string) bool {
	return IsInRange(key, r.SinceKey, r.UntilKey)
}

func (r DayRange) InScan(key string) bool {
	return IsInRange(key, r.ScanSinceKey, r.ScanUntilKey)
}

// Covers reports whether r's scan window contains other's scan window.
func (r DayRange) Covers(other DayRange) bool {
	if r.ScanSinceKey == "" || r.ScanUntilKey == "" {
		return false
	}
	return r.ScanSinceKey <= other.ScanSinceKey && r.ScanUntilKey >= other.ScanUntilKey
}

// ScanDays returns every day of the padded scan window, oldest first.
func (r DayRange) ScanDays() []time.Time {
	start, err := ParseDayKey(r.ScanSinceKey)
	if err != nil {
		return nil
	}
	end, err := ParseDayKey(r.ScanUntilKey)
	if err != nil {
		return nil
	}
	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
