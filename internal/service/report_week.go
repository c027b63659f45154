package service

import (
	"fmt"
	"time"
)

const (
	weekMillis   = int64(7 * 24 * time.Hour / time.Millisecond)
	weekdayCount = 7
)

// WeekEndingFriday returns local midnight of the Friday in the Monday-start
// week containing ts.
func WeekEndingFriday(ts int64, loc *time.Location) time.Time {
	local := time.UnixMilli(ts).In(locationOrLocal(loc))
	monday := mondayOf(local)
	return monday.AddDate(0, 0, 4)
}

// WeekNumber counts whole weeks between Jan 1 of the Friday's year and the Friday, starting at 1.
func WeekNumber(friday time.Time) int {
	jan1 := time.Date(friday.Year(), time.January, 1, 0, 0, 0, 0, friday.Location())
	return int((friday.UnixMilli()-jan1.UnixMilli())/weekMillis) + 1
}

// FormatWeekRange renders the Monday..Friday span, e.g. "Mar 4 - Mar 8, 2024".
func FormatWeekRange(friday time.Time) string {
	monday := friday.AddDate(0, 0, -4)
	return fmt.Sprintf("%s - %s", monday.Format("Jan 2"), friday.Format("Jan 2, 2006"))
}

// weekWindow returns the exclusive bounds of the detail window keyed by fridayMillis.
// The Friday instant itself is outside the window.
func weekWindow(fridayMillis int64) (after, before int64) {
	return fridayMillis, fridayMillis + weekMillis - 1
}

func mondayOf(local time.Time) time.Time {
	day := int(local.Weekday())
	offset := 1 - day
	if day == 0 {
		offset = 1 - weekdayCount
	}
	return time.Date(local.Year(), local.Month(), local.Day()+offset, 0, 0, 0, 0, local.Location())
}

func locationOrLocal(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}
