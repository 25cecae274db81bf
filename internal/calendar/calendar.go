// Package calendar builds month grids and month windows for the concert
// calendar view.  Everything here is pure date arithmetic in UTC.
package calendar

import (
	"strconv"
	"time"
)

// Week is one row of a month grid, Monday first.  A zero cell is padding
// that belongs to the neighbouring month.
type Week [7]int

// Month returns the grid for the given month.  The non-zero cells are
// exactly 1..DaysIn(year, month) in ascending order, and every week has
// seven cells.  month must be in 1..12; use Normalize first otherwise.
func Month(year, month int) []Week {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	days := DaysIn(year, month)
	offset := mondayIndex(first.Weekday())

	weeks := make([]Week, 0, 6)
	var w Week
	col := offset
	for day := 1; day <= days; day++ {
		w[col] = day
		col++
		if col == 7 {
			weeks = append(weeks, w)
			w = Week{}
			col = 0
		}
	}
	if col > 0 {
		weeks = append(weeks, w)
	}
	return weeks
}

// mondayIndex maps time.Weekday (Sunday = 0) to a Monday-first column.
func mondayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// DaysIn reports the number of days in the month, accounting for leap
// years.
func DaysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Normalize folds an out-of-range month into the adjacent years, so
// (2024, 13) becomes (2025, 1) and (2024, 0) becomes (2023, 12).
func Normalize(year, month int) (int, int) {
	m := month - 1
	year += m / 12
	m %= 12
	if m < 0 {
		m += 12
		year--
	}
	return year, m + 1
}

// Prev returns the month before (year, month).
func Prev(year, month int) (int, int) { return Normalize(year, month-1) }

// Next returns the month after (year, month).
func Next(year, month int) (int, int) { return Normalize(year, month+1) }

// Window returns the inclusive time range covering the whole month: the
// first instant of the month through one second before the next month
// starts.
func Window(year, month int) (start, end time.Time) {
	year, month = Normalize(year, month)
	start = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, 0).Add(-time.Second)
	return start, end
}

// MonthName is the English month name.
func MonthName(month int) string {
	_, month = Normalize(2000, month)
	return time.Month(month).String()
}

// MonthLabel is the Japanese month label shown in the calendar header,
// e.g. "7月".
func MonthLabel(month int) string {
	_, month = Normalize(2000, month)
	return strconv.Itoa(month) + "月"
}

// WeekdayLabels are the column headers, Monday first.
var WeekdayLabels = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
