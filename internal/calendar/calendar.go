// Package calendar implements the simulation's custom calendar: twelve months
// of eight days, 96 days to the year. One tick advances the date by one day.
package calendar

import "fmt"

const (
	DaysPerMonth  = 8
	MonthsPerYear = 12
	DaysPerYear   = DaysPerMonth * MonthsPerYear

	// StartYear is the year a freshly created world begins in.
	StartYear uint32 = 4000
)

// Date is a calendar position. Month is 1–12, Day is 1–8.
type Date struct {
	Year  uint32 `json:"year"`
	Month uint8  `json:"month"`
	Day   uint8  `json:"day"`
}

// Start returns the first day of StartYear.
func Start() Date {
	return Date{Year: StartYear, Month: 1, Day: 1}
}

// New returns a date, clamping month and day into their valid ranges.
func New(year uint32, month, day uint8) Date {
	if month < 1 {
		month = 1
	} else if month > MonthsPerYear {
		month = MonthsPerYear
	}
	if day < 1 {
		day = 1
	} else if day > DaysPerMonth {
		day = DaysPerMonth
	}
	return Date{Year: year, Month: month, Day: day}
}

// Advance moves the date forward one day, rolling into the next month and year.
func (d *Date) Advance() {
	d.Day++
	if d.Day > DaysPerMonth {
		d.Day = 1
		d.Month++
		if d.Month > MonthsPerYear {
			d.Month = 1
			d.Year++
		}
	}
}

// AddMonths returns the year and month n months after d. The day is dropped.
func (d Date) AddMonths(n int) (uint32, uint8) {
	total := int64(d.Year)*MonthsPerYear + int64(d.Month-1) + int64(n)
	if total < 0 {
		return 0, 1
	}
	return uint32(total / MonthsPerYear), uint8(total%MonthsPerYear) + 1
}

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

func (d Date) String() string {
	return fmt.Sprintf("Year %d, Month %d, Day %d", d.Year, d.Month, d.Day)
}

// AgeYears is whole-year subtraction only; month and day are ignored.
// Births dated after now yield 0.
func AgeYears(birth, now Date) uint32 {
	if birth.Year > now.Year {
		return 0
	}
	return now.Year - birth.Year
}

// AgeMonths refines AgeYears by the month difference.
func AgeMonths(birth, now Date) uint32 {
	months := int64(now.Year)*MonthsPerYear + int64(now.Month) -
		(int64(birth.Year)*MonthsPerYear + int64(birth.Month))
	if months < 0 {
		return 0
	}
	return uint32(months)
}

// MonthsSince counts whole months from year/month until now. Negative when
// year/month lies in the future.
func MonthsSince(year uint32, month uint8, now Date) int64 {
	return int64(now.Year)*MonthsPerYear + int64(now.Month) -
		(int64(year)*MonthsPerYear + int64(month))
}
