package pricing

import (
	"time"

	"github.com/iliyamo/hostel-bed-reservation/internal/model"
)

// EasterSunday computes Gregorian Easter for year with the anonymous
// Gregorian (Meeus/Jones/Butcher) form of Gauss's algorithm.
func EasterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// CarnivalTuesday is Easter minus 47 days.
func CarnivalTuesday(year int) time.Time {
	return EasterSunday(year).AddDate(0, 0, -47)
}

// CarnivalWindow returns the inclusive day range [Tuesday-2, Tuesday+1],
// i.e. Easter-49 through Easter-46.
func CarnivalWindow(year int) (start, end time.Time) {
	t := CarnivalTuesday(year)
	return t.AddDate(0, 0, -2), t.AddDate(0, 0, 1)
}

// IsCarnivalPeriod reports whether the calendar day of d lies inside the
// Carnival window of its year.
func IsCarnivalPeriod(d time.Time) bool {
	day := model.DateOf(d)
	start, end := CarnivalWindow(day.Year())
	return !day.Before(start) && !day.After(end)
}

// OverlapsCarnival is true when either stay boundary falls inside a
// Carnival window or the stay contains one.  Windows of every year the stay
// touches are checked.
func OverlapsCarnival(s model.Stay) bool {
	for y := s.CheckIn.Year(); y <= s.CheckOut.Year(); y++ {
		start, end := CarnivalWindow(y)
		if !s.CheckIn.After(end) && !s.CheckOut.Before(start) {
			return true
		}
	}
	return false
}

var (
	highMonths = map[time.Month]bool{time.December: true, time.January: true, time.February: true, time.March: true}
	lowMonths  = map[time.Month]bool{time.June: true, time.July: true, time.August: true, time.September: true}
)

// SeasonOf classifies a stay.  Carnival wins over the calendar seasons;
// high and low need both dates inside the season, anything else is medium.
func SeasonOf(s model.Stay) model.Season {
	switch {
	case OverlapsCarnival(s):
		return model.SeasonCarnival
	case highMonths[s.CheckIn.Month()] && highMonths[s.CheckOut.Month()]:
		return model.SeasonHigh
	case lowMonths[s.CheckIn.Month()] && lowMonths[s.CheckOut.Month()]:
		return model.SeasonLow
	default:
		return model.SeasonMedium
	}
}

// SeasonMultiplier returns the multiplier of a season as a percentage.
func SeasonMultiplier(season model.Season) model.Percent {
	switch season {
	case model.SeasonCarnival:
		return 200
	case model.SeasonHigh:
		return 150
	case model.SeasonLow:
		return 80
	default:
		return 100
	}
}
