// Package season maps calendar dates to season labels and date windows.
//
// A label "2025-26" denotes the season that tips off in November 2025.
// The boundary used everywhere in this codebase: November or later belongs
// to the season starting that year, April or earlier belongs to the season
// that started the previous year, and the off-season months (May-October)
// roll forward to the upcoming season.
package season

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// startMonth is the first month of a new season.
	startMonth = time.November
	// lastMonth is the final month still attributed to the prior season.
	lastMonth = time.April
)

// CurrentSeason returns the season label for the given date.
func CurrentSeason(date time.Time) string {
	year := date.Year()
	switch {
	case date.Month() >= startMonth:
		return Label(year)
	case date.Month() <= lastMonth:
		return Label(year - 1)
	default:
		// Off-season: default to the upcoming season.
		return Label(year)
	}
}

// Label builds the "YYYY-YY" label for the season beginning in startYear.
func Label(startYear int) string {
	return fmt.Sprintf("%d-%02d", startYear, (startYear+1)%100)
}

// StartYear parses the leading year out of a season label.
func StartYear(label string) (int, error) {
	parts := strings.SplitN(label, "-", 2)
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("malformed season label %q (want YYYY-YY)", label)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("malformed season label %q: %w", label, err)
	}
	suffix, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("malformed season label %q: %w", label, err)
	}
	if (year+1)%100 != suffix {
		return 0, fmt.Errorf("season label %q: end year does not follow start year", label)
	}
	return year, nil
}

// Window returns the default inclusive date range for a season: November 1
// of the start year through April 15 of the following year, covering the
// regular season, conference tournaments and the national tournament.
func Window(label string) (start, end time.Time, err error) {
	year, err := StartYear(label)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start = time.Date(year, time.November, 1, 0, 0, 0, 0, time.UTC)
	end = time.Date(year+1, time.April, 15, 0, 0, 0, 0, time.UTC)
	return start, end, nil
}
