package nhl

import (
	"fmt"
	"time"
)

// DateRange is a pair of calendar dates with Start strictly before End.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDateRange parses two YYYY-MM-DD strings into a DateRange. The start
// date must be strictly before the end date.
func ParseDateRange(start, end string) (DateRange, error) {
	startDate, err := time.Parse(DateFormat, start)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid start date %q, use a value like 2020-08-04: %w", start, err)
	}
	endDate, err := time.Parse(DateFormat, end)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid end date %q, use a value like 2020-08-05: %w", end, err)
	}
	if !startDate.Before(endDate) {
		return DateRange{}, fmt.Errorf("start date %s must be before end date %s", start, end)
	}
	return DateRange{Start: startDate, End: endDate}, nil
}
