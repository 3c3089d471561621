package reports

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Periodicity controls the width of each reporting bucket.
type Periodicity string

// Supported periodicities.
const (
	Monthly    Periodicity = "Monthly"
	Quarterly  Periodicity = "Quarterly"
	HalfYearly Periodicity = "Half-Yearly"
	Yearly     Periodicity = "Yearly"
)

// Filter modes for the period range.
const (
	FilterFiscalYear = "Fiscal Year"
	FilterDateRange  = "Date Range"
)

// ErrInvalidPeriodRange indicates the end of the range precedes its start.
var ErrInvalidPeriodRange = errors.New("reports: period end before start")

// Months returns the number of months in one bucket.
func (p Periodicity) Months() (int, error) {
	switch p {
	case Monthly:
		return 1, nil
	case Quarterly:
		return 3, nil
	case HalfYearly:
		return 6, nil
	case Yearly, "":
		return 12, nil
	}
	return 0, fmt.Errorf("reports: unknown periodicity %q", string(p))
}

// FiscalYear is a named accounting year.
type FiscalYear struct {
	Name      string
	StartDate time.Time
	EndDate   time.Time
}

// Period is one reporting bucket.
type Period struct {
	Key      string    `json:"key"`
	Label    string    `json:"label"`
	FromDate time.Time `json:"from_date"`
	ToDate   time.Time `json:"to_date"`
}

// PeriodRange resolves the reporting window from the filter mode.
func PeriodRange(filterBasedOn string, fromFY, toFY FiscalYear, start, end time.Time) (time.Time, time.Time, error) {
	from, to := fromFY.StartDate, toFY.EndDate
	if filterBasedOn == FilterDateRange {
		from, to = start, end
	}
	if from.IsZero() || to.IsZero() {
		return time.Time{}, time.Time{}, fmt.Errorf("reports: period range incomplete: %w", ErrInvalidPeriodRange)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, ErrInvalidPeriodRange
	}
	return from, to, nil
}

// PeriodList splits [from, to] into buckets of the given periodicity. Bucket
// boundaries are counted in whole months from the range start, clipped to the
// last day of the target month. The final bucket is clipped to the range end.
// Keys are unique; a key already taken gets a numeric suffix.
func PeriodList(from, to time.Time, periodicity Periodicity) ([]Period, error) {
	months, err := periodicity.Months()
	if err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, ErrInvalidPeriodRange
	}
	from = truncateDay(from)
	to = truncateDay(to)

	var periods []Period
	seen := make(map[string]int)
	start := from
	for i := 1; !start.After(to); i++ {
		end := addMonths(from, months*i).AddDate(0, 0, -1)
		if end.After(to) {
			end = to
		}
		key := periodKey(end)
		seen[key]++
		label := periodLabel(start, end, periodicity)
		if n := seen[key]; n > 1 {
			key = fmt.Sprintf("%s_%d", key, n)
			label = start.Format("02 Jan") + " - " + end.Format("02 Jan 2006")
		}
		periods = append(periods, Period{
			Key:      key,
			Label:    label,
			FromDate: start,
			ToDate:   end,
		})
		start = end.AddDate(0, 0, 1)
	}
	return periods, nil
}

// addMonths moves t by n months, keeping the day but clipping it to the last
// day of the target month.
func addMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

func periodKey(to time.Time) string {
	return strings.ToLower(to.Format("Jan_2006"))
}

func periodLabel(from, to time.Time, periodicity Periodicity) string {
	switch periodicity {
	case Yearly, "":
		if from.Year() == to.Year() {
			return from.Format("2006")
		}
		return from.Format("2006") + "-" + to.Format("2006")
	case Monthly:
		return to.Format("Jan 2006")
	}
	return from.Format("Jan 06") + "-" + to.Format("Jan 06")
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
