package simulation

import (
	"sort"
	"time"

	"github.com/fundsight/fundsight/internal/models"
)

// rebalanceTolerance is how far an evaluation date may sit from a scheduled
// rebalance date and still trigger it.
const rebalanceTolerance = 24 * time.Hour

// rebalanceDates generates the calendar rebalance schedule by stepping the
// start date forward by the frequency's period until the end date.
func rebalanceDates(start, end time.Time, frequency string) []time.Time {
	var months int
	switch frequency {
	case models.RebalanceMonthly:
		months = 1
	case models.RebalanceQuarterly:
		months = 3
	case models.RebalanceAnnually:
		months = 12
	default:
		return nil
	}

	var dates []time.Time
	for d := start.AddDate(0, months, 0); !d.After(end); d = d.AddDate(0, months, 0) {
		dates = append(dates, d)
	}
	return dates
}

// keyDates builds the sparse evaluation schedule for calendar-period runs:
// weekly intervals plus every rebalance date plus the final end date,
// de-duplicated and sorted. Intraperiod extrema between samples are not
// captured; threshold runs use dailyDates instead.
func keyDates(start, end time.Time, rebalances []time.Time) []time.Time {
	seen := make(map[time.Time]bool)
	var dates []time.Time

	add := func(d time.Time) {
		if d.After(end) {
			return
		}
		if !seen[d] {
			seen[d] = true
			dates = append(dates, d)
		}
	}

	for d := start; !d.After(end); d = d.AddDate(0, 0, 7) {
		add(d)
	}
	for _, d := range rebalances {
		add(d)
	}
	add(end)

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// dailyDates enumerates every calendar day in [start, end]. Threshold
// rebalancing needs the full walk because a weight deviation can only be
// detected by checking each day.
func dailyDates(start, end time.Time) []time.Time {
	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// nextPendingRebalance returns the index of an unconsumed rebalance date
// within tolerance of the evaluation date, or -1.
func nextPendingRebalance(date time.Time, schedule []time.Time, consumed []bool) int {
	for i, d := range schedule {
		if consumed[i] {
			continue
		}
		diff := date.Sub(d)
		if diff < 0 {
			diff = -diff
		}
		if diff <= rebalanceTolerance {
			return i
		}
	}
	return -1
}
