package progress

import (
	"sort"
	"time"

	"github.com/yungbote/cortex-backend/internal/domain"
)

// Streaks computes (current, longest) over the set of UTC days touched by
// times, evaluated as of today. Input order and duplicates do not matter.
//
// The current streak counts back from the most recent day only when that day
// is today or yesterday; the longest streak is the longest run of consecutive
// days anywhere in the history.
func Streaks(times []time.Time, today time.Time) (current, longest int) {
	days := distinctDaysDesc(times)
	if len(days) == 0 {
		return 0, 0
	}
	today = domain.DayOf(today)

	if gap := daysBetween(days[0], today); gap == 0 || gap == 1 {
		current = 1
		for i := 1; i < len(days); i++ {
			if daysBetween(days[i], days[i-1]) != 1 {
				break
			}
			current++
		}
	}

	run := 1
	longest = 1
	for i := 1; i < len(days); i++ {
		if daysBetween(days[i], days[i-1]) == 1 {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	if current > longest {
		longest = current
	}
	return current, longest
}

func distinctDaysDesc(times []time.Time) []time.Time {
	seen := make(map[time.Time]struct{}, len(times))
	days := make([]time.Time, 0, len(times))
	for _, t := range times {
		d := domain.DayOf(t)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })
	return days
}

// daysBetween returns the number of calendar days from a to b for UTC
// midnights.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
