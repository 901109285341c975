package notify

import (
	"fmt"
	"slices"
	"time"

	"github.com/roach88/keepsake/internal/payload"
)

// DefaultHorizon is how far ahead backends materialize reminders.
const DefaultHorizon = 7 * 24 * time.Hour

// Plan returns the reminder instants of goal that fall in [from, from+horizon),
// in ascending order and in UTC.
//
// Reminders fire at each of the schedule's times of day, in the schedule's
// timezone, on days selected by its frequency:
//   - once: the start date only
//   - daily: every day
//   - weekly: the selected weekdays (the start date's weekday if none)
//   - monthly: the start date's day of month, clamped to the month's end
//   - custom: every intervalDays days counted from the start date
//
// Nothing fires before the start date or after the end date. Inactive goals
// have no reminders.
func Plan(goal payload.Goal, from time.Time, horizon time.Duration) ([]time.Time, error) {
	if !goal.IsActive || horizon <= 0 {
		return nil, nil
	}
	s := goal.Schedule
	loc, err := time.LoadLocation(s.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("plan goal %s: %w", goal.ID, err)
	}
	if s.Frequency == payload.FrequencyCustom && (s.IntervalDays == nil || *s.IntervalDays < 1) {
		return nil, fmt.Errorf("plan goal %s: custom frequency needs a positive intervalDays", goal.ID)
	}

	until := from.Add(horizon)
	start := s.StartDate.In(loc)
	startDay := civilDay(start)

	times := slices.Clone(s.Times)
	slices.SortFunc(times, func(a, b payload.TimeOfDay) int {
		return (a.Hour*60 + a.Minute) - (b.Hour*60 + b.Minute)
	})

	var out []time.Time
	// Start a day early so reminders late in the previous local day that
	// land after from in UTC are not missed.
	day := civilDay(from.In(loc)).AddDate(0, 0, -1)
	for !day.After(civilDay(until.In(loc))) {
		if firesOn(s, day, start, startDay) {
			for _, tod := range times {
				at := time.Date(day.Year(), day.Month(), day.Day(), tod.Hour, tod.Minute, 0, 0, loc)
				if at.Before(from) || !at.Before(until) || at.Before(s.StartDate) {
					continue
				}
				if s.EndDate != nil && at.After(*s.EndDate) {
					continue
				}
				out = append(out, at.UTC())
			}
		}
		day = day.AddDate(0, 0, 1)
	}
	return out, nil
}

// firesOn reports whether the schedule selects the civil day.
func firesOn(s payload.Schedule, day, start, startDay time.Time) bool {
	if day.Before(startDay) {
		return false
	}
	switch s.Frequency {
	case payload.FrequencyOnce:
		return day.Equal(startDay)
	case payload.FrequencyDaily:
		return true
	case payload.FrequencyWeekly:
		if len(s.SelectedDays) == 0 {
			return day.Weekday() == start.Weekday()
		}
		return slices.Contains(s.SelectedDays, day.Weekday())
	case payload.FrequencyMonthly:
		want := start.Day()
		if last := daysIn(day.Year(), day.Month()); want > last {
			want = last
		}
		return day.Day() == want
	case payload.FrequencyCustom:
		elapsed := int(day.Sub(startDay).Hours() / 24)
		return elapsed%*s.IntervalDays == 0
	}
	return false
}

// civilDay returns t's calendar date as midnight UTC, so day arithmetic is
// free of DST shifts.
func civilDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
