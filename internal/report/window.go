// Package report implements the expense aggregation engine and the report
// builder. Everything here is a pure function of its inputs: no state, no
// side effects, safe to call concurrently.
package report

import (
	"time"

	"github.com/smartspendr/bfa-go/internal/domain"
)

// Window is a named relative date range ("last week", "last month", ...).
type Window string

const (
	WindowWeek    Window = "week"
	WindowMonth   Window = "month"
	WindowQuarter Window = "quarter"
	WindowYear    Window = "year"
	WindowAll     Window = "all"
)

// Valid reports whether w is a known window label.
func (w Window) Valid() bool {
	switch w {
	case WindowWeek, WindowMonth, WindowQuarter, WindowYear, WindowAll:
		return true
	}
	return false
}

// Start returns the lower boundary of the window ending at now. The second
// return is false for WindowAll, which has no lower boundary.
//
// Month-based windows use calendar arithmetic: the boundary lands on the
// same day-of-month, clamped to the last day of shorter months. A quarter
// is exactly three calendar months.
func (w Window) Start(now time.Time) (time.Time, bool) {
	switch w {
	case WindowWeek:
		return now.AddDate(0, 0, -7), true
	case WindowMonth:
		return addMonthsClamped(now, -1), true
	case WindowQuarter:
		return addMonthsClamped(now, -3), true
	case WindowYear:
		return addMonthsClamped(now, -12), true
	}
	return time.Time{}, false
}

// Days returns the number of whole days the window spans, at least 1.
func (w Window) Days(now time.Time) int {
	start, ok := w.Start(now)
	if !ok {
		return 0
	}
	return WholeDays(start, now)
}

// WholeDays returns the whole days between start and end, at least 1.
func WholeDays(start, end time.Time) int {
	d := int(end.Sub(start).Hours() / 24)
	if d < 1 {
		return 1
	}
	return d
}

// addMonthsClamped shifts t by the given number of months, keeping the
// day-of-month and clamping it to the target month's last day. This differs
// from time.AddDate, which normalizes (Mar 31 minus one month becomes
// Mar 3) and would surprise anyone asking for "last month".
func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := first.AddDate(0, 1, -1).Day(); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// FilterByWindow returns the records whose date falls in [start, end).
func FilterByWindow(records []domain.Expense, start, end time.Time) []domain.Expense {
	out := make([]domain.Expense, 0, len(records))
	for _, r := range records {
		if !r.Date.Before(start) && r.Date.Before(end) {
			out = append(out, r)
		}
	}
	return out
}

// FilterLastWindow returns the records in (start, now] for the relative
// window w ending at now. WindowAll returns every record.
func FilterLastWindow(records []domain.Expense, w Window, now time.Time) []domain.Expense {
	start, bounded := w.Start(now)
	if !bounded {
		out := make([]domain.Expense, len(records))
		copy(out, records)
		return out
	}
	out := make([]domain.Expense, 0, len(records))
	for _, r := range records {
		if r.Date.After(start) && !r.Date.After(now) {
			out = append(out, r)
		}
	}
	return out
}

// RelativeDateLabel renders a date the way the expense list displays it:
// "Today", "Yesterday", the weekday name within the last week, otherwise
// "Jan 02".
func RelativeDateLabel(date, now time.Time) string {
	sameDay := func(a, b time.Time) bool {
		ay, am, ad := a.Date()
		by, bm, bd := b.Date()
		return ay == by && am == bm && ad == bd
	}
	switch {
	case sameDay(date, now):
		return "Today"
	case sameDay(date, now.AddDate(0, 0, -1)):
		return "Yesterday"
	case date.After(now.AddDate(0, 0, -7)):
		return date.Weekday().String()
	}
	return date.Format("Jan 02")
}
