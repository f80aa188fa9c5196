package bids

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/mrhoo2/email-bdc-agent/internal/core/domain"
)

const daysPerWeek = 7

// GetDateGroup classifies date relative to the current instant in the local timezone.
func GetDateGroup(date *time.Time) domain.DateGroup {
	return DateGroupAt(date, time.Now())
}

// DateGroupAt classifies date relative to now. Calendar days and weeks are
// evaluated in now's location and weeks start on Monday. Checks run in
// priority order and the first match wins.
func DateGroupAt(date *time.Time, now time.Time) domain.DateGroup {
	if date == nil || date.IsZero() {
		return domain.DateGroupNoDate
	}

	d := date.In(now.Location())
	today := startOfDay(now)
	tomorrow := today.AddDate(0, 0, 1)
	weekEnd := endOfWeek(now)
	nextWeekStart := startOfDay(weekEnd).AddDate(0, 0, 1)
	nextWeekEnd := endOfWeek(nextWeekStart)

	switch {
	case d.Before(today):
		return domain.DateGroupOverdue
	case sameDay(d, today):
		return domain.DateGroupToday
	case sameDay(d, tomorrow):
		return domain.DateGroupTomorrow
	case within(d, today.AddDate(0, 0, 2), weekEnd):
		return domain.DateGroupThisWeek
	case within(d, nextWeekStart, nextWeekEnd):
		return domain.DateGroupNextWeek
	default:
		return domain.DateGroupLater
	}
}

// ParseDueDate parses an extracted due date as a calendar day in loc.
// Empty or unparseable input yields nil so it classifies as no_date.
func ParseDueDate(value string, loc *time.Location) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	if loc == nil {
		loc = time.Local
	}

	if t, err := time.ParseInLocation(domain.DueDateLayout, value, loc); err == nil {
		return &t
	}

	t, err := dateparse.ParseIn(value, loc)
	if err != nil || t.IsZero() {
		return nil
	}

	return &t
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfWeek(t time.Time) time.Time {
	// Monday is day 0 of the week.
	offset := (int(t.Weekday()) + daysPerWeek - 1) % daysPerWeek
	weekStart := startOfDay(t).AddDate(0, 0, -offset)

	return weekStart.AddDate(0, 0, daysPerWeek).Add(-time.Nanosecond)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()

	return ay == by && am == bm && ad == bd
}

func within(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}
