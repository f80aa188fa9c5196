package bids

import (
	"testing"
	"time"

	"github.com/mrhoo2/email-bdc-agent/internal/core/domain"
)

// Thursday.
var testNow = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

const errDateGroupFmt = "DateGroupAt(%v) = %q, want %q"

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestDateGroupAt(t *testing.T) {
	lateToday := time.Date(2026, 10, 15, 23, 30, 0, 0, time.UTC)
	lastNight := time.Date(2026, 10, 14, 23, 59, 0, 0, time.UTC)

	tests := []struct {
		name string
		date *time.Time
		want domain.DateGroup
	}{
		{"nil", nil, domain.DateGroupNoDate},
		{"zero", &time.Time{}, domain.DateGroupNoDate},
		{"yesterday", day(2026, 10, 14), domain.DateGroupOverdue},
		{"last night", &lastNight, domain.DateGroupOverdue},
		{"last year", day(2025, 12, 1), domain.DateGroupOverdue},
		{"start of today", day(2026, 10, 15), domain.DateGroupToday},
		{"late today", &lateToday, domain.DateGroupToday},
		{"tomorrow", day(2026, 10, 16), domain.DateGroupTomorrow},
		{"saturday", day(2026, 10, 17), domain.DateGroupThisWeek},
		{"sunday", day(2026, 10, 18), domain.DateGroupThisWeek},
		{"next monday", day(2026, 10, 19), domain.DateGroupNextWeek},
		{"next sunday", day(2026, 10, 25), domain.DateGroupNextWeek},
		{"week after", day(2026, 10, 26), domain.DateGroupLater},
		{"next year", day(2027, 3, 1), domain.DateGroupLater},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DateGroupAt(tt.date, testNow); got != tt.want {
				t.Errorf(errDateGroupFmt, tt.date, got, tt.want)
			}
		})
	}
}

func TestDateGroupAt_WeekBoundaries(t *testing.T) {
	sunday := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	monday := time.Date(2026, 10, 12, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		date *time.Time
		want domain.DateGroup
	}{
		{"sunday: monday is tomorrow", sunday, day(2026, 10, 19), domain.DateGroupTomorrow},
		{"sunday: tuesday is next week", sunday, day(2026, 10, 20), domain.DateGroupNextWeek},
		{"sunday: following sunday is next week", sunday, day(2026, 10, 25), domain.DateGroupNextWeek},
		{"sunday: following monday is later", sunday, day(2026, 10, 26), domain.DateGroupLater},
		{"monday: wednesday is this week", monday, day(2026, 10, 14), domain.DateGroupThisWeek},
		{"monday: sunday is this week", monday, day(2026, 10, 18), domain.DateGroupThisWeek},
		{"monday: next monday is next week", monday, day(2026, 10, 19), domain.DateGroupNextWeek},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DateGroupAt(tt.date, tt.now); got != tt.want {
				t.Errorf(errDateGroupFmt, tt.date, got, tt.want)
			}
		})
	}
}

func TestDateGroupAt_UsesNowLocation(t *testing.T) {
	la, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	// 01:00 UTC on the 16th is still the evening of the 15th in Los Angeles.
	now := time.Date(2026, 10, 15, 17, 0, 0, 0, la)
	due := time.Date(2026, 10, 16, 1, 0, 0, 0, time.UTC)

	if got := DateGroupAt(&due, now); got != domain.DateGroupToday {
		t.Errorf(errDateGroupFmt, due, got, domain.DateGroupToday)
	}
}

func TestParseDueDate(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  *time.Time
	}{
		{"iso", "2026-10-21", day(2026, 10, 21)},
		{"padded", "  2026-10-21 ", day(2026, 10, 21)},
		{"us slashes", "10/21/2026", day(2026, 10, 21)},
		{"long form", "October 21, 2026", day(2026, 10, 21)},
		{"empty", "", nil},
		{"placeholder", "TBD", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDueDate(tt.value, time.UTC)

			switch {
			case tt.want == nil && got != nil:
				t.Errorf("ParseDueDate(%q) = %v, want nil", tt.value, *got)
			case tt.want != nil && got == nil:
				t.Errorf("ParseDueDate(%q) = nil, want %v", tt.value, *tt.want)
			case tt.want != nil && !got.Equal(*tt.want):
				t.Errorf("ParseDueDate(%q) = %v, want %v", tt.value, *got, *tt.want)
			}
		})
	}
}

func TestParseDueDate_Unparseable_IsNoDate(t *testing.T) {
	if got := DateGroupAt(ParseDueDate("TBD", time.UTC), testNow); got != domain.DateGroupNoDate {
		t.Errorf("unparseable date grouped as %q, want %q", got, domain.DateGroupNoDate)
	}
}

func TestGetDateGroup(t *testing.T) {
	yesterday := time.Now().AddDate(0, 0, -1)
	nextMonth := time.Now().AddDate(0, 1, 7)

	if got := GetDateGroup(&yesterday); got != domain.DateGroupOverdue {
		t.Errorf("GetDateGroup(yesterday) = %q, want %q", got, domain.DateGroupOverdue)
	}

	if got := GetDateGroup(nil); got != domain.DateGroupNoDate {
		t.Errorf("GetDateGroup(nil) = %q, want %q", got, domain.DateGroupNoDate)
	}

	if got := GetDateGroup(&nextMonth); got != domain.DateGroupLater {
		t.Errorf("GetDateGroup(next month) = %q, want %q", got, domain.DateGroupLater)
	}
}
