package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/classroom-skill-api/internal/dto"
	"github.com/noah-isme/classroom-skill-api/internal/models"
)

// AnnouncementWindow is the fixed recency window for school communications.
const AnnouncementWindow = 7 * 24 * time.Hour

var instantLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// DueWindow selects coursework by due instant. Both bounds are inclusive.
//
// The voice runtime and the platform can disagree on what "today" means
// across time zones; the window is applied exactly as received.
type DueWindow struct {
	Start time.Time
	End   time.Time
}

// ParseDueWindow reads an ISO-8601 range. Values without an offset are read
// as UTC.
func ParseDueWindow(r *dto.TimeRange) (DueWindow, error) {
	if r == nil {
		return DueWindow{}, fmt.Errorf("dueTime is required")
	}
	start, err := parseInstant(r.Start)
	if err != nil {
		return DueWindow{}, fmt.Errorf("dueTime.start: %w", err)
	}
	end, err := parseInstant(r.End)
	if err != nil {
		return DueWindow{}, fmt.Errorf("dueTime.end: %w", err)
	}
	if end.Before(start) {
		return DueWindow{}, fmt.Errorf("dueTime.end is before dueTime.start")
	}
	return DueWindow{Start: start, End: end}, nil
}

// Contains reports whether t lies within [Start, End].
func (w DueWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// DueWithin returns the due instant of cw when it is an assignment with a due
// date and time inside the window.
func DueWithin(cw models.CourseWork, w DueWindow) (time.Time, bool) {
	due, ok := cw.DueInstant()
	if !ok || !w.Contains(due) {
		return time.Time{}, false
	}
	return due, true
}

// RecentAnnouncement reports whether a was updated within the trailing
// AnnouncementWindow of now.
func RecentAnnouncement(a models.Announcement, now time.Time) bool {
	return !a.UpdateTime.Before(now.UTC().Add(-AnnouncementWindow))
}

func parseInstant(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty instant")
	}
	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid instant %q", raw)
}
