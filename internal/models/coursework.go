package models

import "time"

// CourseWorkType classifies a coursework item. Only assignments are surfaced.
type CourseWorkType string

const (
	CourseWorkTypeAssignment     CourseWorkType = "ASSIGNMENT"
	CourseWorkTypeShortAnswer    CourseWorkType = "SHORT_ANSWER_QUESTION"
	CourseWorkTypeMultipleChoice CourseWorkType = "MULTIPLE_CHOICE_QUESTION"
)

// Date is a calendar date without a time zone.
type Date struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// TimeOfDay is a wall-clock time. Zero-valued fields are omitted on the wire.
type TimeOfDay struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// CourseWork is an assignment or question published in a course.
type CourseWork struct {
	ID           string         `json:"id"`
	CourseID     string         `json:"courseId"`
	WorkType     CourseWorkType `json:"workType"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	DueDate      *Date          `json:"dueDate,omitempty"`
	DueTime      *TimeOfDay     `json:"dueTime,omitempty"`
	MaxPoints    *float64       `json:"maxPoints,omitempty"`
	CreationTime string         `json:"creationTime,omitempty"`
}

// DueInstant combines the due date and time in UTC. It reports false for
// anything other than an assignment with both a due date and a due time.
func (cw CourseWork) DueInstant() (time.Time, bool) {
	if cw.WorkType != CourseWorkTypeAssignment || cw.DueDate == nil || cw.DueTime == nil {
		return time.Time{}, false
	}
	d, t := cw.DueDate, cw.DueTime
	return time.Date(d.Year, time.Month(d.Month), d.Day, t.Hours, t.Minutes, 0, 0, time.UTC), true
}

// Gradable reports whether the coursework carries a usable point scale.
func (cw CourseWork) Gradable() bool {
	return cw.MaxPoints != nil && *cw.MaxPoints != 0
}

// SubmissionState is derived per request from correlated submissions and is
// never persisted.
type SubmissionState string

const (
	SubmissionStateMissing      SubmissionState = "MISSING"
	SubmissionStateNotSubmitted SubmissionState = "NOT_SUBMITTED"
	SubmissionStateSubmitted    SubmissionState = "SUBMITTED"
)
