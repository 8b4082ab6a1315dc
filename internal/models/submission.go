package models

import "time"

// Submission is a student's submission for one coursework item.
type Submission struct {
	ID            string    `json:"id"`
	CourseID      string    `json:"courseId"`
	CourseWorkID  string    `json:"courseWorkId"`
	UserID        string    `json:"userId,omitempty"`
	State         string    `json:"state,omitempty"`
	AssignedGrade *float64  `json:"assignedGrade,omitempty"`
	UpdateTime    time.Time `json:"updateTime"`
}

// Graded reports whether a grade has been assigned.
func (s Submission) Graded() bool {
	return s.AssignedGrade != nil
}
