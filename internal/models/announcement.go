package models

import "time"

// Announcement is a course stream post.
type Announcement struct {
	ID            string    `json:"id"`
	CourseID      string    `json:"courseId"`
	CreatorUserID string    `json:"creatorUserId"`
	Text          string    `json:"text"`
	UpdateTime    time.Time `json:"updateTime"`
}
