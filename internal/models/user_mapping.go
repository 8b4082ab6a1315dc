package models

import (
	"time"

	"github.com/lib/pq"
)

// UserMapping links a platform user to the voice-assistant user that granted
// notification permissions, along with the push registrations created for them.
type UserMapping struct {
	PlatformUserID  string         `db:"platform_user_id" json:"platformUserId"`
	VoiceUserID     string         `db:"voice_user_id" json:"voiceUserId"`
	RegistrationIDs pq.StringArray `db:"registration_ids" json:"registrationIds"`
	CreatedAt       time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updatedAt"`
}

// Registration is a push-notification registration for course changes.
type Registration struct {
	RegistrationID string `json:"registrationId"`
	CourseID       string `json:"-"`
	ExpiryTime     string `json:"expiryTime,omitempty"`
}
