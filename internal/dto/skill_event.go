package dto

// Skill lifecycle event types handled by the gateway.
const (
	EventPermissionAccepted  = "AlexaSkillEvent.SkillPermissionAccepted"
	EventPermissionChanged   = "AlexaSkillEvent.SkillPermissionChanged"
	EventAccountLinked       = "AlexaSkillEvent.SkillAccountLinked"
	EventSubscriptionChanged = "AlexaSkillEvent.ProactiveSubscriptionChanged"
	NotificationsWriteScope  = "alexa::devices:all:notifications:write"
)

// SkillEventRequest is a lifecycle event forwarded by the voice runtime.
type SkillEventRequest struct {
	Context EventContext `json:"context"`
	Request EventBody    `json:"request"`
}

// EventContext carries the system context of the event.
type EventContext struct {
	System EventSystem `json:"System"`
}

// EventSystem identifies the voice user.
type EventSystem struct {
	User EventUser `json:"user"`
}

// EventUser holds the voice user id and the linked-account access token.
type EventUser struct {
	UserID      string `json:"userId" binding:"required"`
	AccessToken string `json:"accessToken"`
}

// EventBody describes the event.
type EventBody struct {
	Type      string         `json:"type" binding:"required"`
	RequestID string         `json:"requestId"`
	Timestamp string         `json:"timestamp"`
	Body      PermissionBody `json:"body"`
}

// PermissionBody lists the permissions the user granted.
type PermissionBody struct {
	AcceptedPermissions []Permission `json:"acceptedPermissions"`
}

// Permission is a granted scope.
type Permission struct {
	Scope string `json:"scope"`
}

// Scopes returns the granted scopes.
func (b PermissionBody) Scopes() []string {
	scopes := make([]string, 0, len(b.AcceptedPermissions))
	for _, p := range b.AcceptedPermissions {
		if p.Scope != "" {
			scopes = append(scopes, p.Scope)
		}
	}
	return scopes
}

// EventAck reports how an event was handled.
type EventAck struct {
	Type          string   `json:"type"`
	Action        string   `json:"action"`
	Registrations []string `json:"registrations,omitempty"`
}
