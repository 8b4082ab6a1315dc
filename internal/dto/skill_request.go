package dto

// SkillRequest is the directive envelope forwarded by the voice runtime.
type SkillRequest struct {
	Request SkillDirective `json:"request"`
}

// SkillDirective carries the namespace header, the linked-account token and
// the query payload.
type SkillDirective struct {
	Header        DirectiveHeader `json:"header"`
	Authorization Authorization   `json:"authorization"`
	Payload       QueryPayload    `json:"payload"`
}

// DirectiveHeader identifies the requested response type.
type DirectiveHeader struct {
	Namespace        string `json:"namespace" binding:"required"`
	Name             string `json:"name"`
	MessageID        string `json:"messageId"`
	InterfaceVersion string `json:"interfaceVersion"`
}

// Authorization holds the platform access token of the linked account.
type Authorization struct {
	Type  string `json:"type"`
	Token string `json:"token" binding:"required"`
}

// QueryPayload is the query and pagination request of a directive.
type QueryPayload struct {
	Query             Query             `json:"query"`
	PaginationContext PaginationRequest `json:"paginationContext"`
}

// Query wraps the match criteria.
type Query struct {
	MatchAll MatchAll `json:"matchAll"`
}

// MatchAll lists the optional filters a directive may carry.
type MatchAll struct {
	StudentID string     `json:"studentId,omitempty"`
	CourseID  string     `json:"courseId,omitempty"`
	DueTime   *TimeRange `json:"dueTime,omitempty"`
}

// TimeRange is an ISO-8601 instant range.
type TimeRange struct {
	Start string `json:"start" binding:"required"`
	End   string `json:"end" binding:"required"`
}

// PaginationRequest bounds the number of returned entities.
type PaginationRequest struct {
	MaxResults int `json:"maxResults" binding:"gte=0"`
}
