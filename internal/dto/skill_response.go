package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// SkillResponse is the envelope returned for every namespace.
type SkillResponse struct {
	Response ResponseBody `json:"response"`
}

// ResponseBody pairs the header with the namespace-specific payload.
type ResponseBody struct {
	Header  ResponseHeader  `json:"header"`
	Payload ResponsePayload `json:"payload"`
}

// ResponseHeader identifies the response.
type ResponseHeader struct {
	Namespace        string `json:"namespace"`
	Name             string `json:"name"`
	MessageID        string `json:"messageId"`
	InterfaceVersion string `json:"interfaceVersion"`
}

// PaginationContext reports how many entities the payload carries.
type PaginationContext struct {
	TotalCount int `json:"totalCount"`
}

// ResponsePayload serialises as {"paginationContext": ..., <Key>: Items}.
// Items must be a slice; a nil slice is written as [].
type ResponsePayload struct {
	PaginationContext PaginationContext
	Key               string
	Items             interface{}
}

// MarshalJSON writes the entity array under the namespace-specific key.
func (p ResponsePayload) MarshalJSON() ([]byte, error) {
	if p.Key == "" {
		return nil, fmt.Errorf("response payload: missing array key")
	}
	pagination, err := json.Marshal(p.PaginationContext)
	if err != nil {
		return nil, err
	}
	items := []byte("[]")
	if p.Items != nil {
		v := reflect.ValueOf(p.Items)
		if v.Kind() != reflect.Slice {
			return nil, fmt.Errorf("response payload: %s items must be a slice, got %T", p.Key, p.Items)
		}
		if !v.IsNil() {
			if items, err = json.Marshal(p.Items); err != nil {
				return nil, err
			}
		}
	}
	key, err := json.Marshal(p.Key)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(`{"paginationContext":`)
	buf.Write(pagination)
	buf.WriteByte(',')
	buf.Write(key)
	buf.WriteByte(':')
	buf.Write(items)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// StudentProfile is an entry of the studentProfiles array.
type StudentProfile struct {
	ID                  string     `json:"id"`
	AccountRelationType string     `json:"accountRelationType"`
	Name                PersonName `json:"name"`
}

// PersonName is the voice-facing name structure.
type PersonName struct {
	Given  string `json:"given"`
	Family string `json:"family"`
	Full   string `json:"full"`
}

// CourseItem is an entry of the courses array.
type CourseItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CourseworkItem is an entry of the coursework array.
type CourseworkItem struct {
	ID              string `json:"id"`
	CourseID        string `json:"courseId"`
	CourseName      string `json:"courseName"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Type            string `json:"type"`
	SubmissionState string `json:"submissionState"`
	DueTime         string `json:"dueTime"`
	PublishedTime   string `json:"publishedTime"`
}

// CourseworkGradeItem is an entry of the courseworkGrades array.
type CourseworkGradeItem struct {
	CourseworkID    string      `json:"courseworkId"`
	CourseID        string      `json:"courseId"`
	CourseName      string      `json:"courseName"`
	StudentID       string      `json:"studentId"`
	CourseworkType  string      `json:"courseworkType"`
	CourseworkTitle string      `json:"courseworkTitle"`
	Grade           GradeDetail `json:"grade"`
	LastGradedTime  string      `json:"lastGradedTime"`
}

// GradeDetail wraps the overall grade.
type GradeDetail struct {
	OverallGrade OverallGrade `json:"overallGrade"`
}

// OverallGrade wraps the score.
type OverallGrade struct {
	GradeScore GradeScore `json:"gradeScore"`
}

// GradeScore is a points-based score.
type GradeScore struct {
	Type      string  `json:"type"`
	Score     float64 `json:"score"`
	MaxPoints float64 `json:"maxPoints"`
}

// CommunicationItem is an entry of the schoolCommunications array.
type CommunicationItem struct {
	ID            string               `json:"id"`
	Type          string               `json:"type"`
	Kind          string               `json:"kind"`
	From          string               `json:"from"`
	Content       CommunicationContent `json:"content"`
	PublishedTime string               `json:"publishedTime"`
}

// CommunicationContent is the announcement body.
type CommunicationContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
