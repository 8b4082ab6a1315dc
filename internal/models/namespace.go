package models

// Namespace selects the response type of a skill directive.
type Namespace string

const (
	NamespaceStudentProfile  Namespace = "Alexa.Education.Profile.Student"
	NamespaceCourse          Namespace = "Alexa.Education.Course"
	NamespaceCoursework      Namespace = "Alexa.Education.Coursework"
	NamespaceCourseworkGrade Namespace = "Alexa.Education.Grade.Coursework"
	NamespaceCommunication   Namespace = "Alexa.Education.School.Communication"
)

// Fixed header values shared by every response.
const (
	ResponseName     = "GetResponse"
	InterfaceVersion = "1.0"
)

var payloadKeys = map[Namespace]string{
	NamespaceStudentProfile:  "studentProfiles",
	NamespaceCourse:          "courses",
	NamespaceCoursework:      "coursework",
	NamespaceCourseworkGrade: "courseworkGrades",
	NamespaceCommunication:   "schoolCommunications",
}

// Namespaces lists every supported namespace.
func Namespaces() []Namespace {
	return []Namespace{
		NamespaceStudentProfile,
		NamespaceCourse,
		NamespaceCoursework,
		NamespaceCourseworkGrade,
		NamespaceCommunication,
	}
}

// PayloadKey returns the name of the payload array for the namespace.
func (n Namespace) PayloadKey() (string, bool) {
	key, ok := payloadKeys[n]
	return key, ok
}

// Valid reports whether the namespace is supported.
func (n Namespace) Valid() bool {
	_, ok := payloadKeys[n]
	return ok
}
