package models

// Course is a class the student is enrolled in, as returned by course
// enumeration.
type Course struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// CourseIndex resolves course names by id and remembers enumeration order.
type CourseIndex struct {
	order []string
	names map[string]string
}

// NewCourseIndex indexes the enumerated courses. Duplicate ids keep their
// first position.
func NewCourseIndex(courses []Course) *CourseIndex {
	idx := &CourseIndex{names: make(map[string]string, len(courses))}
	for _, c := range courses {
		if c.ID == "" {
			continue
		}
		if _, seen := idx.names[c.ID]; !seen {
			idx.order = append(idx.order, c.ID)
		}
		idx.names[c.ID] = c.Name
	}
	return idx
}

// IDs returns course ids in enumeration order.
func (i *CourseIndex) IDs() []string {
	return append([]string(nil), i.order...)
}

// Name returns the course name and whether the course is known.
func (i *CourseIndex) Name(id string) (string, bool) {
	name, ok := i.names[id]
	return name, ok
}

// Len returns the number of distinct courses.
func (i *CourseIndex) Len() int {
	return len(i.order)
}
