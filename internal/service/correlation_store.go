package service

import (
	"sort"
	"sync"

	"github.com/noah-isme/classroom-skill-api/internal/models"
)

// CorrelationStore accumulates batch results for one request. Writers may
// arrive in any order; every merge is keyed so the final snapshot does not
// depend on arrival order. Once the batches have drained the store is only
// read.
type CorrelationStore struct {
	mu sync.Mutex

	courseWork         map[string]models.CourseWork
	courseWorkByCourse map[string][]string
	submissions        map[string][]models.Submission
	announcements      map[string][]models.Announcement
	profiles           map[string]models.UserProfile
}

// NewCorrelationStore returns an empty store.
func NewCorrelationStore() *CorrelationStore {
	return &CorrelationStore{
		courseWork:         map[string]models.CourseWork{},
		courseWorkByCourse: map[string][]string{},
		submissions:        map[string][]models.Submission{},
		announcements:      map[string][]models.Announcement{},
		profiles:           map[string]models.UserProfile{},
	}
}

// AddCourseWork records the coursework listed for courseID. Items lacking a
// course id inherit it; a repeated coursework id overwrites the earlier value.
func (s *CorrelationStore) AddCourseWork(courseID string, items []models.CourseWork) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cw := range items {
		if cw.ID == "" {
			continue
		}
		if cw.CourseID == "" {
			cw.CourseID = courseID
		}
		if _, seen := s.courseWork[cw.ID]; !seen {
			s.courseWorkByCourse[cw.CourseID] = append(s.courseWorkByCourse[cw.CourseID], cw.ID)
		}
		s.courseWork[cw.ID] = cw
	}
}

// AddSubmissions appends submissions under their coursework id, keeping the
// remote order within each key.
func (s *CorrelationStore) AddSubmissions(items []models.Submission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range items {
		if sub.CourseWorkID == "" {
			continue
		}
		s.submissions[sub.CourseWorkID] = append(s.submissions[sub.CourseWorkID], sub)
	}
}

// AddAnnouncements records the announcements of courseID, replacing any
// earlier list for the same course.
func (s *CorrelationStore) AddAnnouncements(courseID string, items []models.Announcement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]models.Announcement, 0, len(items))
	for _, a := range items {
		if a.CourseID == "" {
			a.CourseID = courseID
		}
		list = append(list, a)
	}
	s.announcements[courseID] = list
}

// AddProfile records the profile resolved for userID.
func (s *CorrelationStore) AddProfile(userID string, profile models.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[userID] = profile
}

// CourseWork looks up a coursework item by id.
func (s *CorrelationStore) CourseWork(id string) (models.CourseWork, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cw, ok := s.courseWork[id]
	return cw, ok
}

// CourseWorkItems returns every coursework item ordered by course id, then by
// the remote order within the course.
func (s *CorrelationStore) CourseWorkItems() []models.CourseWork {
	s.mu.Lock()
	defer s.mu.Unlock()
	courseIDs := sortedKeys(s.courseWorkByCourse)
	items := make([]models.CourseWork, 0, len(s.courseWork))
	for _, courseID := range courseIDs {
		for _, id := range s.courseWorkByCourse[courseID] {
			items = append(items, s.courseWork[id])
		}
	}
	return items
}

// Submissions returns the submissions correlated to a coursework id.
func (s *CorrelationStore) Submissions(courseWorkID string) []models.Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Submission(nil), s.submissions[courseWorkID]...)
}

// SubmissionKeys returns the coursework ids that have submissions, sorted.
func (s *CorrelationStore) SubmissionKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.submissions)
}

// Announcements returns every announcement ordered by course id, then by the
// remote order within the course.
func (s *CorrelationStore) Announcements() []models.Announcement {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Announcement
	for _, courseID := range sortedKeys(s.announcements) {
		out = append(out, s.announcements[courseID]...)
	}
	return out
}

// Profile returns the profile resolved for userID, or nil.
func (s *CorrelationStore) Profile(userID string) *models.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil
	}
	return &p
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
