package service

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/noah-isme/classroom-skill-api/internal/classroom"
	"github.com/noah-isme/classroom-skill-api/internal/models"
)

type fakeClassroom struct {
	mu sync.Mutex

	profiles       map[string]*models.UserProfile
	courses        []models.Course
	coursesErr     error
	courseWork     map[string][]models.CourseWork
	courseWorkErr  map[string]error
	submissions    map[string][]models.Submission
	submissionsErr map[string]error
	announcements  map[string][]models.Announcement
	registrations  map[string]string
	deleteErr      error

	calls           []string
	submissionUsers []string
	pageSizes       []int
	deleted         []string
}

func newFakeClassroom() *fakeClassroom {
	return &fakeClassroom{
		profiles:       map[string]*models.UserProfile{},
		courseWork:     map[string][]models.CourseWork{},
		courseWorkErr:  map[string]error{},
		submissions:    map[string][]models.Submission{},
		submissionsErr: map[string]error{},
		announcements:  map[string][]models.Announcement{},
		registrations:  map[string]string{},
	}
}

func (f *fakeClassroom) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeClassroom) callCount(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (f *fakeClassroom) ListCourses(_ context.Context, studentID string, pageSize int) ([]models.Course, error) {
	f.record("courses.list:" + studentID)
	f.mu.Lock()
	f.pageSizes = append(f.pageSizes, pageSize)
	f.mu.Unlock()
	if f.coursesErr != nil {
		return nil, f.coursesErr
	}
	return f.courses, nil
}

func (f *fakeClassroom) GetCourse(_ context.Context, courseID string) (*models.Course, error) {
	f.record("courses.get:" + courseID)
	for _, c := range f.courses {
		if c.ID == courseID {
			c := c
			return &c, nil
		}
	}
	return nil, notFound("courses.get")
}

func (f *fakeClassroom) ListCourseWork(_ context.Context, courseID, _ string, _ int) ([]models.CourseWork, error) {
	f.record("courseWork.list:" + courseID)
	if err := f.courseWorkErr[courseID]; err != nil {
		return nil, err
	}
	return f.courseWork[courseID], nil
}

func (f *fakeClassroom) ListSubmissions(_ context.Context, courseID, _ string, userID string) ([]models.Submission, error) {
	f.record("studentSubmissions.list:" + courseID)
	f.mu.Lock()
	f.submissionUsers = append(f.submissionUsers, userID)
	f.mu.Unlock()
	if err := f.submissionsErr[courseID]; err != nil {
		return nil, err
	}
	return f.submissions[courseID], nil
}

func (f *fakeClassroom) ListAnnouncements(_ context.Context, courseID string) ([]models.Announcement, error) {
	f.record("announcements.list:" + courseID)
	return f.announcements[courseID], nil
}

func (f *fakeClassroom) GetUserProfile(_ context.Context, userID string) (*models.UserProfile, error) {
	f.record("userProfiles.get:" + userID)
	p, ok := f.profiles[userID]
	if !ok {
		return nil, notFound("userProfiles.get")
	}
	return p, nil
}

func (f *fakeClassroom) CreateRegistration(_ context.Context, courseID, _ string) (*models.Registration, error) {
	f.record("registrations.create:" + courseID)
	id, ok := f.registrations[courseID]
	if !ok {
		return nil, &classroom.APIError{Operation: "registrations.create", StatusCode: http.StatusForbidden}
	}
	return &models.Registration{RegistrationID: id, CourseID: courseID}, nil
}

func (f *fakeClassroom) DeleteRegistration(_ context.Context, registrationID string) error {
	f.record("registrations.delete:" + registrationID)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	f.deleted = append(f.deleted, registrationID)
	f.mu.Unlock()
	return nil
}

func (f *fakeClassroom) factory() ClassroomFactory {
	return func(string) ClassroomAPI { return f }
}

func notFound(op string) error {
	return fmt.Errorf("wrapped: %w", &classroom.APIError{Operation: op, StatusCode: http.StatusNotFound, Status: "NOT_FOUND"})
}

func ptr(v float64) *float64 { return &v }
