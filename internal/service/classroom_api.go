package service

import (
	"context"

	"github.com/noah-isme/classroom-skill-api/internal/models"
)

// ClassroomAPI is the remote capability surface the gateway consumes. Every
// call is read-only except the registration pair used by the permission
// lifecycle.
type ClassroomAPI interface {
	ListCourses(ctx context.Context, studentID string, pageSize int) ([]models.Course, error)
	GetCourse(ctx context.Context, courseID string) (*models.Course, error)
	ListCourseWork(ctx context.Context, courseID, orderBy string, pageSize int) ([]models.CourseWork, error)
	ListSubmissions(ctx context.Context, courseID, courseWorkID, userID string) ([]models.Submission, error)
	ListAnnouncements(ctx context.Context, courseID string) ([]models.Announcement, error)
	GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	CreateRegistration(ctx context.Context, courseID, topic string) (*models.Registration, error)
	DeleteRegistration(ctx context.Context, registrationID string) error
}

// ClassroomFactory builds an API client authenticated with the given token.
type ClassroomFactory func(token string) ClassroomAPI
