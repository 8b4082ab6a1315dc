package service

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-skill-api/internal/classroom"
	"github.com/noah-isme/classroom-skill-api/internal/dto"
	"github.com/noah-isme/classroom-skill-api/internal/models"
	"github.com/noah-isme/classroom-skill-api/pkg/batch"
	appErrors "github.com/noah-isme/classroom-skill-api/pkg/errors"
)

const (
	// DefaultStudentID addresses the owner of the access token.
	DefaultStudentID = "me"

	courseWorkOrder   = "dueDate desc"
	allCourseWork     = "-"
	relationSelf      = "SELF"
	gradeScoreType    = "POINTS"
	communicationType = "GENERIC_FROM"
	communicationKind = "ANNOUNCEMENT"
	contentType       = "PLAIN_TEXT"
)

// Query is a validated directive ready for aggregation.
type Query struct {
	StudentID  string
	CourseID   string
	Due        DueWindow
	MaxResults int
}

// AggregationServiceConfig tunes the fan-out.
type AggregationServiceConfig struct {
	BatchConcurrency int
}

// AggregationService answers every namespace by enumerating courses, fanning
// out batched sub-queries per kind and correlating the results.
type AggregationService struct {
	logger  *zap.Logger
	metrics *MetricsService
	cfg     AggregationServiceConfig
	now     func() time.Time
	newID   func() string
}

// AggregationServiceParams groups constructor dependencies.
type AggregationServiceParams struct {
	Metrics *MetricsService
	Logger  *zap.Logger
	Config  AggregationServiceConfig
}

// NewAggregationService constructs the engine.
func NewAggregationService(params AggregationServiceParams) *AggregationService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := params.Config
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = batch.DefaultConcurrency
	}
	return &AggregationService{
		logger:  logger,
		metrics: params.Metrics,
		cfg:     cfg,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

func newBatch[T any](s *AggregationService, kind string, cb batch.Callback[T]) *batch.Batch[T] {
	opts := []batch.Option{
		batch.WithConcurrency(s.cfg.BatchConcurrency),
		batch.WithLogger(s.logger),
	}
	if s.metrics != nil {
		opts = append(opts, batch.WithObserver(s.metrics))
	}
	return batch.New(kind, cb, opts...)
}

// StudentProfiles resolves the profile of the queried student.
func (s *AggregationService) StudentProfiles(ctx context.Context, api ClassroomAPI, q Query) (*dto.SkillResponse, error) {
	profile, err := api.GetUserProfile(ctx, q.StudentID)
	if err != nil {
		return nil, s.upstreamError("resolve student profile", err)
	}
	items := []dto.StudentProfile{{
		ID:                  profile.ID,
		AccountRelationType: relationSelf,
		Name: dto.PersonName{
			Given:  profile.Name.GivenName,
			Family: profile.Name.FamilyName,
			Full:   profile.Name.FullName,
		},
	}}
	return Assemble(models.NamespaceStudentProfile, items, q.MaxResults, s.newID())
}

// Courses lists the student's courses in remote order.
func (s *AggregationService) Courses(ctx context.Context, api ClassroomAPI, q Query) (*dto.SkillResponse, error) {
	courses, err := api.ListCourses(ctx, q.StudentID, q.MaxResults)
	if err != nil {
		return nil, s.upstreamError("list courses", err)
	}
	items := make([]dto.CourseItem, 0, len(courses))
	for _, c := range courses {
		if c.ID == "" {
			continue
		}
		items = append(items, dto.CourseItem{ID: c.ID, Name: c.Name, Description: c.Description})
	}
	return Assemble(models.NamespaceCourse, items, q.MaxResults, s.newID())
}

// Coursework lists assignments due within the query window together with the
// student's submission state.
func (s *AggregationService) Coursework(ctx context.Context, api ClassroomAPI, q Query) (*dto.SkillResponse, error) {
	courses, err := api.ListCourses(ctx, q.StudentID, 0)
	if err != nil {
		return nil, s.upstreamError("list courses", err)
	}
	index := models.NewCourseIndex(courses)
	store := NewCorrelationStore()

	works := newBatch(s, "coursework", func(courseID string, items []models.CourseWork, err error) {
		if err == nil {
			store.AddCourseWork(courseID, items)
		}
	})
	subs := newBatch(s, "submissions", func(_ string, items []models.Submission, err error) {
		if err == nil {
			store.AddSubmissions(items)
		}
	})
	for _, id := range index.IDs() {
		courseID := id
		works.Add(courseID, func(ctx context.Context) ([]models.CourseWork, error) {
			return api.ListCourseWork(ctx, courseID, courseWorkOrder, q.MaxResults)
		})
		subs.Add(courseID, func(ctx context.Context) ([]models.Submission, error) {
			return api.ListSubmissions(ctx, courseID, allCourseWork, q.StudentID)
		})
	}
	works.Execute(ctx)
	subs.Execute(ctx)

	type dueItem struct {
		due  time.Time
		item dto.CourseworkItem
	}
	var selected []dueItem
	for _, cw := range store.CourseWorkItems() {
		due, ok := DueWithin(cw, q.Due)
		if !ok {
			continue
		}
		courseName, _ := index.Name(cw.CourseID)
		selected = append(selected, dueItem{due: due, item: dto.CourseworkItem{
			ID:              cw.ID,
			CourseID:        cw.CourseID,
			CourseName:      courseName,
			Title:           cw.Title,
			Description:     cw.Description,
			Type:            string(models.CourseWorkTypeAssignment),
			SubmissionState: string(DeriveSubmissionState(store.Submissions(cw.ID))),
			DueTime:         due.Format(time.RFC3339),
			PublishedTime:   cw.CreationTime,
		}})
	}
	sort.Slice(selected, func(i, j int) bool {
		a, b := selected[i], selected[j]
		if !a.due.Equal(b.due) {
			return a.due.Before(b.due)
		}
		if a.item.CourseID != b.item.CourseID {
			return a.item.CourseID < b.item.CourseID
		}
		return a.item.ID < b.item.ID
	})

	items := make([]dto.CourseworkItem, 0, len(selected))
	for _, sel := range selected {
		items = append(items, sel.item)
	}
	return Assemble(models.NamespaceCoursework, items, q.MaxResults, s.newID())
}

// CourseworkGrades lists graded coursework, optionally narrowed to one course.
func (s *AggregationService) CourseworkGrades(ctx context.Context, api ClassroomAPI, q Query) (*dto.SkillResponse, error) {
	index, err := s.gradeCourses(ctx, api, q)
	if err != nil {
		return nil, err
	}
	store := NewCorrelationStore()

	subs := newBatch(s, "submissions", func(_ string, items []models.Submission, err error) {
		if err == nil {
			store.AddSubmissions(items)
		}
	})
	works := newBatch(s, "coursework", func(courseID string, items []models.CourseWork, err error) {
		if err == nil {
			store.AddCourseWork(courseID, items)
		}
	})
	for _, id := range index.IDs() {
		courseID := id
		subs.Add(courseID, func(ctx context.Context) ([]models.Submission, error) {
			return api.ListSubmissions(ctx, courseID, allCourseWork, q.StudentID)
		})
		works.Add(courseID, func(ctx context.Context) ([]models.CourseWork, error) {
			return api.ListCourseWork(ctx, courseID, courseWorkOrder, 0)
		})
	}
	subs.Execute(ctx)
	works.Execute(ctx)

	type gradedItem struct {
		graded time.Time
		item   dto.CourseworkGradeItem
	}
	var selected []gradedItem
	for _, courseWorkID := range store.SubmissionKeys() {
		sub, ok := LatestGradedSubmission(store.Submissions(courseWorkID))
		if !ok {
			continue
		}
		cw, ok := store.CourseWork(courseWorkID)
		if !ok || cw.Title == "" || !cw.Gradable() {
			continue
		}
		courseID := cw.CourseID
		if courseID == "" {
			courseID = sub.CourseID
		}
		courseName, ok := index.Name(courseID)
		if !ok {
			continue
		}
		selected = append(selected, gradedItem{graded: sub.UpdateTime, item: dto.CourseworkGradeItem{
			CourseworkID:    courseWorkID,
			CourseID:        courseID,
			CourseName:      courseName,
			StudentID:       q.StudentID,
			CourseworkType:  string(models.CourseWorkTypeAssignment),
			CourseworkTitle: cw.Title,
			Grade: dto.GradeDetail{OverallGrade: dto.OverallGrade{GradeScore: dto.GradeScore{
				Type:      gradeScoreType,
				Score:     *sub.AssignedGrade,
				MaxPoints: *cw.MaxPoints,
			}}},
			LastGradedTime: formatInstant(sub.UpdateTime),
		}})
	}
	sort.Slice(selected, func(i, j int) bool {
		a, b := selected[i], selected[j]
		if !a.graded.Equal(b.graded) {
			return a.graded.After(b.graded)
		}
		return a.item.CourseworkID < b.item.CourseworkID
	})

	items := make([]dto.CourseworkGradeItem, 0, len(selected))
	for _, sel := range selected {
		items = append(items, sel.item)
	}
	return Assemble(models.NamespaceCourseworkGrade, items, q.MaxResults, s.newID())
}

// Announcements lists recent announcements across every course with the
// author's display name.
func (s *AggregationService) Announcements(ctx context.Context, api ClassroomAPI, q Query) (*dto.SkillResponse, error) {
	courses, err := api.ListCourses(ctx, q.StudentID, 0)
	if err != nil {
		return nil, s.upstreamError("list courses", err)
	}
	index := models.NewCourseIndex(courses)
	store := NewCorrelationStore()

	anns := newBatch(s, "announcements", func(courseID string, items []models.Announcement, err error) {
		if err == nil {
			store.AddAnnouncements(courseID, items)
		}
	})
	for _, id := range index.IDs() {
		courseID := id
		anns.Add(courseID, func(ctx context.Context) ([]models.Announcement, error) {
			return api.ListAnnouncements(ctx, courseID)
		})
	}
	anns.Execute(ctx)

	now := s.now()
	var recent []models.Announcement
	for _, a := range store.Announcements() {
		if RecentAnnouncement(a, now) {
			recent = append(recent, a)
		}
	}
	sort.Slice(recent, func(i, j int) bool {
		a, b := recent[i], recent[j]
		if !a.UpdateTime.Equal(b.UpdateTime) {
			return a.UpdateTime.After(b.UpdateTime)
		}
		return a.ID < b.ID
	})
	if q.MaxResults > 0 && len(recent) > q.MaxResults {
		recent = recent[:q.MaxResults]
	}

	authors := map[string]struct{}{}
	for _, a := range recent {
		if a.CreatorUserID != "" {
			authors[a.CreatorUserID] = struct{}{}
		}
	}
	profiles := newBatch(s, "profiles", func(userID string, profile *models.UserProfile, err error) {
		if err == nil && profile != nil {
			store.AddProfile(userID, *profile)
		}
	})
	for _, id := range sortedKeys(authors) {
		userID := id
		profiles.Add(userID, func(ctx context.Context) (*models.UserProfile, error) {
			return api.GetUserProfile(ctx, userID)
		})
	}
	profiles.Execute(ctx)

	items := make([]dto.CommunicationItem, 0, len(recent))
	for _, a := range recent {
		items = append(items, dto.CommunicationItem{
			ID:            a.ID,
			Type:          communicationType,
			Kind:          communicationKind,
			From:          store.Profile(a.CreatorUserID).DisplayName(),
			Content:       dto.CommunicationContent{Type: contentType, Text: a.Text},
			PublishedTime: formatInstant(a.UpdateTime),
		})
	}
	return Assemble(models.NamespaceCommunication, items, q.MaxResults, s.newID())
}

func (s *AggregationService) gradeCourses(ctx context.Context, api ClassroomAPI, q Query) (*models.CourseIndex, error) {
	if q.CourseID == "" {
		courses, err := api.ListCourses(ctx, q.StudentID, 0)
		if err != nil {
			return nil, s.upstreamError("list courses", err)
		}
		return models.NewCourseIndex(courses), nil
	}
	course, err := api.GetCourse(ctx, q.CourseID)
	if err != nil {
		return nil, s.upstreamError("get course", err)
	}
	return models.NewCourseIndex([]models.Course{*course}), nil
}

// upstreamError maps a failed root call. Sub-query failures never reach here.
func (s *AggregationService) upstreamError(op string, err error) error {
	s.logger.Warn("classroom root call failed", zap.String("operation", op), zap.Error(err))
	var apiErr *classroom.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized:
			return appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "linked account token was rejected")
		case http.StatusNotFound:
			return appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, op+": not found")
		}
	}
	return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, op+" failed")
}

func formatInstant(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
