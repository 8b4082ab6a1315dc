package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-skill-api/internal/dto"
	"github.com/noah-isme/classroom-skill-api/internal/models"
	appErrors "github.com/noah-isme/classroom-skill-api/pkg/errors"
)

type queryHandler func(ctx context.Context, api ClassroomAPI, q Query) (*dto.SkillResponse, error)

// SkillService validates directives and routes them to the aggregation engine
// by namespace.
type SkillService struct {
	factory   ClassroomFactory
	handlers  map[models.Namespace]queryHandler
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSkillService builds the namespace dispatch table. A nil validator is
// replaced by one reading the same binding tags gin uses.
func NewSkillService(engine *AggregationService, factory ClassroomFactory, validate *validator.Validate, logger *zap.Logger) *SkillService {
	if validate == nil {
		validate = validator.New()
		validate.SetTagName("binding")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SkillService{
		factory: factory,
		handlers: map[models.Namespace]queryHandler{
			models.NamespaceStudentProfile:  engine.StudentProfiles,
			models.NamespaceCourse:          engine.Courses,
			models.NamespaceCoursework:      engine.Coursework,
			models.NamespaceCourseworkGrade: engine.CourseworkGrades,
			models.NamespaceCommunication:   engine.Announcements,
		},
		validator: validate,
		logger:    logger,
	}
}

// Supports reports whether a namespace has a handler.
func (s *SkillService) Supports(ns models.Namespace) bool {
	_, ok := s.handlers[ns]
	return ok
}

// Handle answers one directive.
func (s *SkillService) Handle(ctx context.Context, req *dto.SkillRequest) (*dto.SkillResponse, error) {
	if req == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "request is required")
	}
	directive := req.Request
	ns := models.Namespace(strings.TrimSpace(directive.Header.Namespace))
	handler, ok := s.handlers[ns]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnknownNamespace, fmt.Sprintf("unsupported namespace %q", ns))
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid skill directive")
	}
	token := strings.TrimSpace(directive.Authorization.Token)
	if token == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "authorization token is required")
	}
	q, err := parseQuery(ns, directive.Payload)
	if err != nil {
		return nil, err
	}

	resp, err := handler(ctx, s.factory(token), q)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("skill query answered",
		zap.String("namespace", string(ns)),
		zap.Int("total_count", resp.Response.Payload.PaginationContext.TotalCount),
	)
	return resp, nil
}

func parseQuery(ns models.Namespace, payload dto.QueryPayload) (Query, error) {
	match := payload.Query.MatchAll
	q := Query{
		StudentID:  strings.TrimSpace(match.StudentID),
		CourseID:   strings.TrimSpace(match.CourseID),
		MaxResults: payload.PaginationContext.MaxResults,
	}
	if q.StudentID == "" {
		q.StudentID = DefaultStudentID
	}
	if q.MaxResults < 0 {
		return Query{}, appErrors.Clone(appErrors.ErrValidation, "paginationContext.maxResults must not be negative")
	}
	if ns != models.NamespaceStudentProfile && q.MaxResults < 1 {
		return Query{}, appErrors.Clone(appErrors.ErrValidation, "paginationContext.maxResults must be at least 1")
	}
	if ns == models.NamespaceCoursework {
		window, err := ParseDueWindow(match.DueTime)
		if err != nil {
			return Query{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
		}
		q.Due = window
	}
	return q, nil
}
