package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/classroom-skill-api/internal/classroom"
	"github.com/noah-isme/classroom-skill-api/internal/dto"
	"github.com/noah-isme/classroom-skill-api/internal/models"
	"github.com/noah-isme/classroom-skill-api/pkg/batch"
	appErrors "github.com/noah-isme/classroom-skill-api/pkg/errors"
	"github.com/noah-isme/classroom-skill-api/pkg/jobs"
)

// Event acknowledgement actions.
const (
	ActionRegistered   = "REGISTERED"
	ActionRevoked      = "REVOKED"
	ActionAcknowledged = "ACKNOWLEDGED"
	ActionNoop         = "NOOP"

	// JobDeleteRegistration removes a push registration in the background.
	JobDeleteRegistration = "registration.delete"
)

// RegistrationCleanup is the payload of a registration deletion job.
type RegistrationCleanup struct {
	Token          string
	RegistrationID string
}

type userMappingStore interface {
	Upsert(ctx context.Context, mapping *models.UserMapping) error
	FindByVoiceUserID(ctx context.Context, voiceUserID string) (*models.UserMapping, error)
	DeleteByVoiceUserID(ctx context.Context, voiceUserID string) error
}

type cleanupEnqueuer interface {
	Enqueue(job jobs.Job[RegistrationCleanup]) error
}

type mappingInvalidator interface {
	Invalidate(ctx context.Context, platformUserIDs ...string)
}

// RegistrationServiceConfig tunes the lifecycle.
type RegistrationServiceConfig struct {
	Topic            string
	BatchConcurrency int
}

// RegistrationService keeps push registrations in step with the permissions a
// voice user has granted.
type RegistrationService struct {
	factory  ClassroomFactory
	mappings userMappingStore
	cleanup  cleanupEnqueuer
	cache    mappingInvalidator
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      RegistrationServiceConfig
}

// RegistrationServiceParams groups constructor dependencies.
type RegistrationServiceParams struct {
	Factory  ClassroomFactory
	Mappings userMappingStore
	Cleanup  cleanupEnqueuer
	Cache    mappingInvalidator
	Metrics  *MetricsService
	Logger   *zap.Logger
	Config   RegistrationServiceConfig
}

// NewRegistrationService constructs the lifecycle service.
func NewRegistrationService(params RegistrationServiceParams) *RegistrationService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{
		factory:  params.Factory,
		mappings: params.Mappings,
		cleanup:  params.Cleanup,
		cache:    params.Cache,
		metrics:  params.Metrics,
		logger:   logger,
		cfg:      params.Config,
	}
}

// SetCleanup attaches the deletion queue. The queue's handler is built from
// the service itself, so the two are wired after construction.
func (s *RegistrationService) SetCleanup(cleanup cleanupEnqueuer) {
	s.cleanup = cleanup
}

// HandleEvent routes a lifecycle event.
func (s *RegistrationService) HandleEvent(ctx context.Context, event *dto.SkillEventRequest) (*dto.EventAck, error) {
	if event == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "event is required")
	}
	user := event.Context.System.User
	eventType := event.Request.Type
	logger := s.logger.With(zap.String("event", eventType), zap.String("voice_user_id", user.UserID))

	switch eventType {
	case dto.EventPermissionAccepted, dto.EventPermissionChanged:
		if hasScope(event.Request.Body.Scopes(), dto.NotificationsWriteScope) {
			ack, err := s.PermissionAccepted(ctx, user.UserID, user.AccessToken)
			return withType(ack, eventType), err
		}
		ack, err := s.Revoke(ctx, user.UserID, user.AccessToken)
		return withType(ack, eventType), err
	case dto.EventAccountLinked, dto.EventSubscriptionChanged:
		logger.Info("skill event acknowledged")
		return &dto.EventAck{Type: eventType, Action: ActionAcknowledged}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported event type %q", eventType))
	}
}

// PermissionAccepted registers the voice user for coursework changes in every
// course of the token owner and records the mapping.
func (s *RegistrationService) PermissionAccepted(ctx context.Context, voiceUserID, token string) (*dto.EventAck, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	voiceUserID = strings.TrimSpace(voiceUserID)
	if voiceUserID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "voice user id is required")
	}
	if strings.TrimSpace(token) == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "linked account token is required")
	}

	api := s.factory(token)
	profile, err := api.GetUserProfile(ctx, DefaultStudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "resolve linked profile failed")
	}
	courses, err := api.ListCourses(ctx, DefaultStudentID, 0)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "list courses failed")
	}
	index := models.NewCourseIndex(courses)

	previous, err := s.mappings.FindByVoiceUserID(ctx, voiceUserID)
	if err != nil && !appErrors.HasCode(err, appErrors.ErrNotFound.Code) {
		return nil, err
	}

	created := map[string]string{}
	regs := batch.New("registrations", func(courseID string, reg *models.Registration, err error) {
		if err == nil && reg != nil && reg.RegistrationID != "" {
			created[courseID] = reg.RegistrationID
		}
	}, batch.WithConcurrency(s.cfg.BatchConcurrency), batch.WithLogger(s.logger), batch.WithObserver(s.metrics))
	for _, id := range index.IDs() {
		courseID := id
		regs.Add(courseID, func(ctx context.Context) (*models.Registration, error) {
			return api.CreateRegistration(ctx, courseID, s.cfg.Topic)
		})
	}
	regs.Execute(ctx)

	ids := make([]string, 0, len(created))
	for _, courseID := range index.IDs() {
		if regID, ok := created[courseID]; ok {
			ids = append(ids, regID)
		}
	}

	mapping := &models.UserMapping{PlatformUserID: profile.ID, VoiceUserID: voiceUserID, RegistrationIDs: ids}
	if err := s.mappings.Upsert(ctx, mapping); err != nil {
		return nil, err
	}

	invalidate := []string{profile.ID}
	if previous != nil {
		s.enqueueCleanup(token, previous.RegistrationIDs)
		if previous.PlatformUserID != profile.ID {
			invalidate = append(invalidate, previous.PlatformUserID)
		}
	}
	s.invalidate(ctx, invalidate...)

	s.logger.Info("registrations created",
		zap.String("voice_user_id", voiceUserID),
		zap.String("platform_user_id", profile.ID),
		zap.Int("courses", index.Len()),
		zap.Int("registrations", len(ids)),
	)
	return &dto.EventAck{Action: ActionRegistered, Registrations: ids}, nil
}

// Revoke schedules deletion of the voice user's registrations and forgets the
// mapping.
func (s *RegistrationService) Revoke(ctx context.Context, voiceUserID, token string) (*dto.EventAck, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	mapping, err := s.mappings.FindByVoiceUserID(ctx, voiceUserID)
	if err != nil {
		if appErrors.HasCode(err, appErrors.ErrNotFound.Code) {
			return &dto.EventAck{Action: ActionNoop}, nil
		}
		return nil, err
	}

	if strings.TrimSpace(token) != "" {
		s.enqueueCleanup(token, mapping.RegistrationIDs)
	} else if len(mapping.RegistrationIDs) > 0 {
		s.logger.Warn("no token to delete registrations; they will lapse at expiry",
			zap.String("voice_user_id", voiceUserID),
			zap.Strings("registrations", mapping.RegistrationIDs),
		)
	}
	if err := s.mappings.DeleteByVoiceUserID(ctx, voiceUserID); err != nil && !appErrors.HasCode(err, appErrors.ErrNotFound.Code) {
		return nil, err
	}
	s.invalidate(ctx, mapping.PlatformUserID)

	return &dto.EventAck{Action: ActionRevoked, Registrations: []string(mapping.RegistrationIDs)}, nil
}

// DeleteRegistration is the queue handler for cleanup jobs. A registration
// that no longer exists counts as deleted.
func (s *RegistrationService) DeleteRegistration(ctx context.Context, job jobs.Job[RegistrationCleanup]) error {
	err := s.factory(job.Payload.Token).DeleteRegistration(ctx, job.Payload.RegistrationID)
	if err != nil && !isNotFound(err) {
		return err
	}
	s.logger.Debug("registration deleted", zap.String("registration_id", job.Payload.RegistrationID))
	return nil
}

func (s *RegistrationService) enqueueCleanup(token string, registrationIDs []string) {
	for _, id := range registrationIDs {
		job := jobs.Job[RegistrationCleanup]{
			Type:    JobDeleteRegistration,
			Payload: RegistrationCleanup{Token: token, RegistrationID: id},
		}
		if err := s.cleanup.Enqueue(job); err != nil {
			s.logger.Error("enqueue registration cleanup failed", zap.String("registration_id", id), zap.Error(err))
		}
	}
}

func (s *RegistrationService) invalidate(ctx context.Context, platformUserIDs ...string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, platformUserIDs...)
	}
}

func (s *RegistrationService) ready() error {
	if s.factory == nil || s.mappings == nil || s.cleanup == nil {
		return appErrors.Clone(appErrors.ErrUnavailable, "registrations are not enabled")
	}
	return nil
}

func withType(ack *dto.EventAck, eventType string) *dto.EventAck {
	if ack != nil {
		ack.Type = eventType
	}
	return ack
}

func isNotFound(err error) bool {
	return classroom.IsStatus(err, http.StatusNotFound)
}

func hasScope(scopes []string, want string) bool {
	for _, s := range scopes {
		if s == want {
			return true
		}
	}
	return false
}
