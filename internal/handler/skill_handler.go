package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-skill-api/internal/dto"
	appErrors "github.com/noah-isme/classroom-skill-api/pkg/errors"
	"github.com/noah-isme/classroom-skill-api/pkg/logger"
	"github.com/noah-isme/classroom-skill-api/pkg/response"
)

type skillQueryService interface {
	Handle(ctx context.Context, req *dto.SkillRequest) (*dto.SkillResponse, error)
}

type skillEventService interface {
	HandleEvent(ctx context.Context, event *dto.SkillEventRequest) (*dto.EventAck, error)
}

// SkillHandler exposes the voice skill directive and lifecycle endpoints.
type SkillHandler struct {
	queries skillQueryService
	events  skillEventService
	logger  *zap.Logger
}

// NewSkillHandler constructs the handler. events may be nil when push
// registrations are disabled.
func NewSkillHandler(queries skillQueryService, events skillEventService, l *zap.Logger) *SkillHandler {
	if l == nil {
		l = zap.NewNop()
	}
	return &SkillHandler{queries: queries, events: events, logger: l}
}

// Query godoc
// @Summary Answer an education skill directive
// @Tags Skill
// @Accept json
// @Produce json
// @Param request body dto.SkillRequest true "Directive envelope"
// @Success 200 {object} dto.SkillResponse
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /skill/query [post]
func (h *SkillHandler) Query(c *gin.Context) {
	if h.queries == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	var req dto.SkillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid skill directive"))
		return
	}
	c.Set(logger.NamespaceKey, req.Request.Header.Namespace)

	resp, err := h.queries.Handle(c.Request.Context(), &req)
	if err != nil {
		logger.ForRequest(h.logger, c).Info("skill directive rejected",
			zap.String("namespace", req.Request.Header.Namespace),
			zap.Error(err),
		)
		response.Error(c, err)
		return
	}
	response.Raw(c, http.StatusOK, resp)
}

// Event godoc
// @Summary Handle a skill lifecycle event
// @Tags Skill
// @Accept json
// @Produce json
// @Param request body dto.SkillEventRequest true "Lifecycle event"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /skill/events [post]
func (h *SkillHandler) Event(c *gin.Context) {
	if h.events == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnavailable, "registrations are not enabled"))
		return
	}
	var req dto.SkillEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid skill event"))
		return
	}

	ack, err := h.events.HandleEvent(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	logger.ForRequest(h.logger, c).Info("skill event handled",
		zap.String("event", ack.Type),
		zap.String("action", ack.Action),
	)
	response.JSON(c, http.StatusOK, ack)
}
