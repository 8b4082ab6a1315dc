package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-skill-api/internal/models"
	appErrors "github.com/noah-isme/classroom-skill-api/pkg/errors"
	"github.com/noah-isme/classroom-skill-api/pkg/response"
)

type userMappingService interface {
	Get(ctx context.Context, platformUserID string) (*models.UserMapping, bool, error)
}

// MappingHandler serves user mapping lookups for the push consumer.
type MappingHandler struct {
	service userMappingService
}

// NewMappingHandler constructs the handler.
func NewMappingHandler(service userMappingService) *MappingHandler {
	return &MappingHandler{service: service}
}

// Get godoc
// @Summary Resolve the voice user linked to a platform user
// @Tags Mappings
// @Produce json
// @Param platformUserId path string true "Platform user ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /mappings/{platformUserId} [get]
func (h *MappingHandler) Get(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnavailable, "user mappings are not configured"))
		return
	}
	mapping, cacheHit, err := h.service.Get(c.Request.Context(), c.Param("platformUserId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mapping, map[string]interface{}{"cache_hit": cacheHit})
}
