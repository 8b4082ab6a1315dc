package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classroom-skill-api/internal/models"
	appErrors "github.com/noah-isme/classroom-skill-api/pkg/errors"
)

type fakeMappingSrv struct {
	mapping *models.UserMapping
	hit     bool
	err     error
	lastID  string
}

func (f *fakeMappingSrv) Get(_ context.Context, platformUserID string) (*models.UserMapping, bool, error) {
	f.lastID = platformUserID
	return f.mapping, f.hit, f.err
}

func serveMapping(h *MappingHandler, id string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/mappings/"+id, nil)
	c.Params = gin.Params{{Key: "platformUserId", Value: id}}
	h.Get(c)
	return rec
}

func TestMappingHandlerGet(t *testing.T) {
	srv := &fakeMappingSrv{mapping: &models.UserMapping{PlatformUserID: "p-1", VoiceUserID: "v-1"}, hit: true}

	rec := serveMapping(NewMappingHandler(srv), "p-1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "p-1", srv.lastID)
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "v-1", env.Data["voiceUserId"])
	assert.Equal(t, true, env.Meta["cache_hit"])
}

func TestMappingHandlerErrors(t *testing.T) {
	rec := serveMapping(NewMappingHandler(&fakeMappingSrv{err: appErrors.Clone(appErrors.ErrNotFound, "user mapping not found")}), "p-9")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serveMapping(NewMappingHandler(nil), "p-9")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
