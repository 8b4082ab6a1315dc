package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/classroom-skill-api/internal/models"
	appErrors "github.com/noah-isme/classroom-skill-api/pkg/errors"
)

const mappingCachePrefix = "mapping:"

type userMappingReader interface {
	FindByPlatformUserID(ctx context.Context, platformUserID string) (*models.UserMapping, error)
}

// UserMappingService resolves platform users to voice users through a
// read-through cache.
type UserMappingService struct {
	repo   userMappingReader
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
}

// NewUserMappingService constructs the lookup service. cache may be nil.
func NewUserMappingService(repo userMappingReader, cache *CacheService, ttl time.Duration, logger *zap.Logger) *UserMappingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserMappingService{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// Get returns the mapping of a platform user and whether it came from cache.
func (s *UserMappingService) Get(ctx context.Context, platformUserID string) (*models.UserMapping, bool, error) {
	platformUserID = strings.TrimSpace(platformUserID)
	if platformUserID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "platformUserId is required")
	}
	if s.repo == nil {
		return nil, false, appErrors.Clone(appErrors.ErrUnavailable, "user mappings are not configured")
	}

	key := mappingCacheKey(platformUserID)
	var cached models.UserMapping
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, true, nil
	}

	mapping, err := s.repo.FindByPlatformUserID(ctx, platformUserID)
	if err != nil {
		return nil, false, err
	}
	_ = s.cache.Set(ctx, key, mapping, s.ttl)
	return mapping, false, nil
}

// Invalidate drops the cached mapping of the given platform users.
func (s *UserMappingService) Invalidate(ctx context.Context, platformUserIDs ...string) {
	keys := make([]string, 0, len(platformUserIDs))
	for _, id := range platformUserIDs {
		if id != "" {
			keys = append(keys, mappingCacheKey(id))
		}
	}
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.logger.Warn("mapping cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

func mappingCacheKey(platformUserID string) string {
	return mappingCachePrefix + platformUserID
}
