package service

import (
	"fmt"

	"github.com/noah-isme/classroom-skill-api/internal/dto"
	"github.com/noah-isme/classroom-skill-api/internal/models"
	appErrors "github.com/noah-isme/classroom-skill-api/pkg/errors"
)

// Assemble wraps filtered entities in the response envelope of ns. Items are
// truncated to maxResults when it is positive, and totalCount reports the
// number actually returned.
func Assemble[T any](ns models.Namespace, items []T, maxResults int, messageID string) (*dto.SkillResponse, error) {
	key, ok := ns.PayloadKey()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnknownNamespace, fmt.Sprintf("unsupported namespace %q", ns))
	}
	if maxResults > 0 && len(items) > maxResults {
		items = items[:maxResults]
	}
	if items == nil {
		items = []T{}
	}
	return &dto.SkillResponse{
		Response: dto.ResponseBody{
			Header: dto.ResponseHeader{
				Namespace:        string(ns),
				Name:             models.ResponseName,
				MessageID:        messageID,
				InterfaceVersion: models.InterfaceVersion,
			},
			Payload: dto.ResponsePayload{
				PaginationContext: dto.PaginationContext{TotalCount: len(items)},
				Key:               key,
				Items:             items,
			},
		},
	}, nil
}
