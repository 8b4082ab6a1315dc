package middleware

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/classroom-skill-api/pkg/errors"
	"github.com/noah-isme/classroom-skill-api/pkg/response"
)

// RequireSkill restricts routes to callers whose token names one of the allowed
// skills. With no allowed skills, or when caller authentication is disabled,
// every request passes.
func RequireSkill(allowed ...string) gin.HandlerFunc {
	skills := make(map[string]struct{}, len(allowed))
	for _, s := range allowed {
		skills[s] = struct{}{}
	}

	return func(c *gin.Context) {
		if len(skills) == 0 {
			c.Next()
			return
		}
		caller := CallerFromContext(c)
		if caller == nil {
			if _, exists := c.Get(ContextCallerKey); !exists {
				c.Next()
				return
			}
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := skills[caller.Skill]; ok {
			c.Next()
			return
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}
