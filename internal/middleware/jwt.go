package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/classroom-skill-api/internal/models"
	appErrors "github.com/noah-isme/classroom-skill-api/pkg/errors"
	"github.com/noah-isme/classroom-skill-api/pkg/response"
)

// ContextCallerKey is the gin context key storing the caller claims.
const ContextCallerKey = "caller"

// CallerAuth requires an HS256 bearer token signed with secret. An empty
// secret disables the check. When issuer is set the token must carry it.
func CallerAuth(secret, issuer string) gin.HandlerFunc {
	if secret == "" {
		return func(c *gin.Context) { c.Next() }
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	parser := jwt.NewParser(opts...)
	key := []byte(secret)

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims := &models.CallerClaims{}
		_, err := parser.ParseWithClaims(strings.TrimSpace(parts[1]), claims, func(*jwt.Token) (interface{}, error) {
			return key, nil
		})
		if err != nil {
			message := "invalid caller token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				message = "caller token expired"
			}
			response.Error(c, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, message))
			c.Abort()
			return
		}

		c.Set(ContextCallerKey, claims)
		c.Next()
	}
}

// CallerFromContext returns the authenticated caller, if any.
func CallerFromContext(c *gin.Context) *models.CallerClaims {
	value, exists := c.Get(ContextCallerKey)
	if !exists {
		return nil
	}
	claims, _ := value.(*models.CallerClaims)
	return claims
}
