package models

import "github.com/golang-jwt/jwt/v5"

// CallerClaims identifies the voice runtime bridge calling the gateway.
type CallerClaims struct {
	Skill string `json:"skill,omitempty"`
	jwt.RegisteredClaims
}
