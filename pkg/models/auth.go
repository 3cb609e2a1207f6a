package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims mirrors the tokens issued by the shop's auth service.
type JWTClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}
