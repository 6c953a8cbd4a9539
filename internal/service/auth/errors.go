package auth

import "errors"

// JWT validation errors returned by JWTService.
var (
	// ErrInvalidToken indicates the token is malformed, has a bad
	// signature, or uses an unexpected signing method.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken indicates the token's expiry has passed.
	ErrExpiredToken = errors.New("token expired")
)
