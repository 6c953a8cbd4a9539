// Package auth verifies the bearer tokens callers present to the API.
// Token issuance lives in the identity service; this package only
// validates HMAC-signed access tokens and extracts the user identity.
package auth

import (
	"context"

	"github.com/google/uuid"
)

// Claims holds the verified identity extracted from an access token.
type Claims struct {
	UserID uuid.UUID
}

// JWTService validates access tokens.
type JWTService interface {
	// ValidateToken parses and verifies a token string. It returns
	// ErrExpiredToken for expired tokens and ErrInvalidToken for
	// everything else that fails verification.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}
