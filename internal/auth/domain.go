package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the payload of both access and refresh tokens. Subject holds the
// identity id; ID (jti) makes every issued token value unique.
type Claims struct {
	jwt.RegisteredClaims
}

func (c *Claims) IdentityID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}
