package token

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Kind distinguishes access tokens from refresh tokens.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

func (k Kind) Valid() bool {
	return k == KindAccess || k == KindRefresh
}

func (k Kind) String() string {
	return string(k)
}

// Claims are the claims carried by every session token.
type Claims struct {
	Kind Kind `json:"kind"`
	jwt.RegisteredClaims
}

func (c *Claims) String() string {
	return fmt.Sprintf("%s token for %s (jti %s)", c.Kind, c.Subject, c.ID)
}
