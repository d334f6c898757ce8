// Package tokenpkg issues and verifies access tokens carrying the principal username.
package tokenpkg

import (
	"fmt"
	"time"
)

// Supported token formats.
const (
	TypePaseto = "paseto"
	TypeJWT    = "jwt"
)

// Maker is an interface for managing tokens.
type Maker interface {
	// CreateToken creates a new token for a specific username and duration.
	CreateToken(username string, duration time.Duration) (string, *Payload, error)
	// VerifyToken checks if the token is valid or not.
	VerifyToken(token string) (*Payload, error)
}

// NewMaker returns the Maker for the given token format.
func NewMaker(tokenType, symmetricKey string) (Maker, error) {
	switch tokenType {
	case TypePaseto:
		return NewPasetoMaker(symmetricKey)
	case TypeJWT:
		return NewJWTMaker(symmetricKey)
	}

	return nil, fmt.Errorf("unsupported token type %q", tokenType)
}
