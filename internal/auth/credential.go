package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credential identifies the logged-in viewer. The zero value means no one
// is logged in.
type Credential struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Valid reports whether the credential can be sent to the backend.
func (c Credential) Valid() bool {
	return c.validAt(time.Now())
}

func (c Credential) validAt(now time.Time) bool {
	if c.Token == "" || c.UserID <= 0 {
		return false
	}
	return c.ExpiresAt.IsZero() || now.Before(c.ExpiresAt)
}

var errNoSubject = errors.New("token has no numeric subject")

// FromToken decodes the claims of a bearer token without verifying the
// signature. The backend is the authority on validity; the client only
// needs the user ID and expiry it carries.
func FromToken(raw string) (Credential, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return Credential{}, fmt.Errorf("decode token: %w", err)
	}

	var userID int64
	switch sub := claims["sub"].(type) {
	case float64:
		userID = int64(sub)
	case string:
		if _, err := fmt.Sscanf(sub, "%d", &userID); err != nil {
			return Credential{}, errNoSubject
		}
	}
	if userID <= 0 {
		return Credential{}, errNoSubject
	}

	cred := Credential{Token: raw, UserID: userID}
	cred.Username, _ = claims["username"].(string)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		cred.ExpiresAt = exp.Time
	}
	return cred, nil
}
