package service

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/smartspendr/bfa-go/internal/domain"
)

// sessionClaims are the custom claims the identity provider puts in
// session tokens.
type sessionClaims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// SessionVerifier validates provider-issued session tokens (HS256).
// It implements port.IdentityVerifier.
type SessionVerifier struct {
	secret []byte
}

// NewSessionVerifier creates a verifier for the given signing secret.
func NewSessionVerifier(secret string) *SessionVerifier {
	return &SessionVerifier{secret: []byte(secret)}
}

// VerifyToken parses and validates one session token and returns the
// user it identifies. Any parse, signature or expiry problem comes back
// as *domain.ErrAuth; the caller never learns which check failed.
func (v *SessionVerifier) VerifyToken(tokenString string) (*domain.User, error) {
	token, err := jwt.ParseWithClaims(tokenString, &sessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, &domain.ErrAuth{Message: "invalid or expired session"}
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrAuth{Message: "invalid session"}
	}
	if claims.Subject == "" {
		return nil, &domain.ErrAuth{Message: "session has no subject"}
	}

	return &domain.User{
		ID:          claims.Subject,
		DisplayName: claims.Name,
		Email:       claims.Email,
	}, nil
}
