package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/immxrtalbeast/consult_rooms/internal/domain"
)

// Claims is the payload of a participant token.
type Claims struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier accepts HMAC-signed tokens. The subject is the participant
// identifier.
type JWTVerifier struct {
	secret []byte
	issuer string
}

func NewJWTVerifier(secret, issuer string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), issuer: issuer}
}

func (v *JWTVerifier) VerifyIdentity(_ context.Context, token string, hint Hint) (domain.Identity, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return domain.Identity{}, fmt.Errorf("%w: token is required", ErrUnauthorized)
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %s", ErrUnauthorized, err.Error())
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return domain.Identity{}, fmt.Errorf("%w: invalid token", ErrUnauthorized)
	}
	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return domain.Identity{}, fmt.Errorf("%w: unexpected issuer", ErrUnauthorized)
	}
	if claims.Subject == "" {
		return domain.Identity{}, fmt.Errorf("%w: token has no subject", ErrUnauthorized)
	}

	role, ok := domain.ParseRole(strings.ToUpper(claims.Role))
	if !ok {
		return domain.Identity{}, ErrInvalidRole
	}
	name := claims.Name
	if name == "" {
		name = hint.DisplayName
	}
	if name == "" {
		name = claims.Subject
	}

	return domain.Identity{
		ParticipantID: claims.Subject,
		DisplayName:   name,
		Email:         claims.Email,
		Role:          role,
	}, nil
}
