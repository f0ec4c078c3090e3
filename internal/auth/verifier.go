package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/consult_rooms/internal/config"
	"github.com/immxrtalbeast/consult_rooms/internal/domain"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidRole  = errors.New("invalid participant role")
)

// Hint carries the identity fields a client asked for. Verifiers decide how
// much of it to trust.
type Hint struct {
	ParticipantID string
	DisplayName   string
	Email         string
	Role          string
}

// Verifier resolves a connection request to an identity before it is
// admitted into a room.
type Verifier interface {
	VerifyIdentity(ctx context.Context, token string, hint Hint) (domain.Identity, error)
}

// New returns a JWT verifier when auth is required and an anonymous one
// otherwise.
func New(cfg config.AuthConfig) Verifier {
	if cfg.Required {
		return NewJWTVerifier(cfg.Secret, cfg.Issuer)
	}
	return AnonymousVerifier{}
}

// AnonymousVerifier trusts the hint. A missing participant id is generated.
type AnonymousVerifier struct{}

func (AnonymousVerifier) VerifyIdentity(_ context.Context, _ string, hint Hint) (domain.Identity, error) {
	role, ok := domain.ParseRole(strings.ToUpper(hint.Role))
	if !ok {
		return domain.Identity{}, ErrInvalidRole
	}
	if role == domain.RoleHost {
		role = domain.RoleParticipant
	}

	id := strings.TrimSpace(hint.ParticipantID)
	if id == "" {
		id = uuid.NewString()
	}
	name := strings.TrimSpace(hint.DisplayName)
	if name == "" {
		name = "Guest"
	}

	return domain.Identity{
		ParticipantID: id,
		DisplayName:   name,
		Email:         hint.Email,
		Role:          role,
	}, nil
}
