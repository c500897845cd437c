package auth

import (
	"context"
	"strings"

	"github.com/samber/lo"
)

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID     uint64
	Email      string
	Role       string
	Privileged bool
}

// RoleInternal marks a service caller admitted by the internal access check.
const RoleInternal = "internal"

// InternalIdentity is the identity given to internal service callers. It carries no user.
func InternalIdentity() *Identity {
	return &Identity{Role: RoleInternal, Privileged: true}
}

type identityKey struct{}

func ContextWithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(*Identity)
	return identity, ok && identity != nil
}

// Authenticator turns bearer tokens into identities.
type Authenticator struct {
	secret          string
	privilegedRoles []string
}

func NewAuthenticator(secret string, privilegedRoles []string) *Authenticator {
	roles := lo.Map(privilegedRoles, func(role string, _ int) string {
		return strings.ToLower(strings.TrimSpace(role))
	})
	return &Authenticator{secret: secret, privilegedRoles: lo.Compact(roles)}
}

// Authenticate validates an Authorization header value.
func (a *Authenticator) Authenticate(header string) (*Identity, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, ErrMissingToken
	}

	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || strings.TrimSpace(token) == "" {
		return nil, ErrInvalidToken
	}

	claims, err := ValidateToken(strings.TrimSpace(token), a.secret)
	if err != nil {
		return nil, ErrInvalidToken
	}

	return &Identity{
		UserID:     claims.UserID,
		Email:      claims.Email,
		Role:       claims.Role,
		Privileged: lo.Contains(a.privilegedRoles, strings.ToLower(claims.Role)),
	}, nil
}
