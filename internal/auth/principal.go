package auth

import "context"

// Principal is the identity asserted by the OIDC provider for the current
// request, as carried in the verified bearer token.
type Principal struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Nickname      string
}

// DisplayName returns the provider-supplied name, falling back to the
// nickname, then to "".
func (p *Principal) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Nickname
}

type contextKey int

const principalContextKey contextKey = iota

// ContextWithPrincipal returns a new context carrying the given principal.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext extracts the principal from the context, or nil if
// not present.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey).(*Principal)
	return p
}
