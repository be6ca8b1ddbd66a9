package ctxutil

import "context"

type principalKey struct{}

// Principal is the authenticated caller attached by the auth middleware.
type Principal struct {
	UserID   uint
	Username string
	Role     string
}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func GetPrincipal(ctx context.Context) *Principal {
	if ctx == nil {
		return nil
	}
	if p, ok := ctx.Value(principalKey{}).(*Principal); ok {
		return p
	}
	return nil
}
