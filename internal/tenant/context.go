package tenant

import "context"

type contextKey struct{}

// ContextWithTenant stores the authenticated tenant in the context.
func ContextWithTenant(ctx context.Context, t *Tenant) context.Context {
	return context.WithValue(ctx, contextKey{}, t)
}

// FromContext returns the authenticated tenant, or nil.
func FromContext(ctx context.Context) *Tenant {
	t, _ := ctx.Value(contextKey{}).(*Tenant)
	return t
}

// IDFromContext returns the tenant id, or zero when unauthenticated.
func IDFromContext(ctx context.Context) int64 {
	if t := FromContext(ctx); t != nil {
		return t.ID
	}
	return 0
}
