// Package tenantctx carries the resolved tenant id on a request context.
package tenantctx

import "context"

type tenantKey struct{}

// WithTenant returns a copy of ctx carrying tenant.
func WithTenant(ctx context.Context, tenant string) context.Context {
	return context.WithValue(ctx, tenantKey{}, tenant)
}

// From returns the tenant on ctx, if any.
func From(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(tenantKey{}).(string)
	return t, ok && t != ""
}

// FromOr returns the tenant on ctx or def.
func FromOr(ctx context.Context, def string) string {
	if t, ok := From(ctx); ok {
		return t
	}
	return def
}
