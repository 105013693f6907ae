// Package orgcontext carries the authenticated organization through a request.
package orgcontext

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type contextKey struct{}

// WithOrgID stores the org ID on the context.
func WithOrgID(ctx context.Context, orgID snowflake.ID) context.Context {
	return context.WithValue(ctx, contextKey{}, orgID)
}

// FromContext returns the org ID placed by the auth middleware.
func FromContext(ctx context.Context) (snowflake.ID, bool) {
	id, ok := ctx.Value(contextKey{}).(snowflake.ID)
	return id, ok
}
