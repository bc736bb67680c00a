package tenantctx

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type keyType string

const tenantIDKey keyType = "tenant_id"

// WithTenantID stores the tenant id on the context.
func WithTenantID(ctx context.Context, id snowflake.ID) context.Context {
	return context.WithValue(ctx, tenantIDKey, id)
}

// TenantID returns the tenant id carried by the context, if any.
func TenantID(ctx context.Context) (snowflake.ID, bool) {
	id, ok := ctx.Value(tenantIDKey).(snowflake.ID)
	return id, ok
}
