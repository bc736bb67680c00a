package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	CreateTenant(ctx context.Context, req CreateTenantRequest) (*Tenant, error)
	GetTenant(ctx context.Context, id snowflake.ID) (*Tenant, error)
	ListActiveTenants(ctx context.Context) ([]Tenant, error)

	CreateCylinderSize(ctx context.Context, req CreateCylinderSizeRequest) (*CylinderSize, error)
	GetCylinderSize(ctx context.Context, tenantID, id snowflake.ID) (*CylinderSize, error)
	ListActiveCylinderSizes(ctx context.Context, tenantID snowflake.ID) ([]CylinderSize, error)
	DeactivateCylinderSize(ctx context.Context, tenantID, id snowflake.ID) error

	CreateProduct(ctx context.Context, req CreateProductRequest) (*Product, error)
	GetProduct(ctx context.Context, tenantID, id snowflake.ID) (*Product, error)
	ListProductsBySize(ctx context.Context, tenantID, sizeID snowflake.ID) ([]Product, error)

	CreateDriver(ctx context.Context, req CreateDriverRequest) (*Driver, error)
	GetDriver(ctx context.Context, tenantID, id snowflake.ID) (*Driver, error)
	ListActiveDrivers(ctx context.Context, tenantID snowflake.ID) ([]Driver, error)
}

type CreateTenantRequest struct {
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}

type CreateCylinderSizeRequest struct {
	TenantID snowflake.ID `json:"tenant_id"`
	Code     string       `json:"code"`
	Name     string       `json:"name"`
}

type CreateProductRequest struct {
	TenantID       snowflake.ID `json:"tenant_id"`
	CylinderSizeID snowflake.ID `json:"cylinder_size_id"`
	SKU            string       `json:"sku"`
	Name           string       `json:"name"`
}

type CreateDriverRequest struct {
	TenantID snowflake.ID `json:"tenant_id"`
	Code     string       `json:"code"`
	Name     string       `json:"name"`
}

var (
	ErrInvalidTenant   = errors.New("invalid_tenant")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidCode     = errors.New("invalid_code")
	ErrTenantNotFound  = errors.New("tenant_not_found")
	ErrSizeNotFound    = errors.New("cylinder_size_not_found")
	ErrProductNotFound = errors.New("product_not_found")
	ErrDriverNotFound  = errors.New("driver_not_found")
	ErrDuplicateCode   = errors.New("duplicate_code")
)
