// Package domain contains the tenant catalog: cylinder sizes, products and
// drivers. Every other module resolves its references through this catalog.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Tenant is a distribution business. All data is partitioned by tenant and no
// computation crosses tenant boundaries.
type Tenant struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	ExternalRef string       `json:"external_ref" gorm:"type:text;not null;uniqueIndex"`
	Name        string       `json:"name" gorm:"type:text;not null"`
	Timezone    string       `json:"timezone" gorm:"type:text;not null;default:'UTC'"`
	Active      bool         `json:"active" gorm:"not null;default:true"`
	CreatedAt   time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Tenant) TableName() string { return "tenants" }

// CylinderSize is a named capacity class such as "12L". Identity is immutable;
// retiring a size means deactivating it, never mutating the code.
type CylinderSize struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	TenantID  snowflake.ID `json:"tenant_id" gorm:"not null;index:ux_cylinder_sizes_tenant_code,unique,priority:1"`
	Code      string       `json:"code" gorm:"type:text;not null;index:ux_cylinder_sizes_tenant_code,unique,priority:2"`
	Name      string       `json:"name" gorm:"type:text;not null"`
	Active    bool         `json:"active" gorm:"not null;default:true"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (CylinderSize) TableName() string { return "cylinder_sizes" }

// Product is a sellable SKU referencing exactly one cylinder size. The size
// reference is immutable once created; a size change requires a new product.
type Product struct {
	ID             snowflake.ID `json:"id" gorm:"primaryKey"`
	TenantID       snowflake.ID `json:"tenant_id" gorm:"not null;index:ux_products_tenant_sku,unique,priority:1"`
	CylinderSizeID snowflake.ID `json:"cylinder_size_id" gorm:"not null;index"`
	SKU            string       `json:"sku" gorm:"type:text;not null;index:ux_products_tenant_sku,unique,priority:2"`
	Name           string       `json:"name" gorm:"type:text;not null"`
	Active         bool         `json:"active" gorm:"not null;default:true"`
	CreatedAt      time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Product) TableName() string { return "products" }

// Driver is a field agent who sells refills and owes empty cylinders back.
type Driver struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	TenantID  snowflake.ID `json:"tenant_id" gorm:"not null;index:ux_drivers_tenant_code,unique,priority:1"`
	Code      string       `json:"code" gorm:"type:text;not null;index:ux_drivers_tenant_code,unique,priority:2"`
	Name      string       `json:"name" gorm:"type:text;not null"`
	Active    bool         `json:"active" gorm:"not null;default:true"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Driver) TableName() string { return "drivers" }
