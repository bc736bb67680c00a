// Package domain tracks shipment lifecycle state. The ledger books shipment
// flows; this package remembers each shipment's latest status so completion
// re-deliveries are recognized and outstanding stock can be reconstructed for
// any past date.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"

	ledgerdomain "github.com/smallbiznis/gastrack/internal/ledger/domain"
)

// ShipmentRecord is the latest known state of one shipment. CompletedAt and
// CancelledAt are never cleared once set; point-in-time queries compare them
// against the requested day's end boundary.
type ShipmentRecord struct {
	ShipmentID       snowflake.ID                   `json:"shipment_id" gorm:"primaryKey;autoIncrement:false"`
	TenantID         snowflake.ID                   `json:"tenant_id" gorm:"not null;index:idx_shipments_tenant_size,priority:1"`
	Date             time.Time                      `json:"date" gorm:"not null"`
	ProductID        snowflake.ID                   `json:"product_id" gorm:"not null"`
	CylinderSizeID   snowflake.ID                   `json:"cylinder_size_id" gorm:"not null;index:idx_shipments_tenant_size,priority:2"`
	Direction        ledgerdomain.ShipmentDirection `json:"direction" gorm:"size:32;not null"`
	Quantity         int64                          `json:"quantity" gorm:"not null;default:0"`
	Cost             decimal.Decimal                `json:"cost" gorm:"type:decimal(20,2);not null;default:0"`
	IsRefillPurchase bool                           `json:"is_refill_purchase" gorm:"not null;default:false"`
	Status           ledgerdomain.ShipmentStatus    `json:"status" gorm:"size:16;not null"`
	CompletedAt      *time.Time                     `json:"completed_at"`
	CancelledAt      *time.Time                     `json:"cancelled_at"`
	CreatedAt        time.Time                      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time                      `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the database table name.
func (ShipmentRecord) TableName() string { return "shipments" }
