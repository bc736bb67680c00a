// Package domain holds the daily cylinder ledger: one row per
// (tenant, date, product, cylinder size) carrying onboarding baselines,
// same-day flows and the derived carry-forward balances.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// AggregateProductID is the sentinel product key for per-size aggregate rows
// written by the carry-forward recompute.
const AggregateProductID snowflake.ID = 0

// LedgerDay is the central record. Flow columns accumulate within a day as
// events arrive; onboarding and derived columns are replace-only. Rows are
// never deleted, only superseded by later recomputation.
type LedgerDay struct {
	TenantID       snowflake.ID `json:"tenant_id" gorm:"primaryKey;autoIncrement:false"`
	Date           time.Time    `json:"date" gorm:"primaryKey"`
	ProductID      snowflake.ID `json:"product_id" gorm:"primaryKey;autoIncrement:false"`
	CylinderSizeID snowflake.ID `json:"cylinder_size_id" gorm:"primaryKey;autoIncrement:false"`

	// Onboarding baseline, set once per size when the tenant starts.
	OnboardingDate          *time.Time `json:"onboarding_date"`
	OnboardingFullQty       int64      `json:"onboarding_full_qty" gorm:"not null;default:0"`
	OnboardingEmptyQty      int64      `json:"onboarding_empty_qty" gorm:"not null;default:0"`
	OnboardingReceivableQty int64      `json:"onboarding_receivable_qty" gorm:"not null;default:0"`

	OnboardingCashReceivable decimal.Decimal `json:"onboarding_cash_receivable" gorm:"type:decimal(20,2);not null;default:0"`

	// Same-day flows.
	PackageSalesQty     int64           `json:"package_sales_qty" gorm:"not null;default:0"`
	RefillSalesQty      int64           `json:"refill_sales_qty" gorm:"not null;default:0"`
	PackageSalesRevenue decimal.Decimal `json:"package_sales_revenue" gorm:"type:decimal(20,2);not null;default:0"`
	RefillSalesRevenue  decimal.Decimal `json:"refill_sales_revenue" gorm:"type:decimal(20,2);not null;default:0"`
	PackagePurchaseQty  int64           `json:"package_purchase_qty" gorm:"not null;default:0"`
	RefillPurchaseQty   int64           `json:"refill_purchase_qty" gorm:"not null;default:0"`
	RefillReceivedQty   int64           `json:"refill_received_qty" gorm:"not null;default:0"`
	IncomingFullQty     int64           `json:"incoming_full_qty" gorm:"not null;default:0"`
	IncomingEmptyQty    int64           `json:"incoming_empty_qty" gorm:"not null;default:0"`
	OutgoingFullQty     int64           `json:"outgoing_full_qty" gorm:"not null;default:0"`
	OutgoingEmptyQty    int64           `json:"outgoing_empty_qty" gorm:"not null;default:0"`
	ShipmentCost        decimal.Decimal `json:"shipment_cost" gorm:"type:decimal(20,2);not null;default:0"`

	// Derived balances, replaced on every recompute.
	FullCylinders            int64           `json:"full_cylinders" gorm:"not null;default:0"`
	EmptyCylinders           int64           `json:"empty_cylinders" gorm:"not null;default:0"`
	TotalCylinders           int64           `json:"total_cylinders" gorm:"not null;default:0"`
	EmptyCylinderReceivables int64           `json:"empty_cylinder_receivables" gorm:"not null;default:0"`
	TotalCylinderReceivables int64           `json:"total_cylinder_receivables" gorm:"not null;default:0"`
	TotalCashReceivables     decimal.Decimal `json:"total_cash_receivables" gorm:"type:decimal(20,2);not null;default:0"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the database table name.
func (LedgerDay) TableName() string { return "ledger_days" }

// Key returns the row's merge key.
func (d *LedgerDay) Key() DayKey {
	return DayKey{
		TenantID:       d.TenantID,
		Date:           d.Date,
		ProductID:      d.ProductID,
		CylinderSizeID: d.CylinderSizeID,
	}
}

// DayKey identifies one ledger row.
type DayKey struct {
	TenantID       snowflake.ID
	Date           time.Time
	ProductID      snowflake.ID
	CylinderSizeID snowflake.ID
}

// ProcessedEvent is the seen-event index. Accumulation is additive, so each
// event id must be recorded exactly once per ledger key before it is applied;
// a duplicate insert means the delivery is a retry and must not double-count.
type ProcessedEvent struct {
	TenantID       snowflake.ID `json:"tenant_id" gorm:"primaryKey;autoIncrement:false"`
	Date           time.Time    `json:"date" gorm:"primaryKey"`
	ProductID      snowflake.ID `json:"product_id" gorm:"primaryKey;autoIncrement:false"`
	CylinderSizeID snowflake.ID `json:"cylinder_size_id" gorm:"primaryKey;autoIncrement:false"`
	EventID        string       `json:"event_id" gorm:"primaryKey;size:128"`
	CreatedAt      time.Time    `json:"created_at" gorm:"autoCreateTime"`
}

// TableName sets the database table name.
func (ProcessedEvent) TableName() string { return "processed_events" }
