// Package domain reconciles driver receivables. Drivers take full cylinders
// out on credit; refill sales add to what they owe in empties and cash, and
// deposits pay it down. Balances are reconstructed per day so a past date's
// position can always be audited.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// DriverDay accumulates one driver's receivable activity for one cylinder
// size on one date. Rows are written by the ledger apply path as sales come
// in; balances are derived by folding rows in date order.
type DriverDay struct {
	TenantID       snowflake.ID `json:"tenant_id" gorm:"primaryKey;autoIncrement:false"`
	DriverID       snowflake.ID `json:"driver_id" gorm:"primaryKey;autoIncrement:false"`
	CylinderSizeID snowflake.ID `json:"cylinder_size_id" gorm:"primaryKey;autoIncrement:false"`
	Date           time.Time    `json:"date" gorm:"primaryKey"`

	RefillQtySold      int64           `json:"refill_qty_sold" gorm:"not null;default:0"`
	CylindersDeposited int64           `json:"cylinders_deposited" gorm:"not null;default:0"`
	Revenue            decimal.Decimal `json:"revenue" gorm:"type:decimal(20,2);not null;default:0"`
	CashDeposited      decimal.Decimal `json:"cash_deposited" gorm:"type:decimal(20,2);not null;default:0"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the database table name.
func (DriverDay) TableName() string { return "driver_receivable_days" }

// DriverBalance is a driver's reconciled position at the end of a day.
// CylinderBalance counts empties still owed; CashBalance is unpaid revenue.
// Both are clamped at zero day by day, so over-deposits never go negative.
type DriverBalance struct {
	DriverID        snowflake.ID    `json:"driver_id"`
	CylinderSizeID  snowflake.ID    `json:"cylinder_size_id"`
	CylinderBalance int64           `json:"cylinder_balance"`
	CashBalance     decimal.Decimal `json:"cash_balance"`
}
