package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository is the transactional store for driver receivable activity.
type Repository interface {
	// Append folds one day's worth of activity into the driver's row for
	// the date, creating it when absent. Accumulation happens in SQL so
	// concurrent sales for the same driver never lose updates.
	Append(ctx context.Context, tx *gorm.DB, day DriverDay) error
	DaysThrough(ctx context.Context, tx *gorm.DB, tenantID, driverID, sizeID snowflake.ID, through time.Time) ([]DriverDay, error)
	DriversWithActivity(ctx context.Context, tx *gorm.DB, tenantID, sizeID snowflake.ID, through time.Time) ([]snowflake.ID, error)
}

// Service derives reconciled balances from the activity rows.
type Service interface {
	DriverBalanceAsOf(ctx context.Context, tenantID, driverID, sizeID snowflake.ID, date time.Time) (*DriverBalance, error)
	// BalancesAsOf returns every driver that has activity for the size,
	// including drivers whose balance has been paid down to zero.
	BalancesAsOf(ctx context.Context, tenantID, sizeID snowflake.ID, date time.Time) ([]DriverBalance, error)
	// TotalEmptyReceivablesAsOf sums positive cylinder balances across
	// drivers. This is the figure the ledger subtracts from empties on
	// hand to get empties physically in stock.
	TotalEmptyReceivablesAsOf(ctx context.Context, tenantID, sizeID snowflake.ID, date time.Time) (int64, error)
	TotalCashReceivablesAsOf(ctx context.Context, tenantID, sizeID snowflake.ID, date time.Time) (decimal.Decimal, error)
}
