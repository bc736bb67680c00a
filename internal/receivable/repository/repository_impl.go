package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	ledgerdomain "github.com/smallbiznis/gastrack/internal/ledger/domain"
	"github.com/smallbiznis/gastrack/internal/receivable/domain"
)

type receivableRepository struct{}

// NewRepository returns the gorm-backed receivable store.
func NewRepository() domain.Repository {
	return &receivableRepository{}
}

func (r *receivableRepository) Append(ctx context.Context, tx *gorm.DB, day domain.DriverDay) error {
	err := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "tenant_id"}, {Name: "driver_id"},
			{Name: "cylinder_size_id"}, {Name: "date"},
		},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"refill_qty_sold":     gorm.Expr("refill_qty_sold + ?", day.RefillQtySold),
			"cylinders_deposited": gorm.Expr("cylinders_deposited + ?", day.CylindersDeposited),
			"revenue":             gorm.Expr("revenue + ?", day.Revenue),
			"cash_deposited":      gorm.Expr("cash_deposited + ?", day.CashDeposited),
		}),
	}).Create(&day).Error
	if err != nil {
		return fmt.Errorf("%w: %v", ledgerdomain.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *receivableRepository) DaysThrough(ctx context.Context, tx *gorm.DB, tenantID, driverID, sizeID snowflake.ID, through time.Time) ([]domain.DriverDay, error) {
	var days []domain.DriverDay
	err := tx.WithContext(ctx).
		Where("tenant_id = ? AND driver_id = ? AND cylinder_size_id = ? AND date <= ?",
			tenantID, driverID, sizeID, through).
		Order("date ASC").
		Find(&days).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledgerdomain.ErrStoreUnavailable, err)
	}
	return days, nil
}

func (r *receivableRepository) DriversWithActivity(ctx context.Context, tx *gorm.DB, tenantID, sizeID snowflake.ID, through time.Time) ([]snowflake.ID, error) {
	var drivers []snowflake.ID
	err := tx.WithContext(ctx).Model(&domain.DriverDay{}).
		Distinct("driver_id").
		Where("tenant_id = ? AND cylinder_size_id = ? AND date <= ?", tenantID, sizeID, through).
		Order("driver_id ASC").
		Pluck("driver_id", &drivers).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledgerdomain.ErrStoreUnavailable, err)
	}
	return drivers, nil
}
