package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/smallbiznis/gastrack/internal/ledger/domain"
	"github.com/smallbiznis/gastrack/pkg/db"
)

type ledgerRepository struct{}

// NewRepository returns the gorm-backed ledger store.
func NewRepository() domain.Repository {
	return &ledgerRepository{}
}

func (r *ledgerRepository) FindDay(ctx context.Context, tx *gorm.DB, key domain.DayKey) (*domain.LedgerDay, error) {
	var day domain.LedgerDay
	err := tx.WithContext(ctx).
		Where("tenant_id = ? AND date = ? AND product_id = ? AND cylinder_size_id = ?",
			key.TenantID, key.Date, key.ProductID, key.CylinderSizeID).
		First(&day).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return &day, nil
}

// SaveDay writes the whole row. The merge engine already combined the delta
// with the stored state, so on conflict every non-key column is overwritten.
func (r *ledgerRepository) SaveDay(ctx context.Context, tx *gorm.DB, day *domain.LedgerDay) error {
	err := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "tenant_id"}, {Name: "date"},
			{Name: "product_id"}, {Name: "cylinder_size_id"},
		},
		UpdateAll: true,
	}).Create(day).Error
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *ledgerRepository) MarkProcessed(ctx context.Context, tx *gorm.DB, event domain.ProcessedEvent) (bool, error) {
	result := tx.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&event)
	if result.Error != nil {
		if db.IsDuplicateKeyErr(result.Error) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *ledgerRepository) HasOnboarding(ctx context.Context, tx *gorm.DB, tenantID, sizeID snowflake.ID) (bool, error) {
	var count int64
	err := tx.WithContext(ctx).Model(&domain.LedgerDay{}).
		Where("tenant_id = ? AND cylinder_size_id = ? AND onboarding_date IS NOT NULL", tenantID, sizeID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return count > 0, nil
}

func (r *ledgerRepository) HasAnyEvents(ctx context.Context, tx *gorm.DB, tenantID, sizeID snowflake.ID) (bool, error) {
	var count int64
	err := tx.WithContext(ctx).Model(&domain.ProcessedEvent{}).
		Where("tenant_id = ? AND cylinder_size_id = ?", tenantID, sizeID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return count > 0, nil
}

// SizeFlowsByDay sums per-product flow rows into one row per date for the
// size. Aggregate sentinel rows are excluded so recomputation never reads its
// own output.
func (r *ledgerRepository) SizeFlowsByDay(ctx context.Context, tx *gorm.DB, tenantID, sizeID snowflake.ID, from, to time.Time) ([]domain.DayFlows, error) {
	var flows []domain.DayFlows
	err := tx.WithContext(ctx).Model(&domain.LedgerDay{}).
		Select(`date,
			SUM(package_sales_qty) AS package_sales_qty,
			SUM(refill_sales_qty) AS refill_sales_qty,
			SUM(package_sales_revenue) AS package_sales_revenue,
			SUM(refill_sales_revenue) AS refill_sales_revenue,
			SUM(package_purchase_qty) AS package_purchase_qty,
			SUM(refill_purchase_qty) AS refill_purchase_qty,
			SUM(refill_received_qty) AS refill_received_qty,
			SUM(incoming_empty_qty) AS incoming_empty_qty,
			SUM(outgoing_empty_qty) AS outgoing_empty_qty`).
		Where("tenant_id = ? AND cylinder_size_id = ? AND product_id <> ? AND date >= ? AND date <= ?",
			tenantID, sizeID, domain.AggregateProductID, from, to).
		Group("date").
		Order("date ASC").
		Scan(&flows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return flows, nil
}

func (r *ledgerRepository) FindAggregateDay(ctx context.Context, tx *gorm.DB, tenantID, sizeID snowflake.ID, date time.Time) (*domain.LedgerDay, error) {
	return r.FindDay(ctx, tx, domain.DayKey{
		TenantID:       tenantID,
		Date:           date,
		ProductID:      domain.AggregateProductID,
		CylinderSizeID: sizeID,
	})
}

func (r *ledgerRepository) OnboardingBaseline(ctx context.Context, tx *gorm.DB, tenantID, sizeID snowflake.ID) (*domain.Baseline, error) {
	// The earliest onboarding row is fetched through the model rather than
	// a MIN() aggregate: sqlite loses the column's datetime affinity inside
	// an aggregate and hands the driver a bare string.
	var first domain.LedgerDay
	err := tx.WithContext(ctx).
		Where("tenant_id = ? AND cylinder_size_id = ? AND onboarding_date IS NOT NULL", tenantID, sizeID).
		Order("onboarding_date ASC").
		First(&first).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	var sums struct {
		FullQty        int64
		EmptyQty       int64
		ReceivableQty  int64
		CashReceivable decimal.Decimal
	}
	err = tx.WithContext(ctx).Model(&domain.LedgerDay{}).
		Select(`COALESCE(SUM(onboarding_full_qty), 0) AS full_qty,
			COALESCE(SUM(onboarding_empty_qty), 0) AS empty_qty,
			COALESCE(SUM(onboarding_receivable_qty), 0) AS receivable_qty,
			COALESCE(SUM(onboarding_cash_receivable), 0) AS cash_receivable`).
		Where("tenant_id = ? AND cylinder_size_id = ? AND onboarding_date IS NOT NULL", tenantID, sizeID).
		Scan(&sums).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	return &domain.Baseline{
		FullQty:        sums.FullQty,
		EmptyQty:       sums.EmptyQty,
		ReceivableQty:  sums.ReceivableQty,
		CashReceivable: sums.CashReceivable,
		OnboardedAt:    first.OnboardingDate,
	}, nil
}
